package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mediashelf/mediashelf/internal/models"
)

// OMDbClient implements Lookup against an OMDb-compatible API.
type OMDbClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewOMDbClient(baseURL, apiKey string) *OMDbClient {
	return &OMDbClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

var _ Lookup = (*OMDbClient)(nil)

type omdbSearchResponse struct {
	Search []struct {
		Title  string `json:"Title"`
		Year   string `json:"Year"`
		IMDBID string `json:"imdbID"`
		Type   string `json:"Type"`
		Poster string `json:"Poster"`
	} `json:"Search"`
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

type omdbDetailResponse struct {
	Title    string `json:"Title"`
	Year     string `json:"Year"`
	Rated    string `json:"Rated"`
	Released string `json:"Released"`
	Runtime  string `json:"Runtime"`
	Genre    string `json:"Genre"`
	Director string `json:"Director"`
	Writer   string `json:"Writer"`
	Actors   string `json:"Actors"`
	Plot     string `json:"Plot"`
	Language string `json:"Language"`
	Country  string `json:"Country"`
	Ratings  []struct {
		Source string `json:"Source"`
		Value  string `json:"Value"`
	} `json:"Ratings"`
	IMDBID       string `json:"imdbID"`
	Type         string `json:"Type"`
	Poster       string `json:"Poster"`
	TotalSeasons string `json:"totalSeasons"`
	Response     string `json:"Response"`
	Error        string `json:"Error"`
}

func (c *OMDbClient) Search(ctx context.Context, title string, year *int, mediaType models.MediaType) ([]models.MediaRecord, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("s", title)
	if year != nil {
		params.Set("y", strconv.Itoa(*year))
	}
	switch mediaType {
	case models.MediaTypeMovie, models.MediaTypeMovies:
		params.Set("type", "movie")
	case models.MediaTypeSeries, models.MediaTypeEpisode:
		params.Set("type", "series")
	}

	var body omdbSearchResponse
	if err := c.get(ctx, params, &body); err != nil {
		return nil, err
	}
	if body.Response == "False" {
		if body.Error == "Movie not found!" || body.Error == "Series not found!" {
			return nil, fmt.Errorf("%w for %q", ErrNoResults, title)
		}
		return nil, fmt.Errorf("lookup error: %s", body.Error)
	}

	records := make([]models.MediaRecord, 0, len(body.Search))
	for _, hit := range body.Search {
		records = append(records, models.MediaRecord{
			ExternalID: hit.IMDBID,
			Source:     "omdb",
			Title:      hit.Title,
			Year:       parseYearField(hit.Year),
			Type:       typeFromOMDb(hit.Type),
			PosterURL:  posterOrEmpty(hit.Poster),
		})
	}
	return records, nil
}

func (c *OMDbClient) FetchByID(ctx context.Context, id string) (*models.MediaRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("i", id)

	var body omdbDetailResponse
	if err := c.get(ctx, params, &body); err != nil {
		return nil, err
	}
	if body.Response == "False" {
		if body.Error == "Incorrect IMDb ID." || body.Error == "Error getting data." {
			return nil, fmt.Errorf("%w for id %q", ErrNoResults, id)
		}
		return nil, fmt.Errorf("lookup error: %s", body.Error)
	}

	rec := &models.MediaRecord{
		ExternalID: body.IMDBID,
		Source:     "omdb",
		Title:      body.Title,
		Year:       parseYearField(body.Year),
		Type:       typeFromOMDb(body.Type),
		PosterURL:  posterOrEmpty(body.Poster),
		Rated:      naOrEmpty(body.Rated),
		Released:   naOrEmpty(body.Released),
		Runtime:    naOrEmpty(body.Runtime),
		Genres:     splitList(body.Genre),
		Directors:  splitList(body.Director),
		Writers:    splitList(body.Writer),
		Actors:     splitList(body.Actors),
		Plot:       naOrEmpty(body.Plot),
		Language:   naOrEmpty(body.Language),
		Country:    naOrEmpty(body.Country),
	}
	for _, r := range body.Ratings {
		rec.Ratings = append(rec.Ratings, models.Rating{Source: r.Source, Value: r.Value})
	}
	if n, err := strconv.Atoi(body.TotalSeasons); err == nil && n > 0 {
		rec.TotalSeasons = &n
	}
	return rec, nil
}

func (c *OMDbClient) get(ctx context.Context, params url.Values, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build lookup request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode lookup response: %w", err)
	}
	return nil
}

// leadingYearRx extracts the first year from OMDb year strings, which may
// be a single year ("2010") or a series range ("2008–2013").
var leadingYearRx = regexp.MustCompile(`^(\d{4})`)

func parseYearField(s string) *int {
	m := leadingYearRx.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &y
}

func typeFromOMDb(t string) models.MediaType {
	switch t {
	case "movie":
		return models.MediaTypeMovie
	case "series":
		return models.MediaTypeSeries
	default:
		return models.MediaTypeUnknown
	}
}

func posterOrEmpty(p string) string {
	if p == "N/A" {
		return ""
	}
	return p
}

func naOrEmpty(s string) string {
	if s == "N/A" {
		return ""
	}
	return s
}

// splitList breaks OMDb's comma-joined credit fields into a slice.
func splitList(s string) []string {
	if s == "" || s == "N/A" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
