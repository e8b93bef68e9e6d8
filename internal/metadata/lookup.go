package metadata

import (
	"context"
	"errors"

	"github.com/mediashelf/mediashelf/internal/models"
)

// ErrNoResults is returned when the provider reports no records for a
// query. Callers distinguish it from transport failures with errors.Is.
var ErrNoResults = errors.New("metadata: no results")

// Lookup finds candidate media records in an external catalogue.
// Implementations must be safe for concurrent use.
type Lookup interface {
	// Search returns candidates for a title. Year narrows the search
	// when non-nil. mediaType selects movie or series search; any other
	// value searches both. Returns ErrNoResults when the provider has
	// no records for the query.
	Search(ctx context.Context, title string, year *int, mediaType models.MediaType) ([]models.MediaRecord, error)

	// FetchByID returns the full record for a provider ID.
	FetchByID(ctx context.Context, id string) (*models.MediaRecord, error)
}
