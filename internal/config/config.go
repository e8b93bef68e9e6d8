package config

import (
	"database/sql"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

type Config struct {
	Port               int
	DatabaseURL        string
	RedisAddr          string
	DataDir            string
	LookupAPIURL       string
	LookupAPIKey       string
	MaxConcurrentScans int
	MaxScanDepth       int
	ScanTimeout        int // minutes a scan may run before it is marked lost
	ScanRetention      int // hours completed scan state is kept in memory
	// AutoMatchThreshold is the minimum confidence (0-100) at which a
	// suggestion is applied automatically. Candidates scoring at least
	// ManualReviewRatio*threshold are held for manual review instead.
	AutoMatchThreshold float64
	ManualReviewRatio  float64
	MatchConcurrency   int
	VideoExtensions    []string
	ChecksumOnScan     bool
}

func Load() *Config {
	return &Config{
		Port:               envInt("PORT", 8080),
		DatabaseURL:        env("DATABASE_URL", "postgres://mediashelf:mediashelf@db:5432/mediashelf?sslmode=disable"),
		RedisAddr:          env("REDIS_ADDR", "redis:6379"),
		DataDir:            env("DATA_DIR", "/data"),
		LookupAPIURL:       env("LOOKUP_API_URL", "https://www.omdbapi.com/"),
		LookupAPIKey:       env("LOOKUP_API_KEY", ""),
		MaxConcurrentScans: envInt("MAX_CONCURRENT_SCANS", 3),
		MaxScanDepth:       envInt("MAX_SCAN_DEPTH", 10),
		ScanTimeout:        envInt("SCAN_TIMEOUT_MINUTES", 5),
		ScanRetention:      envInt("SCAN_RETENTION_HOURS", 24),
		AutoMatchThreshold: envFloat("AUTO_MATCH_THRESHOLD", 80),
		ManualReviewRatio:  envFloat("MANUAL_REVIEW_RATIO", 0.6),
		MatchConcurrency:   envInt("MATCH_CONCURRENCY", 4),
		VideoExtensions:    envList("VIDEO_EXTENSIONS", defaultVideoExtensions),
		ChecksumOnScan:     env("CHECKSUM_ON_SCAN", "false") == "true",
	}
}

var defaultVideoExtensions = []string{
	".mp4", ".mkv", ".avi", ".mov", ".m4v", ".wmv", ".flv", ".webm",
	".ts", ".m2ts", ".mpg", ".mpeg",
}

// MergeFromDB overlays runtime settings stored in the settings table.
// A missing table or row is not an error; env/default values stay in effect.
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM settings")
	if err != nil {
		log.Printf("config: skipping DB merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "lookup_api_url":
			c.LookupAPIURL = value
		case "lookup_api_key":
			c.LookupAPIKey = value
		case "auto_match_threshold":
			if v := cast.ToFloat64(value); v > 0 && v <= 100 {
				c.AutoMatchThreshold = v
			}
		case "manual_review_ratio":
			if v := cast.ToFloat64(value); v > 0 && v < 1 {
				c.ManualReviewRatio = v
			}
		case "max_concurrent_scans":
			if v := cast.ToInt(value); v > 0 {
				c.MaxConcurrentScans = v
			}
		case "max_scan_depth":
			if v := cast.ToInt(value); v > 0 {
				c.MaxScanDepth = v
			}
		case "match_concurrency":
			if v := cast.ToInt(value); v > 0 {
				c.MatchConcurrency = v
			}
		case "checksum_on_scan":
			c.ChecksumOnScan = cast.ToBool(value)
		}
	}
}

func (c *Config) LookupEnabled() bool {
	return c.LookupAPIURL != "" && c.LookupAPIKey != ""
}

// ManualReviewFloor is the confidence at or above which an unmatched
// candidate is held for manual review rather than discarded.
func (c *Config) ManualReviewFloor() float64 {
	return c.AutoMatchThreshold * c.ManualReviewRatio
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
