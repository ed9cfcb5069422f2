package db

import (
	"context"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, rawURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(normalizeDatabaseURL(rawURL))
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// normalizeDatabaseURL accepts the postgresql:// spelling managed providers
// hand out and drops query parameters pgx rejects, keeping only the
// connection options this service actually uses.
func normalizeDatabaseURL(rawURL string) string {
	normalized := strings.TrimSpace(rawURL)
	if strings.HasPrefix(normalized, "postgresql://") {
		normalized = "postgres://" + normalized[len("postgresql://"):]
	}

	parsed, err := url.Parse(normalized)
	if err != nil || parsed.Scheme != "postgres" {
		return normalized
	}

	filtered := make(url.Values)
	for key, values := range parsed.Query() {
		if !keepPGParam(key) {
			continue
		}
		for _, v := range values {
			filtered.Add(key, v)
		}
	}
	parsed.RawQuery = filtered.Encode()
	return parsed.String()
}

func keepPGParam(key string) bool {
	switch key {
	case "sslmode", "sslrootcert", "sslcert", "sslkey",
		"connect_timeout", "application_name", "options",
		"target_session_attrs", "default_query_exec_mode":
		return true
	}
	return false
}
