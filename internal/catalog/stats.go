package catalog

import (
	"context"
	"fmt"
)

// Stats summarizes catalog contents for status reporting.
type Stats struct {
	Records      int
	QueryKeys    int
	Posters      int
	Publications int
}

// Stats counts the entries in each catalog table.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats
	queries := []struct {
		sql string
		out *int
	}{
		{"SELECT COUNT(1) FROM metadata_records", &stats.Records},
		{"SELECT COUNT(1) FROM query_index", &stats.QueryKeys},
		{"SELECT COUNT(1) FROM poster_assets", &stats.Posters},
		{"SELECT COUNT(1) FROM publication_log", &stats.Publications},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.sql).Scan(q.out); err != nil {
			return Stats{}, fmt.Errorf("count catalog rows: %w", err)
		}
	}
	return stats, nil
}
