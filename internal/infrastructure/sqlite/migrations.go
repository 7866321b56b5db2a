package sqlite

import (
	"context"
	_ "embed"
	"strings"
)

//go:embed migrations/schema.sql
var schemaSQL string

// Migrate ensures the required tables exist.
func (s *DocumentStore) Migrate(ctx context.Context) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	statements := strings.Split(schemaSQL, ";")
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
