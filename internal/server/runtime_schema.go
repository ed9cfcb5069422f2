package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ValidateRuntimeSchema fails fast on boot when the database is missing the
// tables the handlers assume exist.
func ValidateRuntimeSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	requiredTables := []string{
		"users",
		"chat_sessions",
		"chat_messages",
		"health_tracker",
		"health_reports",
	}

	missing := make([]string, 0)
	for _, table := range requiredTables {
		ok, err := tableExists(ctx, pool, table)
		if err != nil {
			return fmt.Errorf("failed checking schema for table %s: %w", table, err)
		}
		if !ok {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required tables missing: %s; run database migration first", strings.Join(missing, ", "))
	}
	return nil
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	table := strings.TrimSpace(tableName)
	if table == "" {
		return false, fmt.Errorf("table name must not be empty")
	}
	var exists bool
	err := pool.QueryRow(
		ctx,
		`SELECT EXISTS (
		   SELECT 1
		   FROM information_schema.tables
		   WHERE table_schema = current_schema()
		     AND lower(table_name) = lower($1)
		 )`,
		table,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
