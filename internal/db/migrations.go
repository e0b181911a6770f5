package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: emails are matched case-insensitively; normalise rows
	// written before the NOCASE index existed.
	`UPDATE users SET email = LOWER(TRIM(email)) WHERE email <> LOWER(TRIM(email))`,
	// Migration 2: expired revocations are useless once the token itself is.
	`DELETE FROM revoked_tokens WHERE expires_at < CURRENT_TIMESTAMP`,
}

// Migrate ensures the schema and then runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
