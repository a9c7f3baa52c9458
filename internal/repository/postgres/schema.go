package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schemas are applied in order at startup. Statements are idempotent so every
// shard can run them on boot without coordination.
var Schemas = []string{`
CREATE TABLE IF NOT EXISTS reactions (
	id BIGSERIAL PRIMARY KEY,
	tenant_id UUID,

	trigger TEXT NOT NULL,
	response TEXT NOT NULL,

	contains_anywhere BOOLEAN NOT NULL DEFAULT FALSE,
	dm_response BOOLEAN NOT NULL DEFAULT FALSE,
	auto_delete_trigger BOOLEAN NOT NULL DEFAULT FALSE,

	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
);
`, `
CREATE INDEX IF NOT EXISTS reactions_tenant_idx ON reactions(tenant_id);
`, `
CREATE TABLE IF NOT EXISTS admins (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
);
`}

// InitSchema creates the tables this service owns.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range Schemas {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
