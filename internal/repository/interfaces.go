package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/PravEF/EFNadekoBot/internal/models"
)

// ReactionRepository is the durable source of truth for reactions. Shards
// read it exactly once at startup (GetAll) and write it on every admin
// mutation before the change is broadcast. The in-memory index is never
// repaired from it at runtime; only a fresh process start reloads.
type ReactionRepository interface {
	// GetAll returns every reaction, both tenant-scoped and global,
	// ordered by id.
	GetAll(ctx context.Context) ([]models.Reaction, error)

	// Get returns a single reaction by id. Returns nil, nil if not found.
	Get(ctx context.Context, id int64) (*models.Reaction, error)

	// Create persists a reaction and returns it with ID and CreatedAt
	// populated. tenantID = uuid.Nil creates a global reaction.
	Create(ctx context.Context, tenantID uuid.UUID, trigger, response string) (*models.Reaction, error)

	// Delete removes a reaction. No-op if the id is unknown.
	Delete(ctx context.Context, id int64) error

	// SetResponse replaces the response text of an existing reaction.
	SetResponse(ctx context.Context, id int64, response string) error

	// SetFlag updates one of the boolean columns (auto_delete_trigger,
	// dm_response, contains_anywhere).
	SetFlag(ctx context.Context, id int64, flag string, value bool) error
}

// AdminRepository resolves operator accounts for the management API.
type AdminRepository interface {
	// GetByEmail returns nil, nil when no admin has that email.
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
}
