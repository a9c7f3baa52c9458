package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PravEF/EFNadekoBot/internal/models"
)

type ReactionStore struct {
	pool *pgxpool.Pool
}

func NewReactionStore(pool *pgxpool.Pool) *ReactionStore {
	return &ReactionStore{pool: pool}
}

// flagColumns whitelists the boolean columns SetFlag may touch. The flag name
// is interpolated into SQL, so anything outside this map is rejected.
var flagColumns = map[string]string{
	"auto_delete_trigger": "auto_delete_trigger",
	"dm_response":         "dm_response",
	"contains_anywhere":   "contains_anywhere",
}

func (s *ReactionStore) GetAll(ctx context.Context) ([]models.Reaction, error) {
	query := `
		SELECT id, tenant_id, trigger, response,
		       contains_anywhere, dm_response, auto_delete_trigger, created_at
		FROM reactions
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	reactions := make([]models.Reaction, 0)
	for rows.Next() {
		r, err := scanReaction(rows)
		if err != nil {
			return nil, err
		}
		reactions = append(reactions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reactions: %w", err)
	}
	return reactions, nil
}

func (s *ReactionStore) Get(ctx context.Context, id int64) (*models.Reaction, error) {
	query := `
		SELECT id, tenant_id, trigger, response,
		       contains_anywhere, dm_response, auto_delete_trigger, created_at
		FROM reactions
		WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	r, err := scanReaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *ReactionStore) Create(ctx context.Context, tenantID uuid.UUID, trigger, response string) (*models.Reaction, error) {
	// Reactions use bigserial so ids are unique across every scope;
	// tenant-scoped and global share one sequence. A global reaction is
	// stored with a NULL tenant_id.
	query := `
		INSERT INTO reactions (tenant_id, trigger, response, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, tenant_id, trigger, response,
		          contains_anywhere, dm_response, auto_delete_trigger, created_at`

	var tid any
	if tenantID != uuid.Nil {
		tid = tenantID
	}

	r, err := scanReaction(s.pool.QueryRow(ctx, query, tid, trigger, response))
	if err != nil {
		return nil, fmt.Errorf("insert reaction: %w", err)
	}
	return &r, nil
}

func (s *ReactionStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM reactions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete reaction %d: %w", id, err)
	}
	return nil
}

func (s *ReactionStore) SetResponse(ctx context.Context, id int64, response string) error {
	if _, err := s.pool.Exec(ctx, `UPDATE reactions SET response = $2 WHERE id = $1`, id, response); err != nil {
		return fmt.Errorf("update reaction %d response: %w", id, err)
	}
	return nil
}

func (s *ReactionStore) SetFlag(ctx context.Context, id int64, flag string, value bool) error {
	column, ok := flagColumns[flag]
	if !ok {
		return fmt.Errorf("unknown reaction flag %q", flag)
	}
	query := fmt.Sprintf(`UPDATE reactions SET %s = $2 WHERE id = $1`, column)
	if _, err := s.pool.Exec(ctx, query, id, value); err != nil {
		return fmt.Errorf("update reaction %d flag %s: %w", id, flag, err)
	}
	return nil
}

func scanReaction(row pgx.Row) (models.Reaction, error) {
	var r models.Reaction
	var tenantID *uuid.UUID
	err := row.Scan(
		&r.ID,
		&tenantID,
		&r.Trigger,
		&r.Response,
		&r.ContainsAnywhere,
		&r.DmResponse,
		&r.AutoDeleteTrigger,
		&r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan reaction: %w", err)
	}
	if tenantID != nil {
		r.TenantID = *tenantID
	}
	return r, nil
}
