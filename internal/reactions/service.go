package reactions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PravEF/EFNadekoBot/internal/behaviors"
	"github.com/PravEF/EFNadekoBot/internal/gateway"
	"github.com/PravEF/EFNadekoBot/internal/models"
	"github.com/PravEF/EFNadekoBot/internal/permissions"
	"github.com/PravEF/EFNadekoBot/internal/repository"
)

var (
	_ behaviors.EarlyBlockingExecutor = (*Service)(nil)
	_ behaviors.AliasableExecutor     = (*Service)(nil)
)

// Service owns the shard-local reaction state and exposes the two faces of
// the feature: the admin mutation surface (persist, then broadcast; the
// index is only ever touched by the sync handler) and the per-message
// execution pipeline.
type Service struct {
	repo      repository.ReactionRepository
	sync      *SyncAdapter
	index     *Index
	stats     *Stats
	perms     permissions.Checker
	logger    *zap.Logger
	startWith bool
}

func NewService(
	repo repository.ReactionRepository,
	sync *SyncAdapter,
	index *Index,
	stats *Stats,
	perms permissions.Checker,
	startWith bool,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		sync:      sync,
		index:     index,
		stats:     stats,
		perms:     perms,
		startWith: startWith,
		logger:    logger,
	}
}

// Load bulk-populates the index from the store. Called once at startup,
// after the sync subscription is live, so a mutation racing the load is
// either in the loaded set or arrives as an event.
func (s *Service) Load(ctx context.Context) error {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load reactions: %w", err)
	}
	s.index.Load(all)
	s.logger.Info("reactions loaded", zap.Int("count", len(all)))
	return nil
}

// ---------------------------------------------------------------
// Admin surface. Every mutation is store-write-then-publish; the
// local index converges via the same subscription as every other
// shard.
// ---------------------------------------------------------------

// Add persists a new reaction and broadcasts it. tenantID = uuid.Nil creates
// a global reaction.
func (s *Service) Add(ctx context.Context, tenantID uuid.UUID, trigger, response string) (*models.Reaction, error) {
	r, err := s.repo.Create(ctx, tenantID, trigger, response)
	if err != nil {
		return nil, err
	}
	if err := s.sync.PublishAdd(ctx, *r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes a reaction from the store and broadcasts the removal.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.sync.PublishDelete(ctx, id)
}

// EditResponse replaces a reaction's response text.
func (s *Service) EditResponse(ctx context.Context, id int64, response string) error {
	if err := s.repo.SetResponse(ctx, id, response); err != nil {
		return err
	}
	return s.sync.PublishEdit(ctx, id, response)
}

// SetFlag persists one boolean flag and broadcasts the toggle on that flag's
// dedicated channel.
func (s *Service) SetFlag(ctx context.Context, id int64, flag string, value bool) error {
	if err := s.repo.SetFlag(ctx, id, flag, value); err != nil {
		return err
	}
	return s.sync.PublishToggle(ctx, id, flag, value)
}

// List returns the reactions visible in one scope from the current snapshot.
func (s *Service) List(tenantID uuid.UUID) []models.Reaction {
	snap := s.index.Snapshot(tenantID)
	if tenantID == uuid.Nil {
		return snap.Global
	}
	return snap.Tenant
}

// FindMatches reports which reactions would fire for msg without executing
// anything, for diagnostics and surrounding command code.
func (s *Service) FindMatches(msg *gateway.Message, content string) []models.Reaction {
	return Match(s.index.Snapshot(msg.TenantID), msg, content, s.startWith)
}

// Stats exposes the per-trigger counters.
func (s *Service) Stats() map[string]uint64 { return s.stats.All() }

// ResetStats clears the per-trigger counters.
func (s *Service) ResetStats() { s.stats.Reset() }

// ---------------------------------------------------------------
// Execution pipeline.
// ---------------------------------------------------------------

// TryExecuteEarly matches msg against the index and fires every matching
// reaction. Returns true when the message was claimed, telling the
// dispatcher to suppress later handling stages.
func (s *Service) TryExecuteEarly(ctx context.Context, client gateway.Client, msg *gateway.Message) (bool, error) {
	return s.TryExecuteEarlyAs(ctx, client, msg, msg.Content)
}

// TryExecuteEarlyAs is the alias entry point: content is matched in place of
// the raw message text.
func (s *Service) TryExecuteEarlyAs(ctx context.Context, client gateway.Client, msg *gateway.Message, content string) (bool, error) {
	matched := s.FindMatches(msg, content)
	if len(matched) == 0 {
		return false, nil
	}

	for _, r := range matched {
		// Inside a tenant, the permission engine gets the final word. A
		// deny aborts the whole batch: the tenant blocked this trigger,
		// so nothing else should fire for the message either.
		if msg.TenantID != uuid.Nil {
			allowed, ruleIndex := s.perms.CheckPermissions(msg, r.Trigger, permissions.CategoryReactions)
			if !allowed {
				if s.perms.IsVerbose(msg.TenantID) {
					denial := permissions.DenialText(ruleIndex)
					if err := client.SendMessage(ctx, msg.ChannelID, denial); err != nil {
						s.logger.Debug("denial message failed", zap.Error(err))
					}
					s.logger.Info("reaction blocked",
						zap.Int64("reaction_id", r.ID),
						zap.String("tenant_id", msg.TenantID.String()),
						zap.Int("permission_rule", ruleIndex),
					)
				}
				return true, nil
			}
		}

		if err := s.fire(ctx, client, r, msg, normalize(content)); err != nil {
			// One failing send must not starve the other matches.
			s.logger.Warn("sending reaction failed",
				zap.Int64("reaction_id", r.ID),
				zap.Error(err),
			)
			continue
		}
		s.stats.Increment(r.Trigger)

		if r.AutoDeleteTrigger {
			// Best effort. The message may already be gone or the bot may
			// lack delete rights in this channel.
			if err := client.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
				s.logger.Debug("trigger delete failed",
					zap.String("message_id", msg.ID),
					zap.Error(err),
				)
			}
		}
	}
	return true, nil
}

func (s *Service) fire(ctx context.Context, client gateway.Client, r models.Reaction, msg *gateway.Message, content string) error {
	response := s.resolveResponse(r, msg, content)
	if r.DmResponse {
		return client.SendDM(ctx, msg.AuthorID, response)
	}
	return client.SendMessage(ctx, msg.ChannelID, response)
}

// resolveResponse substitutes the response placeholders. %target% captures
// whatever followed the trigger in the matched content.
func (s *Service) resolveResponse(r models.Reaction, msg *gateway.Message, content string) string {
	response := r.Response
	if strings.Contains(strings.ToLower(response), tokenTarget) {
		trigger := normalize(resolveContext(r.Trigger, msg))
		target := strings.TrimSpace(strings.TrimPrefix(content, trigger))
		response = replaceFold(response, tokenTarget, target)
	}
	rep := strings.NewReplacer(
		tokenUser, msg.AuthorName,
		tokenChannel, msg.ChannelName,
		tokenMention, msg.Mention(),
	)
	return rep.Replace(response)
}

// replaceFold replaces every case-insensitive occurrence of token. It scans
// the original string rather than a lowered copy: ToLower can change the byte
// length of case-variant runes, which would misalign the indexes. token is an
// ASCII literal, so any equal-fold window has exactly len(token) bytes.
func replaceFold(s, token, with string) string {
	if token == "" {
		return s
	}
	var b strings.Builder
	i := 0
	for i+len(token) <= len(s) {
		if strings.EqualFold(s[i:i+len(token)], token) {
			b.WriteString(with)
			i += len(token)
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	b.WriteString(s[i:])
	return b.String()
}
