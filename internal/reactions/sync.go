package reactions

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/PravEF/EFNadekoBot/internal/bus"
	"github.com/PravEF/EFNadekoBot/internal/models"
)

// Channel suffixes, one per event kind. Every shard of one logical bot
// subscribes to <botID> + suffix; shards of a different bot on the same redis
// use a different prefix and never see these events.
const (
	chanAdded          = "_gcr.added"
	chanDeleted        = "_gcr.deleted"
	chanEdited         = "_gcr.edited"
	chanToggleAutoDel  = "_crad.toggle"
	chanToggleDm       = "_crdm.toggle"
	chanToggleAnywhere = "_crca.toggle"
)

// editedEvent and toggleEvent are the wire schemas for partial mutations.
// The add event is the full models.Reaction; the delete event is the raw
// decimal id.
type editedEvent struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type toggleEvent struct {
	ID    int64 `json:"id"`
	Value bool  `json:"value"`
}

// SyncAdapter is the only component that mutates the Index after startup.
// Admin actions publish; the subscription handler applies, including on the
// shard that originated the mutation, so there is exactly one code path from
// event to index and no dual-write divergence.
type SyncAdapter struct {
	botID  string
	b      bus.Bus
	index  *Index
	logger *zap.Logger
}

func NewSyncAdapter(botID string, b bus.Bus, index *Index, logger *zap.Logger) *SyncAdapter {
	return &SyncAdapter{botID: botID, b: b, index: index, logger: logger}
}

// Start subscribes to all six mutation channels. Call before the initial
// bulk load so no event published during the load is missed.
func (s *SyncAdapter) Start(ctx context.Context) error {
	channels := []string{
		s.channel(chanAdded),
		s.channel(chanDeleted),
		s.channel(chanEdited),
		s.channel(chanToggleAutoDel),
		s.channel(chanToggleDm),
		s.channel(chanToggleAnywhere),
	}
	return s.b.Subscribe(ctx, s.handle, channels...)
}

func (s *SyncAdapter) channel(suffix string) string {
	return s.botID + suffix
}

// handle decodes one event and applies it. Malformed payloads are logged and
// dropped; a bad event must never take down the subscriber loop, and the
// durable store still holds the truth for the next full reload.
func (s *SyncAdapter) handle(channel string, payload []byte) {
	switch channel {
	case s.channel(chanAdded):
		var r models.Reaction
		if err := json.Unmarshal(payload, &r); err != nil {
			s.dropEvent(channel, err)
			return
		}
		if !s.index.ApplyAdd(r) {
			s.logger.Debug("duplicate reaction add dropped", zap.Int64("id", r.ID))
		}

	case s.channel(chanDeleted):
		id, err := strconv.ParseInt(string(payload), 10, 64)
		if err != nil {
			s.dropEvent(channel, err)
			return
		}
		s.index.ApplyDelete(id)

	case s.channel(chanEdited):
		var ev editedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			s.dropEvent(channel, err)
			return
		}
		s.index.ApplyEdit(ev.ID, ev.Message)

	case s.channel(chanToggleAutoDel):
		s.applyToggle(channel, payload, FlagAutoDeleteTrigger)
	case s.channel(chanToggleDm):
		s.applyToggle(channel, payload, FlagDmResponse)
	case s.channel(chanToggleAnywhere):
		s.applyToggle(channel, payload, FlagContainsAnywhere)
	}
}

func (s *SyncAdapter) applyToggle(channel string, payload []byte, flag string) {
	var ev toggleEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.dropEvent(channel, err)
		return
	}
	s.index.ApplyToggle(ev.ID, flag, ev.Value)
}

func (s *SyncAdapter) dropEvent(channel string, err error) {
	s.logger.Warn("dropping malformed sync event",
		zap.String("channel", channel),
		zap.Error(err),
	)
}

// PublishAdd broadcasts a newly persisted reaction to every shard,
// this one included.
func (s *SyncAdapter) PublishAdd(ctx context.Context, r models.Reaction) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal added event: %w", err)
	}
	return s.b.Publish(ctx, s.channel(chanAdded), payload)
}

func (s *SyncAdapter) PublishDelete(ctx context.Context, id int64) error {
	return s.b.Publish(ctx, s.channel(chanDeleted), []byte(strconv.FormatInt(id, 10)))
}

func (s *SyncAdapter) PublishEdit(ctx context.Context, id int64, response string) error {
	payload, err := json.Marshal(editedEvent{ID: id, Message: response})
	if err != nil {
		return fmt.Errorf("marshal edited event: %w", err)
	}
	return s.b.Publish(ctx, s.channel(chanEdited), payload)
}

func (s *SyncAdapter) PublishToggle(ctx context.Context, id int64, flag string, value bool) error {
	var suffix string
	switch flag {
	case FlagAutoDeleteTrigger:
		suffix = chanToggleAutoDel
	case FlagDmResponse:
		suffix = chanToggleDm
	case FlagContainsAnywhere:
		suffix = chanToggleAnywhere
	default:
		return fmt.Errorf("unknown reaction flag %q", flag)
	}
	payload, err := json.Marshal(toggleEvent{ID: id, Value: value})
	if err != nil {
		return fmt.Errorf("marshal toggle event: %w", err)
	}
	return s.b.Publish(ctx, s.channel(suffix), payload)
}
