package reactions

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/PravEF/EFNadekoBot/internal/gateway"
	"github.com/PravEF/EFNadekoBot/internal/models"
)

func testMessage(tenantID uuid.UUID, content string) *gateway.Message {
	return &gateway.Message{
		ID:          "m1",
		TenantID:    tenantID,
		ChannelID:   uuid.New(),
		ChannelName: "general",
		AuthorID:    uuid.New(),
		AuthorName:  "alice",
		Content:     content,
	}
}

func matchedIDs(rs []models.Reaction) []int64 {
	ids := make([]int64, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestMatchExact(t *testing.T) {
	snap := Snapshot{Global: []models.Reaction{{ID: 1, Trigger: "hello", Response: "hi"}}}

	msg := testMessage(uuid.Nil, "hello")
	assert.Len(t, Match(snap, msg, msg.Content, false), 1)

	// Extra words defeat an exact trigger unless start-with or a target
	// placeholder applies.
	msg = testMessage(uuid.Nil, "hello there")
	assert.Empty(t, Match(snap, msg, msg.Content, false))
}

func TestMatchNormalizesCaseAndWhitespace(t *testing.T) {
	snap := Snapshot{Global: []models.Reaction{{ID: 1, Trigger: " Hello ", Response: "hi"}}}
	msg := testMessage(uuid.Nil, "  HELLO  ")
	assert.Len(t, Match(snap, msg, msg.Content, false), 1)
}

func TestMatchContainsAnywhereWordBoundary(t *testing.T) {
	snap := Snapshot{Global: []models.Reaction{{
		ID: 1, Trigger: "cat", Response: "meow", ContainsAnywhere: true,
	}}}

	msg := testMessage(uuid.Nil, "a cat sat")
	assert.Len(t, Match(snap, msg, msg.Content, false), 1)

	msg = testMessage(uuid.Nil, "concatenate")
	assert.Empty(t, Match(snap, msg, msg.Content, false))

	msg = testMessage(uuid.Nil, "cat!")
	assert.Len(t, Match(snap, msg, msg.Content, false), 1)

	// Later occurrence with a proper boundary still counts.
	msg = testMessage(uuid.Nil, "concat cat")
	assert.Len(t, Match(snap, msg, msg.Content, false), 1)
}

func TestMatchTargetPlaceholderEnablesPrefix(t *testing.T) {
	snap := Snapshot{Global: []models.Reaction{{
		ID: 1, Trigger: "hug", Response: "hugs %target%",
	}}}

	msg := testMessage(uuid.Nil, "hug bob")
	assert.Len(t, Match(snap, msg, msg.Content, false), 1)

	// Prefix without a following space is not a match.
	msg = testMessage(uuid.Nil, "hugbob")
	assert.Empty(t, Match(snap, msg, msg.Content, false))
}

func TestMatchStartWithConfig(t *testing.T) {
	snap := Snapshot{Global: []models.Reaction{{ID: 1, Trigger: "hello", Response: "hi"}}}
	msg := testMessage(uuid.Nil, "hello there")

	assert.Empty(t, Match(snap, msg, msg.Content, false))
	assert.Len(t, Match(snap, msg, msg.Content, true), 1)
}

func TestMatchTenantShadowsGlobal(t *testing.T) {
	tenant := uuid.New()
	snap := Snapshot{
		Tenant: []models.Reaction{{ID: 1, TenantID: tenant, Trigger: "ping", Response: "tenant pong"}},
		Global: []models.Reaction{{ID: 2, Trigger: "ping", Response: "global pong"}},
	}

	msg := testMessage(tenant, "ping")
	got := Match(snap, msg, msg.Content, false)
	assert.Equal(t, []int64{1}, matchedIDs(got))
}

func TestMatchFallsThroughToGlobal(t *testing.T) {
	tenant := uuid.New()
	snap := Snapshot{
		Tenant: []models.Reaction{{ID: 1, TenantID: tenant, Trigger: "other", Response: "x"}},
		Global: []models.Reaction{{ID: 2, Trigger: "ping", Response: "global pong"}},
	}

	// Tenant rules exist but none match, so global rules are evaluated.
	msg := testMessage(tenant, "ping")
	got := Match(snap, msg, msg.Content, false)
	assert.Equal(t, []int64{2}, matchedIDs(got))
}

func TestMatchReturnsAllMatchesInWinningScope(t *testing.T) {
	snap := Snapshot{Global: []models.Reaction{
		{ID: 1, Trigger: "cat", Response: "a", ContainsAnywhere: true},
		{ID: 2, Trigger: "sat", Response: "b", ContainsAnywhere: true},
		{ID: 3, Trigger: "dog", Response: "c", ContainsAnywhere: true},
	}}

	msg := testMessage(uuid.Nil, "a cat sat")
	got := Match(snap, msg, msg.Content, false)
	assert.Equal(t, []int64{1, 2}, matchedIDs(got))
}

func TestMatchResolvesTriggerContextTokens(t *testing.T) {
	snap := Snapshot{Global: []models.Reaction{{
		ID: 1, Trigger: "hi %user%", Response: "hello",
	}}}

	msg := testMessage(uuid.Nil, "hi alice")
	assert.Len(t, Match(snap, msg, msg.Content, false), 1)

	msg = testMessage(uuid.Nil, "hi bob")
	assert.Empty(t, Match(snap, msg, msg.Content, false))
}

func TestMatchEmptyContent(t *testing.T) {
	snap := Snapshot{Global: []models.Reaction{{ID: 1, Trigger: "x", Response: "y"}}}
	msg := testMessage(uuid.Nil, "   ")
	assert.Empty(t, Match(snap, msg, msg.Content, false))
}
