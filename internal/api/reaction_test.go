package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PravEF/EFNadekoBot/internal/bus"
	"github.com/PravEF/EFNadekoBot/internal/models"
	"github.com/PravEF/EFNadekoBot/internal/permissions"
	"github.com/PravEF/EFNadekoBot/internal/reactions"
)

type memRepo struct {
	nextID    int64
	reactions map[int64]models.Reaction
}

func (m *memRepo) GetAll(context.Context) ([]models.Reaction, error) { return nil, nil }

func (m *memRepo) Get(_ context.Context, id int64) (*models.Reaction, error) {
	if r, ok := m.reactions[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *memRepo) Create(_ context.Context, tenantID uuid.UUID, trigger, response string) (*models.Reaction, error) {
	m.nextID++
	r := models.Reaction{ID: m.nextID, TenantID: tenantID, Trigger: trigger, Response: response, CreatedAt: time.Now()}
	m.reactions[r.ID] = r
	return &r, nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	delete(m.reactions, id)
	return nil
}

func (m *memRepo) SetResponse(_ context.Context, id int64, response string) error {
	if r, ok := m.reactions[id]; ok {
		r.Response = response
		m.reactions[id] = r
	}
	return nil
}

func (m *memRepo) SetFlag(_ context.Context, id int64, flag string, value bool) error {
	if r, ok := m.reactions[id]; ok {
		if flag == reactions.FlagDmResponse {
			r.DmResponse = value
		}
		m.reactions[id] = r
	}
	return nil
}

// loopbackBus delivers locally published events straight back, like a redis
// with a single connected shard.
type loopbackBus struct {
	handlers map[string][]bus.Handler
}

func (b *loopbackBus) Publish(_ context.Context, channel string, payload []byte) error {
	for _, h := range b.handlers[channel] {
		h(channel, payload)
	}
	return nil
}

func (b *loopbackBus) Subscribe(_ context.Context, handler bus.Handler, channels ...string) error {
	for _, ch := range channels {
		b.handlers[ch] = append(b.handlers[ch], handler)
	}
	return nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &memRepo{reactions: map[int64]models.Reaction{}}
	idx := reactions.NewIndex()
	syncer := reactions.NewSyncAdapter("bot1", &loopbackBus{handlers: map[string][]bus.Handler{}}, idx, zap.NewNop())
	require.NoError(t, syncer.Start(context.Background()))
	svc := reactions.NewService(repo, syncer, idx, reactions.NewStats(), permissions.AllowAll{}, false, zap.NewNop())

	h := NewReactionHandler(svc, zap.NewNop())
	r := gin.New()
	r.POST("/v1/reactions", h.Create)
	r.GET("/v1/reactions", h.List)
	r.POST("/v1/reactions/preview", h.Preview)
	r.GET("/v1/reactions/stats", h.Stats)
	r.DELETE("/v1/reactions/stats", h.ResetStats)
	r.DELETE("/v1/reactions/:id", h.Delete)
	r.PATCH("/v1/reactions/:id", h.Edit)
	r.PUT("/v1/reactions/:id/flags/:flag", h.ToggleFlag)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReactionCreateAndList(t *testing.T) {
	r := newTestRouter(t)
	tenant := uuid.New()

	w := doJSON(r, http.MethodPost, "/v1/reactions",
		`{"tenant_id":"`+tenant.String()+`","trigger":"ping","response":"pong"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Reaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "ping", created.Trigger)

	w = doJSON(r, http.MethodGet, "/v1/reactions?tenant_id="+tenant.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.Reaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestReactionCreateValidation(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/v1/reactions", `{"trigger":"ping"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReactionEditAndDelete(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/reactions", `{"trigger":"ping","response":"pong"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Reaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(r, http.MethodPatch, "/v1/reactions/1", `{"response":"PONG"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodDelete, "/v1/reactions/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodGet, "/v1/reactions", "")
	var listed []models.Reaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Empty(t, listed)
}

func TestReactionToggleFlag(t *testing.T) {
	r := newTestRouter(t)

	doJSON(r, http.MethodPost, "/v1/reactions", `{"trigger":"ping","response":"pong"}`)

	w := doJSON(r, http.MethodPut, "/v1/reactions/1/flags/dm_response", `{"value":true}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodPut, "/v1/reactions/1/flags/bogus", `{"value":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing value must not be read as false.
	w = doJSON(r, http.MethodPut, "/v1/reactions/1/flags/dm_response", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReactionPreview(t *testing.T) {
	r := newTestRouter(t)
	tenant := uuid.New()

	doJSON(r, http.MethodPost, "/v1/reactions",
		`{"tenant_id":"`+tenant.String()+`","trigger":"ping","response":"pong"}`)

	w := doJSON(r, http.MethodPost, "/v1/reactions/preview",
		`{"tenant_id":"`+tenant.String()+`","content":"ping"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var matched []models.Reaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &matched))
	require.Len(t, matched, 1)
	assert.Equal(t, "ping", matched[0].Trigger)

	// No rule matches in an unrelated tenant with no global rules.
	w = doJSON(r, http.MethodPost, "/v1/reactions/preview",
		`{"tenant_id":"`+uuid.NewString()+`","content":"ping"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestReactionStatsEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodGet, "/v1/reactions/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())

	w = doJSON(r, http.MethodDelete, "/v1/reactions/stats", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
