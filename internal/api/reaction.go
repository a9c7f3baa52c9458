package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PravEF/EFNadekoBot/internal/gateway"
	"github.com/PravEF/EFNadekoBot/internal/models"
	"github.com/PravEF/EFNadekoBot/internal/reactions"
)

// ReactionHandler exposes the admin mutation surface. Handlers never touch
// the in-memory index directly; every mutation goes through the service,
// which persists and broadcasts, and the index converges via the sync
// subscription like on every other shard.
type ReactionHandler struct {
	svc    *reactions.Service
	logger *zap.Logger
}

func NewReactionHandler(svc *reactions.Service, logger *zap.Logger) *ReactionHandler {
	return &ReactionHandler{svc: svc, logger: logger}
}

type createReactionRequest struct {
	// TenantID is omitted or the zero UUID for a global reaction.
	TenantID uuid.UUID `json:"tenant_id"`
	Trigger  string    `json:"trigger" binding:"required"`
	Response string    `json:"response" binding:"required"`
}

type editReactionRequest struct {
	Response string `json:"response" binding:"required"`
}

type toggleFlagRequest struct {
	Value *bool `json:"value" binding:"required"`
}

type previewRequest struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	Content     string    `json:"content" binding:"required"`
	AuthorName  string    `json:"author_name"`
	ChannelName string    `json:"channel_name"`
}

// Create handles POST /v1/reactions
func (h *ReactionHandler) Create(c *gin.Context) {
	var req createReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := h.svc.Add(c.Request.Context(), req.TenantID, req.Trigger, req.Response)
	if err != nil {
		h.logger.Error("failed to create reaction", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create reaction"})
		return
	}
	c.JSON(http.StatusCreated, r)
}

// List handles GET /v1/reactions?tenant_id=<uuid>
// Without tenant_id it lists the global reactions.
func (h *ReactionHandler) List(c *gin.Context) {
	tenantID := uuid.Nil
	if t := c.Query("tenant_id"); t != "" {
		var err error
		tenantID, err = uuid.Parse(t)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
			return
		}
	}
	c.JSON(http.StatusOK, h.svc.List(tenantID))
}

// Delete handles DELETE /v1/reactions/:id
func (h *ReactionHandler) Delete(c *gin.Context) {
	id, ok := h.reactionID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("failed to delete reaction", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete reaction"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Edit handles PATCH /v1/reactions/:id
func (h *ReactionHandler) Edit(c *gin.Context) {
	id, ok := h.reactionID(c)
	if !ok {
		return
	}
	var req editReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.EditResponse(c.Request.Context(), id, req.Response); err != nil {
		h.logger.Error("failed to edit reaction", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to edit reaction"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleFlag handles PUT /v1/reactions/:id/flags/:flag
// Valid flags: auto_delete_trigger, dm_response, contains_anywhere.
func (h *ReactionHandler) ToggleFlag(c *gin.Context) {
	id, ok := h.reactionID(c)
	if !ok {
		return
	}
	flag := c.Param("flag")
	switch flag {
	case reactions.FlagAutoDeleteTrigger, reactions.FlagDmResponse, reactions.FlagContainsAnywhere:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown flag"})
		return
	}

	var req toggleFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SetFlag(c.Request.Context(), id, flag, *req.Value); err != nil {
		h.logger.Error("failed to toggle reaction flag",
			zap.Int64("id", id),
			zap.String("flag", flag),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle flag"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Preview handles POST /v1/reactions/preview: report which reactions would
// fire for a hypothetical message, without sending anything. Lets an admin
// check trigger wording before real traffic hits it.
func (h *ReactionHandler) Preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg := &gateway.Message{
		TenantID:    req.TenantID,
		AuthorName:  req.AuthorName,
		ChannelName: req.ChannelName,
		Content:     req.Content,
	}
	matched := h.svc.FindMatches(msg, req.Content)
	if matched == nil {
		matched = []models.Reaction{}
	}
	c.JSON(http.StatusOK, matched)
}

// Stats handles GET /v1/reactions/stats
func (h *ReactionHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}

// ResetStats handles DELETE /v1/reactions/stats
func (h *ReactionHandler) ResetStats(c *gin.Context) {
	h.svc.ResetStats()
	c.Status(http.StatusNoContent)
}

func (h *ReactionHandler) reactionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reaction ID"})
		return 0, false
	}
	return id, true
}
