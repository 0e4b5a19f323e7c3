package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/today-red-note/rednote/internal/service"
)

func draftID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondNotFound(c)
		return 0, false
	}
	return id, true
}

// listDrafts handles GET /api/drafts
func (r *Router) listDrafts(c *gin.Context) {
	drafts, err := r.drafts.ListDrafts(c.Request.Context(), UserID(c))
	if err != nil {
		r.logger.Error("list drafts failed", zap.Error(err))
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

// createDraft handles POST /api/drafts
func (r *Router) createDraft(c *gin.Context) {
	var in service.DraftInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	draft, err := r.drafts.CreateDraft(c.Request.Context(), UserID(c), in)
	if err != nil {
		r.logger.Error("create draft failed", zap.Error(err))
		respondInternal(c)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"draft": draft})
}

// updateDraft handles PUT /api/drafts/:id
func (r *Router) updateDraft(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	var in service.DraftInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	draft, err := r.drafts.UpdateDraft(c.Request.Context(), id, UserID(c), in)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			respondForbidden(c)
			return
		}
		r.logger.Error("update draft failed", zap.Int64("draft_id", id), zap.Error(err))
		respondInternal(c)
		return
	}
	if draft == nil {
		respondNotFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// deleteDraft handles DELETE /api/drafts/:id
func (r *Router) deleteDraft(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	deleted, err := r.drafts.DeleteDraft(c.Request.Context(), id, UserID(c))
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			respondForbidden(c)
			return
		}
		r.logger.Error("delete draft failed", zap.Int64("draft_id", id), zap.Error(err))
		respondInternal(c)
		return
	}
	if !deleted {
		respondNotFound(c)
		return
	}
	c.Status(http.StatusNoContent)
}
