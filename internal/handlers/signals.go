package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/community-directory/backend/internal/middleware"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
	"github.com/emilythestrangee/community-directory/backend/internal/reaction"
)

type SignalHandler struct {
	signals SignalService
}

func NewSignalHandler(signals SignalService) *SignalHandler {
	return &SignalHandler{signals: signals}
}

func counts(t reaction.Tally) gin.H {
	return gin.H{"likes": t.Positive, "dislikes": t.Negative, "total": t.Total}
}

// Like toggles the caller's like or dislike on the target (PROTECTED).
// Sending the same value twice takes the reaction back.
func (h *SignalHandler) Like(target models.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		var input struct {
			IsLike *bool `json:"isLike"`
		}
		// an empty body is a like
		if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "isLike must be a boolean"})
			return
		}
		isLike := input.IsLike == nil || *input.IsLike

		res, tally, err := h.signals.Set(c.Request.Context(), userID, reaction.Key{Type: target, ID: id}, isLike)
		if err != nil {
			respondError(c, err)
			return
		}

		body := counts(tally)
		if res.Outcome == reaction.Removed {
			body["liked"] = false
			body["message"] = "unliked"
			c.JSON(http.StatusOK, body)
			return
		}
		body["liked"] = true
		body["isLike"] = res.Row.IsLike
		body["signal"] = res.Row
		c.JSON(http.StatusCreated, body)
	}
}

// Unlike removes the caller's reaction on the target, if any (PROTECTED).
func (h *SignalHandler) Unlike(target models.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		if err := h.signals.Remove(c.Request.Context(), userID, reaction.Key{Type: target, ID: id}); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Reaction removed"})
	}
}

// Counts returns the like and dislike totals on the target.
func (h *SignalHandler) Counts(target models.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		tally, err := h.signals.Counts(c.Request.Context(), reaction.Key{Type: target, ID: id})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, counts(tally))
	}
}
