package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/community-directory/backend/internal/contribution"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
)

type ContributionHandler struct {
	contributions ContributionService
	actors        actorResolver
}

func NewContributionHandler(contributions ContributionService, isAdmin func(userID string) bool) *ContributionHandler {
	return &ContributionHandler{contributions: contributions, actors: actorResolver(isAdmin)}
}

// Submit creates a pending entry in d (PROTECTED).
func (h *ContributionHandler) Submit(d contribution.Domain) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actors.actor(c)
		if !ok {
			return
		}
		var payload models.Payload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		entry, err := h.contributions.Submit(c.Request.Context(), actor, d, payload)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}

// SubmitEdit proposes an edit of an approved entry (PROTECTED).
func (h *ContributionHandler) SubmitEdit(d contribution.Domain) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actors.actor(c)
		if !ok {
			return
		}
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var payload models.Payload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		entry, err := h.contributions.SubmitEdit(c.Request.Context(), actor, d, id, payload)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}

// SubmitDelete proposes deleting an approved entry (PROTECTED).
func (h *ContributionHandler) SubmitDelete(d contribution.Domain) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actors.actor(c)
		if !ok {
			return
		}
		id, ok := parseID(c, "id")
		if !ok {
			return
		}

		entry, err := h.contributions.SubmitDelete(c.Request.Context(), actor, d, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}

// List returns the approved entries of d, or the pending ones with
// ?status=pending.
func (h *ContributionHandler) List(d contribution.Domain) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := models.ContributionStatus(c.Query("status"))
		entries, err := h.contributions.List(c.Request.Context(), d, status)
		if err != nil {
			respondError(c, err)
			return
		}
		// If nothing matched, return empty array not null
		if entries == nil {
			entries = []models.Entry{}
		}
		c.JSON(http.StatusOK, entries)
	}
}

func (h *ContributionHandler) Get(d contribution.Domain) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		entry, err := h.contributions.Get(c.Request.Context(), d, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// Approval reports how close a contribution is to approval, under the active
// policy or the one named by ?policy=.
func (h *ContributionHandler) Approval(d contribution.Domain) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		status, err := h.contributions.ApprovalStatus(c.Request.Context(), d, id, c.Query("policy"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}
