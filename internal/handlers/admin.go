package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/community-directory/backend/internal/contribution"
)

// AdminHandler serves the moderation overrides. Routes are mounted behind
// middleware.RequireAdmin; the service checks the actor again.
type AdminHandler struct {
	contributions ContributionService
	actors        actorResolver
}

func NewAdminHandler(contributions ContributionService, isAdmin func(userID string) bool) *AdminHandler {
	return &AdminHandler{contributions: contributions, actors: actorResolver(isAdmin)}
}

func (h *AdminHandler) target(c *gin.Context) (contribution.Actor, contribution.Domain, uint, bool) {
	actor, ok := h.actors.actor(c)
	if !ok {
		return contribution.Actor{}, "", 0, false
	}
	d, err := contribution.ParseDomain(c.Param("domain"))
	if err != nil {
		respondError(c, err)
		return contribution.Actor{}, "", 0, false
	}
	id, ok := parseID(c, "id")
	if !ok {
		return contribution.Actor{}, "", 0, false
	}
	return actor, d, id, true
}

// ForceApprove approves a contribution without waiting for votes (ADMIN).
func (h *AdminHandler) ForceApprove(c *gin.Context) {
	actor, d, id, ok := h.target(c)
	if !ok {
		return
	}
	entry, err := h.contributions.ForceApprove(c.Request.Context(), actor, d, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contribution approved", "entry": entry})
}

// ForceDelete rejects a pending contribution or deletes an approved entry
// (ADMIN).
func (h *AdminHandler) ForceDelete(c *gin.Context) {
	actor, d, id, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.contributions.ForceDelete(c.Request.Context(), actor, d, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted"})
}
