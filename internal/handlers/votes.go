package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
	"github.com/emilythestrangee/community-directory/backend/internal/contribution"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
)

type VoteHandler struct {
	contributions ContributionService
	actors        actorResolver
}

func NewVoteHandler(contributions ContributionService, isAdmin func(userID string) bool) *VoteHandler {
	return &VoteHandler{contributions: contributions, actors: actorResolver(isAdmin)}
}

type voteInput struct {
	PeopleID   *uint           `json:"peopleId"`
	ResourceID *uint           `json:"resourceId"`
	AppID      *uint           `json:"appId"`
	VoteType   models.VoteType `json:"voteType"`
}

// target picks the one submission the vote is for.
func (in voteInput) target() (contribution.Domain, uint, error) {
	var (
		d   contribution.Domain
		id  uint
		set int
	)
	for _, ref := range []struct {
		domain contribution.Domain
		id     *uint
	}{
		{contribution.People, in.PeopleID},
		{contribution.Resources, in.ResourceID},
		{contribution.Apps, in.AppID},
	} {
		if ref.id != nil {
			d, id = ref.domain, *ref.id
			set++
		}
	}
	if set != 1 {
		return "", 0, apperr.Validation("exactly one of peopleId, resourceId or appId must be set")
	}
	if id == 0 {
		return "", 0, apperr.Validation("invalid submission id")
	}
	return d, id, nil
}

// CastVote toggles the caller's vote on a pending contribution (PROTECTED).
// A vote that satisfies the approval policy approves the contribution before
// the response is written.
func (h *VoteHandler) CastVote(c *gin.Context) {
	actor, ok := h.actors.actor(c)
	if !ok {
		return
	}

	var input voteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	d, id, err := input.target()
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.contributions.CastVote(c.Request.Context(), actor, d, id, input.VoteType)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if res.Vote == nil {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"vote":           res.Vote,
		"approvalStatus": res.Status,
		"approved":       res.Approved,
	})
}

// RetractVote deletes one of the caller's votes (PROTECTED).
func (h *VoteHandler) RetractVote(c *gin.Context) {
	actor, ok := h.actors.actor(c)
	if !ok {
		return
	}
	voteID, ok := parseID(c, "voteId")
	if !ok {
		return
	}

	if _, err := h.contributions.RetractVote(c.Request.Context(), actor, voteID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vote removed"})
}
