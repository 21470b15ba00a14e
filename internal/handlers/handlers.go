package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
	"github.com/emilythestrangee/community-directory/backend/internal/approval"
	"github.com/emilythestrangee/community-directory/backend/internal/content"
	"github.com/emilythestrangee/community-directory/backend/internal/contribution"
	"github.com/emilythestrangee/community-directory/backend/internal/middleware"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
	"github.com/emilythestrangee/community-directory/backend/internal/reaction"
)

// SignalService is implemented by *signal.Service.
type SignalService interface {
	Set(ctx context.Context, userID string, key reaction.Key, isLike bool) (reaction.Result[models.Signal], reaction.Tally, error)
	Remove(ctx context.Context, userID string, key reaction.Key) error
	Counts(ctx context.Context, key reaction.Key) (reaction.Tally, error)
}

// ContributionService is implemented by *contribution.Service.
type ContributionService interface {
	Submit(ctx context.Context, actor contribution.Actor, d contribution.Domain, payload models.Payload) (models.Entry, error)
	SubmitEdit(ctx context.Context, actor contribution.Actor, d contribution.Domain, originalID uint, payload models.Payload) (models.Entry, error)
	SubmitDelete(ctx context.Context, actor contribution.Actor, d contribution.Domain, originalID uint) (models.Entry, error)
	CastVote(ctx context.Context, actor contribution.Actor, d contribution.Domain, id uint, voteType models.VoteType) (contribution.VoteResult, error)
	RetractVote(ctx context.Context, actor contribution.Actor, voteID uint) (*models.Vote, error)
	ApprovalStatus(ctx context.Context, d contribution.Domain, id uint, policyName string) (approval.Status, error)
	Get(ctx context.Context, d contribution.Domain, id uint) (models.Entry, error)
	List(ctx context.Context, d contribution.Domain, status models.ContributionStatus) ([]models.Entry, error)
	ForceApprove(ctx context.Context, actor contribution.Actor, d contribution.Domain, id uint) (models.Entry, error)
	ForceDelete(ctx context.Context, actor contribution.Actor, d contribution.Domain, id uint) error
}

// ContentService is implemented by *content.Service.
type ContentService interface {
	CreateProject(ctx context.Context, userID string, in content.ProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, id uint) (*models.Project, error)
	CreateIdea(ctx context.Context, userID string, in content.IdeaInput) (*models.Idea, error)
	GetIdea(ctx context.Context, id uint) (*models.Idea, error)
}

// Handler combines all handler types
type Handler struct {
	Signal       *SignalHandler
	Vote         *VoteHandler
	Contribution *ContributionHandler
	Admin        *AdminHandler
	Content      *ContentHandler
}

// NewHandler creates a unified handler with all sub-handlers. isAdmin decides
// which authenticated users may use the admin overrides.
func NewHandler(signals SignalService, contributions ContributionService, arena ContentService, isAdmin func(userID string) bool) *Handler {
	return &Handler{
		Signal:       NewSignalHandler(signals),
		Vote:         NewVoteHandler(contributions, isAdmin),
		Contribution: NewContributionHandler(contributions, isAdmin),
		Admin:        NewAdminHandler(contributions, isAdmin),
		Content:      NewContentHandler(arena),
	}
}

type actorResolver func(userID string) bool

// actor builds the caller identity from the Auth middleware's user id.
func (r actorResolver) actor(c *gin.Context) (contribution.Actor, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return contribution.Actor{}, false
	}
	return contribution.Actor{UserID: userID, Admin: r != nil && r(userID)}, true
}

// respondError writes err as a JSON error. Internal errors are attached to
// the gin context so the request logger records them.
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 0)
	if err != nil || id == 0 {
		respondError(c, apperr.Validation("invalid %s %q", param, c.Param(param)))
		return 0, false
	}
	return uint(id), true
}
