package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
	"github.com/emilythestrangee/community-directory/backend/internal/approval"
	"github.com/emilythestrangee/community-directory/backend/internal/content"
	"github.com/emilythestrangee/community-directory/backend/internal/contribution"
	"github.com/emilythestrangee/community-directory/backend/internal/middleware"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
	"github.com/emilythestrangee/community-directory/backend/internal/reaction"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSignals struct {
	lastUser string
	lastKey  reaction.Key
	lastLike bool
	outcome  reaction.Outcome
	tally    reaction.Tally
	err      error
}

func (f *fakeSignals) Set(_ context.Context, userID string, key reaction.Key, isLike bool) (reaction.Result[models.Signal], reaction.Tally, error) {
	f.lastUser, f.lastKey, f.lastLike = userID, key, isLike
	if f.err != nil {
		return reaction.Result[models.Signal]{}, reaction.Tally{}, f.err
	}
	row := &models.Signal{ID: 1, UserID: userID, TargetType: key.Type, TargetID: key.ID, IsLike: isLike}
	return reaction.Result[models.Signal]{Outcome: f.outcome, Row: row}, f.tally, nil
}

func (f *fakeSignals) Remove(_ context.Context, userID string, key reaction.Key) error {
	f.lastUser, f.lastKey = userID, key
	return f.err
}

func (f *fakeSignals) Counts(_ context.Context, key reaction.Key) (reaction.Tally, error) {
	f.lastKey = key
	return f.tally, f.err
}

type fakeContributions struct {
	actor    contribution.Actor
	domain   contribution.Domain
	id       uint
	payload  models.Payload
	voteType models.VoteType
	policy   string
	status   models.ContributionStatus

	vote  contribution.VoteResult
	entry models.Entry
	list  []models.Entry
	appr  approval.Status
	err   error
}

func (f *fakeContributions) Submit(_ context.Context, actor contribution.Actor, d contribution.Domain, payload models.Payload) (models.Entry, error) {
	f.actor, f.domain, f.payload = actor, d, payload
	return f.entry, f.err
}

func (f *fakeContributions) SubmitEdit(_ context.Context, actor contribution.Actor, d contribution.Domain, originalID uint, payload models.Payload) (models.Entry, error) {
	f.actor, f.domain, f.id, f.payload = actor, d, originalID, payload
	return f.entry, f.err
}

func (f *fakeContributions) SubmitDelete(_ context.Context, actor contribution.Actor, d contribution.Domain, originalID uint) (models.Entry, error) {
	f.actor, f.domain, f.id = actor, d, originalID
	return f.entry, f.err
}

func (f *fakeContributions) CastVote(_ context.Context, actor contribution.Actor, d contribution.Domain, id uint, voteType models.VoteType) (contribution.VoteResult, error) {
	f.actor, f.domain, f.id, f.voteType = actor, d, id, voteType
	return f.vote, f.err
}

func (f *fakeContributions) RetractVote(_ context.Context, actor contribution.Actor, voteID uint) (*models.Vote, error) {
	f.actor, f.id = actor, voteID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Vote{ID: voteID}, nil
}

func (f *fakeContributions) ApprovalStatus(_ context.Context, d contribution.Domain, id uint, policyName string) (approval.Status, error) {
	f.domain, f.id, f.policy = d, id, policyName
	return f.appr, f.err
}

func (f *fakeContributions) Get(_ context.Context, d contribution.Domain, id uint) (models.Entry, error) {
	f.domain, f.id = d, id
	return f.entry, f.err
}

func (f *fakeContributions) List(_ context.Context, d contribution.Domain, status models.ContributionStatus) ([]models.Entry, error) {
	f.domain, f.status = d, status
	return f.list, f.err
}

func (f *fakeContributions) ForceApprove(_ context.Context, actor contribution.Actor, d contribution.Domain, id uint) (models.Entry, error) {
	f.actor, f.domain, f.id = actor, d, id
	return f.entry, f.err
}

func (f *fakeContributions) ForceDelete(_ context.Context, actor contribution.Actor, d contribution.Domain, id uint) error {
	f.actor, f.domain, f.id = actor, d, id
	return f.err
}

type fakeContent struct {
	userID string
	err    error
}

func (f *fakeContent) CreateProject(_ context.Context, userID string, in content.ProjectInput) (*models.Project, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Project{ID: 1, Title: in.Title, SubmittedBy: userID}, nil
}

func (f *fakeContent) GetProject(_ context.Context, id uint) (*models.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Project{ID: id, Title: "p"}, nil
}

func (f *fakeContent) CreateIdea(_ context.Context, userID string, in content.IdeaInput) (*models.Idea, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Idea{ID: 1, Title: in.Title, SubmittedBy: userID}, nil
}

func (f *fakeContent) GetIdea(_ context.Context, id uint) (*models.Idea, error) {
	if f.err != nil {
		return nil, apperr.NotFound("idea %d not found", id)
	}
	return &models.Idea{ID: id, Title: "i"}, nil
}

// asUser stands in for middleware.Auth.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	}
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
