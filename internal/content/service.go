// Package content stores projects and ideas. They are posted without
// moderation and only take likes.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type ProjectInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type IdeaInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Service) CreateProject(ctx context.Context, userID string, in ProjectInput) (*models.Project, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	p := &models.Project{Title: title, Description: in.Description, URL: in.URL, SubmittedBy: userID}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

func (s *Service) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	if err := s.take(ctx, &p, "project", id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) CreateIdea(ctx context.Context, userID string, in IdeaInput) (*models.Idea, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	i := &models.Idea{Title: title, Description: in.Description, SubmittedBy: userID}
	if err := s.db.WithContext(ctx).Create(i).Error; err != nil {
		return nil, fmt.Errorf("create idea: %w", err)
	}
	return i, nil
}

func (s *Service) GetIdea(ctx context.Context, id uint) (*models.Idea, error) {
	var i models.Idea
	if err := s.take(ctx, &i, "idea", id); err != nil {
		return nil, err
	}
	return &i, nil
}

func (s *Service) take(ctx context.Context, dst any, what string, id uint) error {
	err := s.db.WithContext(ctx).Take(dst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s %d not found", what, id)
	}
	if err != nil {
		return fmt.Errorf("get %s %d: %w", what, id, err)
	}
	return nil
}
