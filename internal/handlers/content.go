package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/community-directory/backend/internal/content"
	"github.com/emilythestrangee/community-directory/backend/internal/middleware"
)

type ContentHandler struct {
	arena ContentService
}

func NewContentHandler(arena ContentService) *ContentHandler {
	return &ContentHandler{arena: arena}
}

// CreateProject posts a project (PROTECTED - requires authentication)
func (h *ContentHandler) CreateProject(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	var input content.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	project, err := h.arena.CreateProject(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// GetProject returns a single project by ID
func (h *ContentHandler) GetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, err := h.arena.GetProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// CreateIdea posts an idea (PROTECTED - requires authentication)
func (h *ContentHandler) CreateIdea(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	var input content.IdeaInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	idea, err := h.arena.CreateIdea(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, idea)
}

// GetIdea returns a single idea by ID
func (h *ContentHandler) GetIdea(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	idea, err := h.arena.GetIdea(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, idea)
}
