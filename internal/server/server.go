package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/emilythestrangee/community-directory/backend/internal/config"
	"github.com/emilythestrangee/community-directory/backend/internal/contribution"
	"github.com/emilythestrangee/community-directory/backend/internal/handlers"
	"github.com/emilythestrangee/community-directory/backend/internal/logging"
	"github.com/emilythestrangee/community-directory/backend/internal/middleware"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
)

// HealthChecker is implemented by database.Service.
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Server struct {
	cfg     config.Config
	db      HealthChecker
	handler *handlers.Handler
	log     zerolog.Logger
}

// signalTargets maps each likeable collection's path to its target type.
var signalTargets = []struct {
	path   string
	target models.TargetType
}{
	{"projects", models.TargetProject},
	{"ideas", models.TargetIdea},
	{"people", models.TargetPerson},
	{"resources", models.TargetResource},
	{"apps", models.TargetApp},
}

func New(cfg config.Config, db HealthChecker, handler *handlers.Handler, log zerolog.Logger) *Server {
	return &Server{cfg: cfg, db: db, handler: handler, log: log}
}

// HTTPServer wraps the router in an *http.Server listening on the configured
// port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), logging.RequestLogger(s.log))

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	r.GET("/health", s.health)

	h := s.handler
	api := r.Group("/api")
	protected := api.Group("")
	protected.Use(middleware.Auth([]byte(s.cfg.JWTSecret)))

	// Likes on everything that can be liked
	for _, st := range signalTargets {
		api.GET("/"+st.path+"/:id/likes", h.Signal.Counts(st.target))
		protected.POST("/"+st.path+"/:id/like", h.Signal.Like(st.target))
		protected.DELETE("/"+st.path+"/:id/like", h.Signal.Unlike(st.target))
	}

	// Directory contributions
	for _, d := range contribution.Domains {
		base := "/" + string(d)
		api.GET(base, h.Contribution.List(d))
		api.GET(base+"/:id", h.Contribution.Get(d))
		api.GET(base+"/:id/approval", h.Contribution.Approval(d))
		protected.POST(base, h.Contribution.Submit(d))
		protected.POST(base+"/:id/edit", h.Contribution.SubmitEdit(d))
		protected.POST(base+"/:id/delete", h.Contribution.SubmitDelete(d))
	}

	// Votes on pending contributions
	protected.POST("/contribution/votes", h.Vote.CastVote)
	protected.DELETE("/contribution/votes/:voteId", h.Vote.RetractVote)

	// Arena content
	api.GET("/projects/:id", h.Content.GetProject)
	api.GET("/ideas/:id", h.Content.GetIdea)
	protected.POST("/projects", h.Content.CreateProject)
	protected.POST("/ideas", h.Content.CreateIdea)

	// Admin overrides
	admin := protected.Group("/admin")
	admin.Use(middleware.RequireAdmin(s.cfg.IsAdmin))
	{
		admin.POST("/:domain/:id/approve", h.Admin.ForceApprove)
		admin.DELETE("/:domain/:id", h.Admin.ForceDelete)
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	stats := s.db.Health(c.Request.Context())
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
