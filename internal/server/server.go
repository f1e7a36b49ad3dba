// Package server exposes the inventory over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yairfalse/idler/internal/aggregator"
	"github.com/yairfalse/idler/internal/plugin"
	"github.com/yairfalse/idler/pkg/resource"
)

const (
	allowedMethods   = "GET, DELETE, OPTIONS"
	genericErrorText = "Internal server error"
)

// Inventory is what the server needs from the aggregator.
type Inventory interface {
	List(ctx context.Context) (resource.Inventory, error)
	Delete(ctx context.Context, id, typeHint string) (string, error)
}

// Info describes the running aggregator for /healthz.
type Info struct {
	Provider string
	Region   string
	Account  string
}

// Server serves the inventory API.
type Server struct {
	inv       Inventory
	info      Info
	metrics   http.Handler
	startTime time.Time
	engine    *gin.Engine
	http      *http.Server
}

// New builds the server. metrics may be nil.
func New(addr string, inv Inventory, info Info, metrics http.Handler) *Server {
	s := &Server{
		inv:       inv,
		info:      info,
		metrics:   metrics,
		startTime: time.Now(),
	}
	s.engine = s.routes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.RedirectTrailingSlash = false

	r.Use(requestLogger(), recovery(), preflight(), defaultCORSHeaders(), cors.New(corsConfig()))

	r.GET("/resources", s.handleList)
	r.DELETE("/resources", s.handleMissingID)
	r.DELETE("/resources/:id", s.handleDelete)
	r.GET("/healthz", s.handleHealthz)
	r.GET("/readyz", s.handleReadyz)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method == http.MethodDelete && strings.TrimRight(c.Request.URL.Path, "/") == "/resources" {
			s.handleMissingID(c)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return r
}

func corsConfig() cors.Config {
	return cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Content-Type"},
		MaxAge:          12 * time.Hour,
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type listResponse struct {
	Resources []resource.Resource `json:"resources"`
	Warnings  []resource.Warning  `json:"warnings,omitempty"`
}

func (s *Server) handleList(c *gin.Context) {
	inv, err := s.inv.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	resources := inv.Resources
	if resources == nil {
		resources = []resource.Resource{}
	}
	c.JSON(http.StatusOK, listResponse{Resources: resources, Warnings: inv.Warnings})
}

func (s *Server) handleDelete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		s.handleMissingID(c)
		return
	}

	msg, err := s.inv.Delete(c.Request.Context(), id, c.Query("type"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (s *Server) handleMissingID(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Resource ID is required"})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"region":         s.info.Region,
		"account":        s.info.Account,
	})
}

func (s *Server) handleReadyz(c *gin.Context) {
	if len(plugin.Names()) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no plugins registered"})
		return
	}
	if s.info.Provider != "" {
		if _, ok := plugin.Get(s.info.Provider); !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "plugin " + s.info.Provider + " not registered"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, aggregator.ErrClientInput) {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": errorText(err)})
}

func errorText(err error) string {
	if err == nil || err.Error() == "" {
		return genericErrorText
	}
	return err.Error()
}
