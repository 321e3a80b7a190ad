package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"pricewatch/internal/domain/model"
)

// Reader is the read side served over HTTP.
type Reader interface {
	Items(ctx context.Context, kind model.ItemKind, after string, limit int) ([]*model.ItemWithChange, error)
	RecentlyUpdated(ctx context.Context, kind model.ItemKind, limit int) ([]*model.ItemWithChange, error)
	Item(ctx context.Context, id string) (*model.Item, error)
	History(ctx context.Context, itemID string, limit int) ([]*model.PriceHistoryEntry, error)
	Maintenance(ctx context.Context) (*model.MaintenanceMode, error)
	Movers(ctx context.Context, kind model.ItemKind) ([]*model.Mover, error)
}

type Server struct {
	reader Reader
	engine *gin.Engine
}

func New(reader Reader) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{reader: reader, engine: engine}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	api.GET("/items", s.listItems)
	api.GET("/items/recent", s.recentItems)
	api.GET("/items/:id/history", s.itemHistory)
	api.GET("/movers", s.movers)
	api.GET("/maintenance", s.maintenance)
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ========== handlers ==========

func (s *Server) listItems(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	items, err := s.reader.Items(c.Request.Context(), kind, c.Query("after"), intParam(c, "limit"))
	if err != nil {
		internalError(c, err)
		return
	}
	next := ""
	if n := len(items); n > 0 {
		next = items[n-1].ID
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "next": next})
}

func (s *Server) recentItems(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	items, err := s.reader.RecentlyUpdated(c.Request.Context(), kind, intParam(c, "limit"))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) itemHistory(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.reader.Item(c.Request.Context(), id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		internalError(c, err)
		return
	}
	entries, err := s.reader.History(c.Request.Context(), id, intParam(c, "limit"))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item_id": id, "history": entries})
}

func (s *Server) movers(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	movers, err := s.reader.Movers(c.Request.Context(), kind)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movers": movers})
}

func (s *Server) maintenance(c *gin.Context) {
	m, err := s.reader.Maintenance(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func kindParam(c *gin.Context) (model.ItemKind, bool) {
	kind, err := model.ParseKind(c.Query("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return kind, true
}

// intParam returns 0 for a missing or malformed value; callers clamp.
func intParam(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}

func internalError(c *gin.Context, err error) {
	log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}
