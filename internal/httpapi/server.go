// Package httpapi exposes the retrieval engine over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/placementarchive/expindex/internal/retrieval"
	"github.com/placementarchive/expindex/internal/store"
	"github.com/placementarchive/expindex/internal/textindex"
)

// Request validation bounds. Years outside the window are taken for
// typos rather than filters that silently match nothing.
const (
	minQuestionLen = 3
	maxQuestionLen = 500
	minYear        = 2015
	maxYear        = 2030
	maxTopK        = 20

	embedTimeout = 2 * time.Minute
)

// Config holds the listen address
type Config struct {
	Host string
	Port int
}

// Server wires the engine, the record store and the keyword index
// into an echo application. text and db may be nil; their endpoints
// degrade accordingly.
type Server struct {
	echo   *echo.Echo
	engine *retrieval.Engine
	source retrieval.ExperienceSource
	text   *textindex.Index
	db     *store.DB
	logger *log.Logger
	config *Config
}

// NewServer creates the HTTP server and registers all routes
func NewServer(engine *retrieval.Engine, source retrieval.ExperienceSource, text *textindex.Index, db *store.DB, logger *log.Logger, cfg *Config) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if source == nil {
		return nil, fmt.Errorf("experience source is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8000}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Printf("http %s %s status=%d duration=%s",
				c.Request().Method, c.Request().RequestURI, c.Response().Status, time.Since(start))
			return err
		}
	})

	s := &Server{
		echo:   e,
		engine: engine,
		source: source,
		text:   text,
		db:     db,
		logger: logger,
		config: cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")
	api.POST("/query", s.handleQuery)
	api.POST("/embed", s.handleEmbed)
	api.DELETE("/embed/:id", s.handleRemove)
	api.GET("/similar", s.handleSimilar)
	api.GET("/trends", s.handleTrends)
	api.POST("/reindex", s.handleReindex)
	api.GET("/stats", s.handleStats)
	api.GET("/search", s.handleSearch)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Ready:  s.engine.Stats().Ready,
	})
}

func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if n := utf8.RuneCountInString(req.Question); n < minQuestionLen || n > maxQuestionLen {
		return badRequest(fmt.Sprintf("question must be %d to %d characters", minQuestionLen, maxQuestionLen))
	}
	if req.Year != 0 && (req.Year < minYear || req.Year > maxYear) {
		return badRequest(fmt.Sprintf("year must be between %d and %d", minYear, maxYear))
	}
	if req.TopK != 0 && (req.TopK < 1 || req.TopK > maxTopK) {
		return badRequest(fmt.Sprintf("top_k must be between 1 and %d", maxTopK))
	}

	resp, err := s.engine.Query(c.Request().Context(), retrieval.QueryRequest{
		Text:    req.Question,
		Company: req.Company,
		Year:    req.Year,
		TopK:    req.TopK,
	})
	if err != nil {
		return s.engineError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// handleEmbed checks the record exists then indexes it in the
// background: embedding calls a remote provider and the caller only
// needs the acknowledgement.
func (s *Server) handleEmbed(c echo.Context) error {
	var req EmbedRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if req.ExperienceID == "" {
		return badRequest("experience_id is required")
	}

	if _, err := s.source.GetByID(c.Request().Context(), req.ExperienceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "experience not found")
		}
		return err
	}

	id := req.ExperienceID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), embedTimeout)
		defer cancel()
		if err := s.engine.AddExperience(ctx, id); err != nil {
			s.logger.Printf("background indexing of %s failed: %v", id, err)
		}
	}()

	return c.JSON(http.StatusAccepted, EmbedResponse{Status: "accepted", ExperienceID: id})
}

func (s *Server) handleRemove(c echo.Context) error {
	id := c.Param("id")
	if err := s.engine.RemoveExperience(id); err != nil {
		return s.engineError(err)
	}
	return c.JSON(http.StatusOK, EmbedResponse{Status: "removed", ExperienceID: id})
}

func (s *Server) handleSimilar(c echo.Context) error {
	id := c.QueryParam("experience_id")
	if id == "" {
		return badRequest("experience_id is required")
	}
	topK, err := queryInt(c, "top_k", 0)
	if err != nil {
		return badRequest("top_k must be an integer")
	}
	if topK > maxTopK {
		return badRequest(fmt.Sprintf("top_k must be at most %d", maxTopK))
	}

	similar, err := s.engine.FindSimilar(c.Request().Context(), id, topK)
	if err != nil {
		return s.engineError(err)
	}
	return c.JSON(http.StatusOK, SimilarResponse{ExperienceID: id, Similar: similar})
}

func (s *Server) handleTrends(c echo.Context) error {
	year, err := queryInt(c, "year", 0)
	if err != nil {
		return badRequest("year must be an integer")
	}
	if year != 0 && (year < minYear || year > maxYear) {
		return badRequest(fmt.Sprintf("year must be between %d and %d", minYear, maxYear))
	}

	report, err := s.engine.AnalyzeTrends(c.QueryParam("company"), year)
	if err != nil {
		return s.engineError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleReindex(c echo.Context) error {
	stats, err := s.engine.ReindexAll(c.Request().Context(), nil)
	if err != nil {
		return s.engineError(err)
	}
	return c.JSON(http.StatusOK, ReindexResponse{
		Status:  "completed",
		Records: stats.Records,
		Indexed: stats.Indexed,
		Failed:  stats.Failed,
		Chunks:  stats.Chunks,
	})
}

func (s *Server) handleStats(c echo.Context) error {
	resp := StatsResponse{Index: s.engine.Stats()}
	if s.db != nil {
		dbStats, err := s.db.Stats()
		if err != nil {
			s.logger.Printf("failed to collect database stats: %v", err)
		} else {
			resp.Database = &DatabaseStats{
				Experiences: dbStats.ExperienceCount,
				Approved:    dbStats.ApprovedCount,
				Questions:   dbStats.QuestionCount,
				SizeBytes:   dbStats.SizeBytes,
			}
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSearch(c echo.Context) error {
	if s.text == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "keyword search is disabled")
	}
	q := c.QueryParam("q")
	if q == "" {
		return badRequest("q is required")
	}
	topK, err := queryInt(c, "top_k", 10)
	if err != nil {
		return badRequest("top_k must be an integer")
	}

	hits, err := s.text.Search(q, topK)
	if err != nil {
		return err
	}
	if hits == nil {
		hits = []textindex.KeywordHit{}
	}
	return c.JSON(http.StatusOK, hits)
}

// engineError maps engine failures to HTTP statuses
func (s *Server) engineError(err error) error {
	switch {
	case errors.Is(err, retrieval.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "experience not found")
	case errors.Is(err, retrieval.ErrIndexUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "index is not ready, retry shortly")
	default:
		return err
	}
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// Start blocks serving HTTP until Shutdown or a listener error
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Printf("listening on %s", addr)
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
