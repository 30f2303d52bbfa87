package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yaqeen/forecastcenter/config"
)

const requestIDHeader = "X-Request-ID"

// Server serves the dashboard pages, the catalog images and the composed charts as JSON.
type Server struct {
	dash     *Dashboard
	renderer *Renderer
	engine   *gin.Engine
	links    Links
}

// NewServer builds the gin router. A nil gatherer disables the /metrics route.
func NewServer(d *Dashboard, r *Renderer, mode string, gatherer prometheus.Gatherer) *Server {
	if mode != "" {
		gin.SetMode(mode)
	}
	s := &Server{
		dash:     d,
		renderer: r,
		engine:   gin.New(),
		links:    ServerLinks(),
	}
	s.engine.Use(gin.Recovery(), s.observe)

	s.engine.GET("/", s.handleHome)
	s.engine.GET("/indicators", s.handleIndicators)
	s.engine.GET("/tasi", s.handleTASI)
	s.engine.GET("/images/:label", s.handleImage)
	s.engine.GET("/api/charts/:metric", s.handleChart)
	s.engine.GET("/healthz", s.handleHealth)
	if gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on cfg.Addr until ctx is done, then shuts down gracefully within
// cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: cfg.ReadTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.dash.logger.Info("starting server", slog.String("address", cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server stopped, %w", err)
	case <-ctx.Done():
	}

	s.dash.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to shut down server, %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header(requestIDHeader, requestID)
	return requestID
}

// observe tags every request with an ID, logs it and records its latency.
func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	requestID := getOrCreateRequestID(c)

	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	code := c.Writer.Status()
	elapsed := time.Since(start)
	s.dash.metrics.Requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	s.dash.metrics.RequestSeconds.WithLabelValues(route).Observe(elapsed.Seconds())

	level := slog.LevelDebug
	if code >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.dash.logger.Log(c.Request.Context(), level, "request",
		slog.String("request_id", requestID),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", code),
		slog.Duration("elapsed", elapsed),
	)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrUnknownMetric), errors.Is(err, ErrUnknownImage):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	c.String(statusOf(err), err.Error())
}

func (s *Server) page(c *gin.Context, name string, view View) {
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, name, view); err != nil {
		s.dash.logger.Error("unable to render page",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) handleHome(c *gin.Context) {
	s.page(c, PageHome, s.dash.HomeView(s.links))
}

func (s *Server) handleIndicators(c *gin.Context) {
	view, err := s.dash.IndicatorsView(c.Request.Context(), s.links)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.page(c, PageIndicators, view)
}

func (s *Server) handleTASI(c *gin.Context) {
	view, err := s.dash.TASIView(c.Query("month"), s.links)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.page(c, PageTASI, view)
}

func (s *Server) handleImage(c *gin.Context) {
	path, err := s.dash.catalog.Lookup(c.Param("label"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		s.dash.logger.Warn("image missing",
			slog.String("label", c.Param("label")),
			slog.String("path", path),
		)
		c.String(http.StatusNotFound, "image %s not found", c.Param("label"))
		return
	} else if err != nil {
		s.fail(c, err)
		return
	}
	c.File(path)
}

func (s *Server) handleChart(c *gin.Context) {
	lc, err := s.dash.Chart(c.Request.Context(), c.Param("metric"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeJSON(c, lc)
}

func (s *Server) handleHealth(c *gin.Context) {
	s.writeJSON(c, gin.H{
		"status": "ok",
		"cache":  s.dash.cache.Stats(),
	})
}

func (s *Server) writeJSON(c *gin.Context, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}
