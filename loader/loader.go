package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/yaqeen/forecastcenter/frame"
	"golang.org/x/sync/singleflight"
)

var ErrOutsideDataDir = errors.New("path is outside the data directory")

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// Metrics counts cache lookups by result and times file decodes.
type Metrics struct {
	Lookups       *prometheus.CounterVec
	DecodeSeconds prometheus.Histogram
}

// NewMetrics creates the cache metrics and registers them with reg. A nil reg creates
// unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Lookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "forecastcenter",
				Subsystem: "loader",
				Name:      "lookups_total",
				Help:      "Data file lookups by result (hit, miss, error).",
			},
			[]string{"result"},
		),
		DecodeSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "forecastcenter",
				Subsystem: "loader",
				Name:      "decode_seconds",
				Help:      "Time spent reading and decoding a data file.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
		),
	}
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Entries int   `json:"entries"`
	Decodes int64 `json:"decodes"`
}

// Cache maps data file paths to decoded frames. Entries are added on first load and kept
// for the life of the process; there is no eviction or invalidation. Failed loads are not
// cached. Frames handed out are shared and must not be modified.
type Cache struct {
	dir     string
	logger  *slog.Logger
	metrics *Metrics

	mu     sync.RWMutex
	frames map[string]*frame.Frame
	flight singleflight.Group

	decodes atomic.Int64
}

// New returns a cache reading files relative to dir. logger and metrics may be nil.
func New(dir string, logger *slog.Logger, metrics *Metrics) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Cache{
		dir:     dir,
		logger:  logger,
		metrics: metrics,
		frames:  make(map[string]*frame.Frame),
	}
}

// Dir returns the directory paths are resolved against.
func (c *Cache) Dir() string {
	return c.dir
}

// Key cleans a data file path into its cache key. Absolute paths and paths leaving the
// data directory are rejected.
func Key(name string) (string, error) {
	key := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(key) || key == ".." || strings.HasPrefix(key, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q, %w", name, ErrOutsideDataDir)
	}
	return key, nil
}

// Load returns the frame for name, decoding the file on first use. Concurrent first loads
// of the same file share one decode. If ctx is done before the decode finishes, Load returns
// ctx.Err() and the decode still completes for later callers.
func (c *Cache) Load(ctx context.Context, name string) (*frame.Frame, error) {
	key, err := Key(name)
	if err != nil {
		c.metrics.Lookups.WithLabelValues(resultError).Inc()
		return nil, err
	}

	if f, ok := c.get(key); ok {
		c.metrics.Lookups.WithLabelValues(resultHit).Inc()
		return f, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.metrics.Lookups.WithLabelValues(resultMiss).Inc()

	ch := c.flight.DoChan(key, func() (interface{}, error) {
		return c.load(key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.metrics.Lookups.WithLabelValues(resultError).Inc()
			return nil, res.Err
		}
		return res.Val.(*frame.Frame), nil
	}
}

func (c *Cache) get(key string) (*frame.Frame, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.frames[key]
	return f, ok
}

func (c *Cache) load(key string) (*frame.Frame, error) {
	// an earlier flight may have stored the frame after our lookup
	if f, ok := c.get(key); ok {
		return f, nil
	}

	format, err := frame.FormatFromExt(filepath.Ext(key))
	if err != nil {
		return nil, fmt.Errorf("unable to load %s, %w", key, err)
	}

	start := time.Now()
	file, err := os.Open(filepath.Join(c.dir, key))
	if err != nil {
		return nil, fmt.Errorf("unable to open %s, %w", key, err)
	}
	defer file.Close()

	f, err := frame.Decode(file, format)
	if err != nil {
		return nil, fmt.Errorf("unable to decode %s, %w", key, err)
	}
	elapsed := time.Since(start)
	c.metrics.DecodeSeconds.Observe(elapsed.Seconds())
	c.decodes.Add(1)

	c.mu.Lock()
	c.frames[key] = f
	c.mu.Unlock()

	c.logger.Debug("loaded data file",
		slog.String("path", key),
		slog.Int("rows", f.Len()),
		slog.Any("columns", f.Names()),
		slog.Duration("elapsed", elapsed),
	)
	return f, nil
}

// Stats returns the number of cached frames and the number of decodes performed.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Entries: len(c.frames),
		Decodes: c.decodes.Load(),
	}
}
