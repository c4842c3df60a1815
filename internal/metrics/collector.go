package metrics

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thoth-station/resultstore/pkg/errors"
)

// Collector records result storage metrics
type Collector struct {
	mu       sync.RWMutex
	config   *Config
	registry *prometheus.Registry

	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	documentSize      *prometheus.HistogramVec
	errorCounter      *prometheus.CounterVec

	operations map[string]*OperationMetrics
	lastReset  time.Time

	server     *http.Server
	listenAddr string
}

// Config represents metrics configuration
type Config struct {
	Enabled   bool              `yaml:"enabled"`
	Addr      string            `yaml:"addr"`
	Path      string            `yaml:"path"`
	Namespace string            `yaml:"namespace"`
	Labels    map[string]string `yaml:"labels"`
}

// OperationMetrics tracks metrics for a specific operation type
type OperationMetrics struct {
	Count         int64         `json:"count"`
	Errors        int64         `json:"errors"`
	TotalDuration time.Duration `json:"total_duration"`
	TotalSize     int64         `json:"total_size"`
	LastOperation time.Time     `json:"last_operation"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// NewCollector creates a new metrics collector
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = &Config{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "resultstore",
		}
	}
	if config.Path == "" {
		config.Path = "/metrics"
	}

	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	collector := &Collector{
		config:     config,
		registry:   prometheus.NewRegistry(),
		operations: make(map[string]*OperationMetrics),
		lastReset:  time.Now(),
	}

	collector.initMetrics()
	if err := collector.registerMetrics(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternalError, "failed to register metrics", err).
			WithComponent("metrics")
	}

	return collector, nil
}

// Registry returns the collector's registry, or nil when disabled.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler returns an HTTP handler serving the collector's registry.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Start serves the metrics endpoint on config.Addr in the background until
// ctx is done or Stop is called. It is a no-op when disabled or when no
// address is configured.
func (c *Collector) Start(ctx context.Context) error {
	if c == nil || !c.config.Enabled || c.config.Addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", c.config.Addr)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternalError, "failed to listen for metrics", err).
			WithComponent("metrics").
			WithContext("addr", c.config.Addr)
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, c.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}

	c.mu.Lock()
	c.server = server
	c.listenAddr = ln.Addr().String()
	c.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Default().Error("metrics server failed", "component", "metrics", "addr", c.config.Addr, "error", err)
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if c.server == server {
				c.server = nil
				c.listenAddr = ""
			}
			c.mu.Unlock()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		case <-stopped:
		}
	}()

	return nil
}

// Addr returns the address the metrics server is bound to, or "" when it
// has not been started.
func (c *Collector) Addr() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listenAddr
}

// Stop stops the metrics server. It is safe to call more than once.
func (c *Collector) Stop(ctx context.Context) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	server := c.server
	c.server = nil
	c.listenAddr = ""
	c.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// RecordOperation records one storage operation. size is the document size
// in bytes, or 0 when unknown.
func (c *Collector) RecordOperation(operation, resultType string, duration time.Duration, size int64, err error) {
	if c == nil || !c.config.Enabled {
		return
	}

	success := err == nil

	c.mu.Lock()
	m, ok := c.operations[operation]
	if !ok {
		m = &OperationMetrics{}
		c.operations[operation] = m
	}
	m.Count++
	if !success {
		m.Errors++
	}
	m.TotalDuration += duration
	m.TotalSize += size
	m.LastOperation = time.Now()
	m.AvgDuration = time.Duration(int64(m.TotalDuration) / m.Count)
	c.mu.Unlock()

	status := "success"
	if !success {
		status = "error"
	}
	c.operationCounter.With(prometheus.Labels{
		"operation":   operation,
		"result_type": resultType,
		"status":      status,
	}).Inc()
	c.operationDuration.With(prometheus.Labels{
		"operation":   operation,
		"result_type": resultType,
	}).Observe(duration.Seconds())

	if size > 0 {
		c.documentSize.With(prometheus.Labels{
			"operation":   operation,
			"result_type": resultType,
		}).Observe(float64(size))
	}

	if !success {
		c.errorCounter.With(prometheus.Labels{
			"operation":   operation,
			"result_type": resultType,
			"code":        classifyError(err),
		}).Inc()
	}
}

// GetMetrics returns a snapshot of per-operation metrics
func (c *Collector) GetMetrics() map[string]OperationMetrics {
	out := make(map[string]OperationMetrics)
	if c == nil {
		return out
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, v := range c.operations {
		out[k] = *v
	}
	return out
}

// ResetMetrics resets the per-operation snapshot. Prometheus series are
// cumulative and are not reset.
func (c *Collector) ResetMetrics() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.operations = make(map[string]*OperationMetrics)
	c.lastReset = time.Now()
}

func (c *Collector) initMetrics() {
	constLabels := prometheus.Labels(c.config.Labels)

	c.operationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   c.config.Namespace,
			Name:        "operations_total",
			Help:        "Total number of result storage operations",
			ConstLabels: constLabels,
		},
		[]string{"operation", "result_type", "status"},
	)

	c.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   c.config.Namespace,
			Name:        "operation_duration_seconds",
			Help:        "Duration of result storage operations in seconds",
			Buckets:     prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
			ConstLabels: constLabels,
		},
		[]string{"operation", "result_type"},
	)

	c.documentSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   c.config.Namespace,
			Name:        "document_size_bytes",
			Help:        "Size of stored and retrieved documents in bytes",
			Buckets:     prometheus.ExponentialBuckets(256, 4, 10), // 256B to ~64MB
			ConstLabels: constLabels,
		},
		[]string{"operation", "result_type"},
	)

	c.errorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   c.config.Namespace,
			Name:        "errors_total",
			Help:        "Total number of failed result storage operations by error code",
			ConstLabels: constLabels,
		},
		[]string{"operation", "result_type", "code"},
	)
}

func (c *Collector) registerMetrics() error {
	metrics := []prometheus.Collector{
		c.operationCounter,
		c.operationDuration,
		c.documentSize,
		c.errorCounter,
	}

	for _, metric := range metrics {
		if err := c.registry.Register(metric); err != nil {
			return err
		}
	}

	return nil
}

func classifyError(err error) string {
	if code := errors.CodeOf(err); code != "" {
		return string(code)
	}
	return "other"
}
