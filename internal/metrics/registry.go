package metrics

import (
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var (
	// Default is the default metrics instance
	Default  *Metrics
	registry *prometheus.Registry
	once     sync.Once
)

// InitDefault initializes the default metrics instance on a private
// registry. A CLI process has no scrape endpoint; the registry is written
// to a textfile after the command instead.
func InitDefault() *Metrics {
	once.Do(func() {
		registry, Default = NewRegistry()
	})
	return Default
}

// GetDefault returns the default metrics instance
// If not initialized, it will initialize it first
func GetDefault() *Metrics {
	if Default == nil {
		return InitDefault()
	}
	return Default
}

// DefaultGatherer returns the registry behind Default.
func DefaultGatherer() prometheus.Gatherer {
	InitDefault()
	return registry
}

// NewRegistry creates a new Prometheus registry with metrics
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	return reg, m
}

// WriteTextfile writes the gathered metrics in the node_exporter textfile
// format. The file is replaced atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Dump writes the gathered metrics in the text exposition format.
func Dump(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return nil
}

// Reset clears the default metrics instance (useful for testing)
func Reset() {
	Default = nil
	registry = nil
	once = sync.Once{}
}
