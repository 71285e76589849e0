package telemetry

// Config holds configuration for the tracer
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Enabled determines whether tracing is enabled.
	// When false, a noop tracer is used.
	Enabled bool

	// Endpoint is the OTLP/HTTP collector, either "host:port" or a full URL.
	// If empty, spans are recorded but not exported.
	Endpoint string

	// Insecure disables TLS for a host:port endpoint.
	Insecure bool

	// SampleRate is the fraction of traces to sample (0.0 to 1.0)
	SampleRate float64
}

// DefaultConfig returns a disabled configuration; a CLI traces only on request.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "approvals",
		ServiceVersion: "dev",
		SampleRate:     1.0,
	}
}
