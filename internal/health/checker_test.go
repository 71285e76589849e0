package health

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestResultConstructors(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		status Status
	}{
		{"healthy", Healthy("logged in"), StatusHealthy},
		{"degraded", Degraded("not logged in"), StatusDegraded},
		{"unhealthy", Unhealthy("connection refused"), StatusUnhealthy},
		{"explicit", NewResult(StatusDegraded, "5xx"), StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.result.Status != tt.status {
				t.Errorf("Status = %v, want %v", tt.result.Status, tt.status)
			}
			if tt.result.Details == nil {
				t.Error("Details not initialized")
			}
			if tt.result.Status.String() != string(tt.status) {
				t.Errorf("String() = %q", tt.result.Status.String())
			}
		})
	}
}

func TestResultChaining(t *testing.T) {
	r := Healthy("reachable").
		WithDetail("origin", "http://localhost:8000").
		WithDetail("status", 200).
		WithLatency(12 * time.Millisecond)

	if r.Details["origin"] != "http://localhost:8000" || r.Details["status"] != 200 {
		t.Errorf("Details = %v", r.Details)
	}
	if r.Latency != 12*time.Millisecond {
		t.Errorf("Latency = %v", r.Latency)
	}
}

func TestResultEncoding(t *testing.T) {
	r := Degraded("not logged in").WithDetail("server", "http://localhost:8000")

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["status"] != "degraded" || decoded["message"] != "not logged in" {
		t.Errorf("json = %s", data)
	}

	out, err := yaml.Marshal(NamedResult{Name: "session", Result: *Healthy("ok")})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"name: session", "status: healthy", "message: ok"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("yaml missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(string(out), "details") {
		t.Errorf("empty details should be omitted:\n%s", out)
	}
}
