package gooseberry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CheckResult represents the result of a health check.
type CheckResult struct {
	// Name is the name of the check.
	Name string `json:"name"`

	// Healthy indicates whether the check passed.
	Healthy bool `json:"healthy"`

	// Message provides additional context about the check result.
	Message string `json:"message,omitempty"`

	// Duration is how long the check took.
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// HealthStatus represents the overall health status of the node.
type HealthStatus struct {
	// Healthy indicates whether all checks passed.
	Healthy bool `json:"healthy"`

	// Checks contains the results of individual checks.
	Checks []CheckResult `json:"checks"`

	// Timestamp is when the health check was performed.
	Timestamp time.Time `json:"timestamp"`
}

// IsHealthy returns true if the node is started and its libp2p host is
// available. This is a quick check suitable for liveness probes.
func (n *Node) IsHealthy() bool {
	if !n.isStarted() {
		return false
	}
	return n.host != nil && n.host.LibP2PHost() != nil
}

// ReadinessChecks performs detailed health checks and returns the results.
// This is suitable for readiness probes and debugging.
//
// Checks performed:
//   - node_started: Whether the node has been started
//   - host_running: Whether the libp2p host is running
//   - address_table: Whether the address table is accessible
//   - behaviours: The composed behaviours (informational)
//   - connections: Whether there are active connections (informational)
func (n *Node) ReadinessChecks() HealthStatus {
	status := HealthStatus{
		Healthy:   true,
		Checks:    make([]CheckResult, 0, 5),
		Timestamp: time.Now(),
	}

	start := time.Now()
	started := n.isStarted()
	status.add(CheckResult{
		Name:     "node_started",
		Healthy:  started,
		Message:  boolToMessage(started, "node is running", "node is not started"),
		Duration: time.Since(start),
	})

	start = time.Now()
	hostOK := n.host != nil && n.host.LibP2PHost() != nil
	status.add(CheckResult{
		Name:     "host_running",
		Healthy:  hostOK,
		Message:  boolToMessage(hostOK, "libp2p host is running", "libp2p host is not available"),
		Duration: time.Since(start),
	})

	start = time.Now()
	tableOK := n.table != nil
	tableMsg := "address table is not available"
	if tableOK {
		tableMsg = fmt.Sprintf("address table has %d entries", n.table.Len())
	}
	status.add(CheckResult{
		Name:     "address_table",
		Healthy:  tableOK,
		Message:  tableMsg,
		Duration: time.Since(start),
	})

	// Informational checks below never mark the node unhealthy.
	start = time.Now()
	names := make([]string, 0, 3)
	if n.composer != nil {
		for _, b := range n.composer.Behaviours() {
			names = append(names, b.Name())
		}
	}
	status.Checks = append(status.Checks, CheckResult{
		Name:     "behaviours",
		Healthy:  true,
		Message:  strings.Join(names, ","),
		Duration: time.Since(start),
	})

	start = time.Now()
	connCount := 0
	if n.swarm != nil {
		connCount = len(n.swarm.Connections().ConnectedPeers())
	}
	connMsg := "no active connections"
	if connCount > 0 {
		connMsg = fmt.Sprintf("%d connected peers", connCount)
	}
	status.Checks = append(status.Checks, CheckResult{
		Name:     "connections",
		Healthy:  true,
		Message:  connMsg,
		Duration: time.Since(start),
	})

	return status
}

func (s *HealthStatus) add(c CheckResult) {
	s.Checks = append(s.Checks, c)
	if !c.Healthy {
		s.Healthy = false
	}
}

// boolToMessage returns trueMsg if b is true, otherwise falseMsg.
func boolToMessage(b bool, trueMsg, falseMsg string) string {
	if b {
		return trueMsg
	}
	return falseMsg
}

// HealthHandler returns an http.Handler that serves health check responses.
// The handler responds with:
//   - 200 OK if the node is healthy
//   - 503 Service Unavailable if the node is unhealthy
//
// The response body contains a JSON representation of HealthStatus.
//
// Example usage:
//
//	http.Handle("/health", gooseberry.HealthHandler(node))
func HealthHandler(node *Node) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := node.ReadinessChecks()

		w.Header().Set("Content-Type", "application/json")
		if status.Healthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(status)
	})
}

// LivenessHandler returns an http.Handler that serves liveness check responses.
// Unlike HealthHandler, this does not perform detailed checks.
//
// Example usage:
//
//	http.Handle("/live", gooseberry.LivenessHandler(node))
func LivenessHandler(node *Node) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		healthy := node.IsHealthy()

		w.Header().Set("Content-Type", "application/json")
		if healthy {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"healthy":true}`))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"healthy":false}`))
		}
	})
}
