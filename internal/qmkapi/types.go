// Package qmkapi defines the wire shapes of the external interface
// (negotiate_capabilities, submit, status, wait, cancel, open_chan,
// get_telemetry): plain Go structs with JSON tags matching the
// contract's field names, used by internal/app's HTTP handlers.
package qmkapi

import (
	"github.com/neuralground/qmk/internal/executor"
	"github.com/neuralground/qmk/internal/graphir"
	"github.com/neuralground/qmk/internal/resourcemgr"
)

// JobState is a job's lifecycle state.
type JobState string

const (
	Queued    JobState = "Queued"
	Running   JobState = "Running"
	Completed JobState = "Completed"
	Failed    JobState = "Failed"
	Cancelled JobState = "Cancelled"
)

// Quota is the session's resource ceiling.
type Quota struct {
	MaxLogicalQubits int `json:"max_logical_qubits"`
	MaxChannels      int `json:"max_channels"`
	MaxJobs          int `json:"max_jobs"`
}

// NegotiateRequest requests a set of capabilities for a new session.
type NegotiateRequest struct {
	Requested []graphir.Capability `json:"requested"`
}

// NegotiateResponse is the outcome of a capability negotiation.
type NegotiateResponse struct {
	SessionID string               `json:"session_id"`
	Granted   []graphir.Capability `json:"granted"`
	Denied    []graphir.Capability `json:"denied"`
	Quota     Quota                `json:"quota"`
}

// SubmitPolicy carries the per-job scheduling/determinism hints.
type SubmitPolicy struct {
	Priority int    `json:"priority,omitempty"`
	Seed     *int64 `json:"seed,omitempty"`
	Debug    bool   `json:"debug,omitempty"`
}

// SubmitRequest carries the Graph IR program text to run.
type SubmitRequest struct {
	Graph     string       `json:"graph"`
	Policy    SubmitPolicy `json:"policy"`
	SessionID string       `json:"session_id"`
}

// SubmitResponse acknowledges a submitted job.
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// StatusResponse reports a job's current lifecycle state and, once
// terminal, its outcome.
type StatusResponse struct {
	State         JobState            `json:"state"`
	Progress      float64             `json:"progress"`
	Events        map[string]int      `json:"events,omitempty"`
	PeakResources *PeakResources      `json:"peak_resources,omitempty"`
	ExecutionLog  []executor.LogEntry `json:"execution_log,omitempty"`
	Error         *WireError          `json:"error,omitempty"`
}

// PeakResources is the high-water mark of physical resource usage
// observed while a job ran.
type PeakResources struct {
	PhysicalQubits int `json:"physical_qubits"`
}

// WaitRequest requests blocking until a job reaches a terminal state
// or TimeoutMs elapses.
type WaitRequest struct {
	TimeoutMs int    `json:"timeout_ms,omitempty"`
	SessionID string `json:"session_id"`
}

// CancelResponse acknowledges a cancellation request.
type CancelResponse struct {
	Ack bool `json:"ack"`
}

// OpenChanRequest opens an entanglement channel between two live
// logical qubits.
type OpenChanRequest struct {
	VQA       string  `json:"vq_a"`
	VQB       string  `json:"vq_b"`
	Fidelity  float64 `json:"fidelity"`
	SessionID string  `json:"session_id"`
}

// OpenChanResponse returns the id of the newly opened channel.
type OpenChanResponse struct {
	ChanID string `json:"chan_id"`
}

// TelemetryResponse is the comprehensive resource-manager telemetry
// payload (§6 get_telemetry): a thin alias over resourcemgr.Telemetry,
// which already carries the `{resource_usage, qubits, channels,
// simulation_time_us}` shape this operation's contract names.
type TelemetryResponse = resourcemgr.Telemetry

// WireError is the structured `{code, message, data}` error shape
// every failing operation returns (§7).
type WireError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}
