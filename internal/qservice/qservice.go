// Package qservice implements the single-process façade over the Graph IR assembler, scheduler/executor, and resource
// manager that internal/app exposes over HTTP (§6 EXTERNAL INTERFACES):
// negotiate_capabilities, submit, status, wait, cancel, open_chan, and
// get_telemetry. Session/auth/quota enforcement beyond a single
// in-memory session is explicitly out of scope (§1); this package
// exists to give the router/logging stack a real caller to exercise.
package qservice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neuralground/qmk/internal/executor"
	"github.com/neuralground/qmk/internal/graphir"
	"github.com/neuralground/qmk/internal/logger"
	"github.com/neuralground/qmk/internal/qmkapi"
	"github.com/neuralground/qmk/internal/qmkerr"
	"github.com/neuralground/qmk/internal/resourcemgr"
)

// Session is a negotiated set of granted capabilities and the quota
// ceiling they carry. One process holds many sessions, but (per §1)
// there is no real multi-tenant isolation: every session shares the
// same underlying Resource Manager.
type Session struct {
	ID      string
	Granted map[graphir.Capability]bool
	Quota   qmkapi.Quota
}

// ServiceOptions are options for constructing a service.
type ServiceOptions struct {
	Logger            *logger.Logger
	MaxPhysicalQubits int
	Seed              *int64
}

// Service is the façade's domain surface, one method per §6 operation.
type Service interface {
	NegotiateCapabilities(requested []graphir.Capability) (qmkapi.NegotiateResponse, error)
	Submit(sessionID, graph string, policy qmkapi.SubmitPolicy) (string, error)
	Status(jobID string) (qmkapi.StatusResponse, error)
	Wait(jobID string, timeoutMs int) (qmkapi.StatusResponse, error)
	Cancel(jobID string) (bool, error)
	OpenChannel(sessionID string, req qmkapi.OpenChanRequest) (string, error)
	GetTelemetry() (resourcemgr.Telemetry, error)
}

// defaultQuota bounds a negotiated session in the absence of any real
// admission-control policy (§1: multi-tenant quota enforcement is out
// of scope; these numbers simply keep the single shared Resource
// Manager from being driven past sane demo sizes).
var defaultQuota = qmkapi.Quota{MaxLogicalQubits: 64, MaxChannels: 32, MaxJobs: 256}

type service struct {
	logger *logger.Logger
	rm     *resourcemgr.Manager
	jobs   JobStore

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a new service.
func NewService(opts ServiceOptions) Service {
	if opts.Logger == nil {
		opts.Logger = logger.NewLogger(logger.LoggerOptions{Debug: true})
	}
	if opts.MaxPhysicalQubits <= 0 {
		opts.MaxPhysicalQubits = 4096
	}
	return &service{
		logger:   opts.Logger,
		rm:       resourcemgr.New(opts.MaxPhysicalQubits, opts.Seed),
		jobs:     NewJobStore(),
		sessions: make(map[string]*Session),
	}
}

// NegotiateCapabilities grants every requested capability (there is no
// admission policy to deny against) and issues a fresh session id.
func (s *service) NegotiateCapabilities(requested []graphir.Capability) (qmkapi.NegotiateResponse, error) {
	granted := make(map[graphir.Capability]bool, len(requested))
	for _, c := range requested {
		granted[c] = true
	}

	sess := &Session{ID: uuid.New().String(), Granted: granted, Quota: defaultQuota}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return qmkapi.NegotiateResponse{
		SessionID: sess.ID,
		Granted:   requested,
		Denied:    nil,
		Quota:     defaultQuota,
	}, nil
}

func (s *service) session(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}
	return sess, nil
}

func (s *service) grantedCaps(sess *Session) []graphir.Capability {
	caps := make([]graphir.Capability, 0, len(sess.Granted))
	for c, ok := range sess.Granted {
		if ok {
			caps = append(caps, c)
		}
	}
	return caps
}

// Submit assembles graph and starts it executing asynchronously against
// the shared Resource Manager under the session's granted capabilities,
// returning its job id immediately (state Queued transitioning to
// Running once the goroutine picks it up).
func (s *service) Submit(sessionID, graph string, policy qmkapi.SubmitPolicy) (string, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return "", err
	}

	g, err := graphir.Assemble(graph)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := s.jobs.Create(sessionID, cancel)

	ex := executor.New(s.rm, s.grantedCaps(sess)...)
	go func() {
		job.setRunning()
		result := ex.Execute(ctx, g)
		job.finish(result, errors.Is(result.Err, context.Canceled))
	}()

	_ = policy // priority/debug are accepted but have no scheduling effect (single in-process executor)
	return job.ID, nil
}

func (s *service) job(jobID string) (*Job, error) {
	j, ok := s.jobs.Get(jobID)
	if !ok {
		return nil, fmt.Errorf("job %q not found", jobID)
	}
	return j, nil
}

func (s *service) statusResponse(j *Job) qmkapi.StatusResponse {
	state, result, events := j.snapshot()
	resp := qmkapi.StatusResponse{
		State:         state,
		Events:        events,
		PeakResources: &qmkapi.PeakResources{PhysicalQubits: s.rm.PeakPhysicalQubitsUsed()},
	}
	switch state {
	case qmkapi.Completed, qmkapi.Failed, qmkapi.Cancelled:
		resp.Progress = 1
		resp.ExecutionLog = result.ExecutionLog
	}
	if result.Err != nil {
		resp.Error = &qmkapi.WireError{Code: wireErrorCode(result.Err), Message: result.Err.Error()}
	}
	return resp
}

// wireErrorCode extracts the stable qmkerr.Code from err, or "" if err
// did not originate from a structured qmkerr.Error.
func wireErrorCode(err error) string {
	var qe *qmkerr.Error
	if errors.As(err, &qe) {
		return string(qe.Code)
	}
	return ""
}

// Status reports a job's current lifecycle state.
func (s *service) Status(jobID string) (qmkapi.StatusResponse, error) {
	j, err := s.job(jobID)
	if err != nil {
		return qmkapi.StatusResponse{}, err
	}
	return s.statusResponse(j), nil
}

// Wait blocks until jobID reaches a terminal state or timeoutMs
// elapses (0 means wait indefinitely), then returns its status.
func (s *service) Wait(jobID string, timeoutMs int) (qmkapi.StatusResponse, error) {
	j, err := s.job(jobID)
	if err != nil {
		return qmkapi.StatusResponse{}, err
	}

	if timeoutMs <= 0 {
		<-j.done
	} else {
		select {
		case <-j.done:
		case <-time.After(time.Duration(timeoutMs) * time.Millisecond):
		}
	}

	return s.statusResponse(j), nil
}

// Cancel requests cooperative cancellation of jobID. It does not block
// for the job to actually stop, matching §4.7's "cooperative cancel
// flag consulted between nodes" semantics; the caller polls Status/Wait
// to observe the Cancelled transition.
func (s *service) Cancel(jobID string) (bool, error) {
	j, err := s.job(jobID)
	if err != nil {
		return false, err
	}
	j.cancel()
	return true, nil
}

// OpenChannel opens an entanglement channel between two live logical
// qubits under sessionID.
func (s *service) OpenChannel(sessionID string, req qmkapi.OpenChanRequest) (string, error) {
	if _, err := s.session(sessionID); err != nil {
		return "", err
	}
	chanID := uuid.New().String()
	if err := s.rm.OpenChannel(chanID, req.VQA, req.VQB, req.Fidelity); err != nil {
		return "", err
	}
	return chanID, nil
}

// GetTelemetry reports the comprehensive resource-manager telemetry
// payload shared across every session (§6 get_telemetry).
func (s *service) GetTelemetry() (resourcemgr.Telemetry, error) {
	return s.rm.Telemetry(), nil
}
