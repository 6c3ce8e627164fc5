package qservice

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/neuralground/qmk/internal/graphir"
	"github.com/neuralground/qmk/internal/logger"
	"github.com/neuralground/qmk/internal/qmkapi"
)

const bellProgram = `
alloc: ALLOC_LQ profile="logical:surface_code(d=3)" -> q0, q1
h: APPLY_H q0
cnot: APPLY_CNOT q0, q1
m0: MEASURE_Z q0 -> m0
m1: MEASURE_Z q1 -> m1
free: FREE_LQ q0, q1
`

type ServiceTestSuite struct {
	suite.Suite
	svc Service
}

func (s *ServiceTestSuite) SetupTest() {
	seed := int64(42)
	s.svc = NewService(ServiceOptions{
		Logger:            logger.NewLogger(logger.LoggerOptions{Debug: true}),
		MaxPhysicalQubits: 4096,
		Seed:              &seed,
	})
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) negotiate(caps ...graphir.Capability) string {
	resp, err := s.svc.NegotiateCapabilities(caps)
	s.Require().NoError(err)
	s.NotEmpty(resp.SessionID)
	return resp.SessionID
}

func (s *ServiceTestSuite) TestNegotiateCapabilitiesGrantsEverythingRequested() {
	resp, err := s.svc.NegotiateCapabilities([]graphir.Capability{graphir.CapAlloc, graphir.CapLink})
	s.Require().NoError(err)
	s.ElementsMatch([]graphir.Capability{graphir.CapAlloc, graphir.CapLink}, resp.Granted)
	s.Empty(resp.Denied)
}

func (s *ServiceTestSuite) TestSubmitUnknownSessionErrors() {
	_, err := s.svc.Submit("no-such-session", bellProgram, qmkapi.SubmitPolicy{})
	s.Error(err)
}

func (s *ServiceTestSuite) TestSubmitAndWaitCompletesBellProgram() {
	sessionID := s.negotiate(graphir.CapAlloc)

	jobID, err := s.svc.Submit(sessionID, bellProgram, qmkapi.SubmitPolicy{})
	s.Require().NoError(err)
	s.NotEmpty(jobID)

	status, err := s.svc.Wait(jobID, 5000)
	s.Require().NoError(err)
	s.Equal(qmkapi.Completed, status.State)
	s.Equal(status.Events["m0"], status.Events["m1"])
}

func (s *ServiceTestSuite) TestSubmitBadGraphErrors() {
	sessionID := s.negotiate(graphir.CapAlloc)
	_, err := s.svc.Submit(sessionID, "not a valid program", qmkapi.SubmitPolicy{})
	s.Error(err)
}

func (s *ServiceTestSuite) TestStatusUnknownJobErrors() {
	_, err := s.svc.Status("no-such-job")
	s.Error(err)
}

func (s *ServiceTestSuite) TestCancelStopsARunningJob() {
	sessionID := s.negotiate(graphir.CapAlloc)
	jobID, err := s.svc.Submit(sessionID, bellProgram, qmkapi.SubmitPolicy{})
	s.Require().NoError(err)

	ack, err := s.svc.Cancel(jobID)
	s.Require().NoError(err)
	s.True(ack)

	status, err := s.svc.Wait(jobID, 5000)
	s.Require().NoError(err)
	s.Contains([]qmkapi.JobState{qmkapi.Cancelled, qmkapi.Completed}, status.State)
}

func (s *ServiceTestSuite) TestOpenChannelRequiresLiveQubits() {
	sessionID := s.negotiate(graphir.CapAlloc, graphir.CapLink)
	_, err := s.svc.OpenChannel(sessionID, qmkapi.OpenChanRequest{VQA: "q0", VQB: "q1", Fidelity: 0.95})
	s.Error(err)
}

func (s *ServiceTestSuite) TestGetTelemetryReflectsCompletedJob() {
	sessionID := s.negotiate(graphir.CapAlloc)
	jobID, err := s.svc.Submit(sessionID, bellProgram, qmkapi.SubmitPolicy{})
	s.Require().NoError(err)
	_, err = s.svc.Wait(jobID, 5000)
	s.Require().NoError(err)

	telemetry, err := s.svc.GetTelemetry()
	s.Require().NoError(err)
	s.Equal(0, telemetry.ResourceUsage.PhysicalQubitsUsed)
}
