package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neuralground/qmk/internal/qmkapi"
)

// bindOptionalJSON binds the request body into v if one was sent; a
// missing body (the wait operation's timeout_ms/session_id are both
// optional) is not an error.
func bindOptionalJSON(c *gin.Context, v any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(v)
}

var badRequestErrorMsg = "Bad Request - please contact the administrator"
var internalServerErrorMsg = "Internal Server Error - please contact the administrator"

// RootHandler is the handler for the / endpoint
func (a *appServer) RootHandler(c *gin.Context) {
	l, err := a.getLoggerFromContext(c)
	if err != nil {
		panic("logger not found in context")
	}
	l.Debug().Msg("serving root endpoint")

	c.JSON(http.StatusOK, gin.H{"service": "qmkd", "version": a.version})
}

// HealthHandler is the handler for the /health endpoint
func (a *appServer) HealthHandler(c *gin.Context) {
	l, err := a.getLoggerFromContext(c)
	if err != nil {
		panic("logger not found in context")
	}
	l.Debug().Msg("serving health endpoint")
	c.String(http.StatusOK, "OK")
}

func wireError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": qmkapi.WireError{Message: err.Error()}})
}

// NegotiateCapabilities is the handler for the /v1/negotiate endpoint.
func (a *appServer) NegotiateCapabilities(c *gin.Context) {
	l, err := a.getLoggerFromContext(c)
	if err != nil {
		panic("logger not found in context")
	}

	var req qmkapi.NegotiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Error().Err(err).Msg("binding negotiate request failed")
		c.String(http.StatusBadRequest, badRequestErrorMsg)
		return
	}

	resp, err := a.qs.NegotiateCapabilities(req.Requested)
	if err != nil {
		l.Error().Err(err).Msg("negotiate_capabilities failed")
		wireError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Submit is the handler for the /v1/submit endpoint.
func (a *appServer) Submit(c *gin.Context) {
	l, err := a.getLoggerFromContext(c)
	if err != nil {
		panic("logger not found in context")
	}

	var req qmkapi.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Error().Err(err).Msg("binding submit request failed")
		c.String(http.StatusBadRequest, badRequestErrorMsg)
		return
	}

	jobID, err := a.qs.Submit(req.SessionID, req.Graph, req.Policy)
	if err != nil {
		l.Error().Err(err).Msg("submit failed")
		wireError(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, qmkapi.SubmitResponse{JobID: jobID})
}

// Status is the handler for the /v1/status/:id endpoint.
func (a *appServer) Status(c *gin.Context) {
	l, err := a.getLoggerFromContext(c)
	if err != nil {
		panic("logger not found in context")
	}

	resp, err := a.qs.Status(c.Param("id"))
	if err != nil {
		l.Error().Err(err).Str("job_id", c.Param("id")).Msg("status lookup failed")
		wireError(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Wait is the handler for the /v1/wait/:id endpoint.
func (a *appServer) Wait(c *gin.Context) {
	l, err := a.getLoggerFromContext(c)
	if err != nil {
		panic("logger not found in context")
	}

	var req qmkapi.WaitRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		l.Error().Err(err).Msg("binding wait request failed")
		c.String(http.StatusBadRequest, badRequestErrorMsg)
		return
	}

	resp, err := a.qs.Wait(c.Param("id"), req.TimeoutMs)
	if err != nil {
		l.Error().Err(err).Str("job_id", c.Param("id")).Msg("wait failed")
		wireError(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel is the handler for the /v1/cancel/:id endpoint.
func (a *appServer) Cancel(c *gin.Context) {
	l, err := a.getLoggerFromContext(c)
	if err != nil {
		panic("logger not found in context")
	}

	ack, err := a.qs.Cancel(c.Param("id"))
	if err != nil {
		l.Error().Err(err).Str("job_id", c.Param("id")).Msg("cancel failed")
		wireError(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, qmkapi.CancelResponse{Ack: ack})
}

// OpenChannel is the handler for the /v1/open_chan endpoint.
func (a *appServer) OpenChannel(c *gin.Context) {
	l, err := a.getLoggerFromContext(c)
	if err != nil {
		panic("logger not found in context")
	}

	var req qmkapi.OpenChanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Error().Err(err).Msg("binding open_chan request failed")
		c.String(http.StatusBadRequest, badRequestErrorMsg)
		return
	}

	chanID, err := a.qs.OpenChannel(req.SessionID, req)
	if err != nil {
		l.Error().Err(err).Msg("open_chan failed")
		wireError(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, qmkapi.OpenChanResponse{ChanID: chanID})
}

// GetTelemetry is the handler for the /v1/telemetry endpoint.
func (a *appServer) GetTelemetry(c *gin.Context) {
	l, err := a.getLoggerFromContext(c)
	if err != nil {
		panic("logger not found in context")
	}

	telemetry, err := a.qs.GetTelemetry()
	if err != nil {
		l.Error().Err(err).Msg("get_telemetry failed")
		c.String(http.StatusInternalServerError, internalServerErrorMsg)
		return
	}
	c.JSON(http.StatusOK, telemetry)
}
