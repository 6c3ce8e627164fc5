package app

import (
	"net/http"

	"github.com/neuralground/qmk/internal/server/router"
)

func (a *appServer) routes() []*router.Route {
	return []*router.Route{
		{
			Name:        "root",
			Method:      http.MethodGet,
			Pattern:     "/",
			HandlerFunc: a.RootHandler,
		},
		{
			Name:        "health",
			Method:      http.MethodGet,
			Pattern:     "/health",
			HandlerFunc: a.HealthHandler,
		},
		{
			Name:        "v1.negotiate",
			Method:      http.MethodPost,
			Pattern:     "/v1/negotiate",
			HandlerFunc: a.NegotiateCapabilities,
		},
		{
			Name:        "v1.submit",
			Method:      http.MethodPost,
			Pattern:     "/v1/submit",
			HandlerFunc: a.Submit,
		},
		{
			Name:        "v1.status",
			Method:      http.MethodGet,
			Pattern:     "/v1/status/:id",
			HandlerFunc: a.Status,
		},
		{
			Name:        "v1.wait",
			Method:      http.MethodPost,
			Pattern:     "/v1/wait/:id",
			HandlerFunc: a.Wait,
		},
		{
			Name:        "v1.cancel",
			Method:      http.MethodPost,
			Pattern:     "/v1/cancel/:id",
			HandlerFunc: a.Cancel,
		},
		{
			Name:        "v1.open_chan",
			Method:      http.MethodPost,
			Pattern:     "/v1/open_chan",
			HandlerFunc: a.OpenChannel,
		},
		{
			Name:        "v1.telemetry",
			Method:      http.MethodGet,
			Pattern:     "/v1/telemetry",
			HandlerFunc: a.GetTelemetry,
		},
	}
}
