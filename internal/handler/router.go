/*
Package handler serves the chat server over HTTP.

The router exposes the websocket endpoint clients connect to, a health probe and the
Prometheus metrics endpoint. Every request passes through CORS, request id, real IP,
request logging and panic recovery middleware.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"bookchat/internal/pkg/logx"
	"bookchat/internal/pkg/metric"
	"bookchat/internal/pkg/resp"
)

// Router builds the HTTP routing table.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	corsAllowedOrigins := deps.Config.AllowedOrigins
	if deps.Config.IsDevelopment() || len(corsAllowedOrigins) == 0 {
		corsAllowedOrigins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(metric.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", HandleHealth(deps))
	r.Method(http.MethodGet, "/metrics", metric.Handler())
	r.Get("/ws", HandleWebSocket(newUpgrader(), deps))

	return r
}

// HealthStatus is the data of a /health response.
type HealthStatus struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
}

// HandleHealth reports liveness together with the live connection and room counts.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, HealthStatus{
			Status:      "ok",
			Connections: deps.Manager.Registry().Len(),
			Rooms:       deps.Manager.RoomCount(),
		})
	}
}
