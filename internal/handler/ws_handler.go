package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"bookchat/internal/app/chat"
	"bookchat/internal/pkg/errs"
	"bookchat/internal/pkg/limiter"
	"bookchat/internal/pkg/logx"
	"bookchat/internal/pkg/resp"
)

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		// Clients connect from the web app and native apps. Origin is not an
		// admission criterion; CORS covers the plain HTTP routes.
		CheckOrigin: func(*http.Request) bool { return true },
	}
}

// HandleWebSocket upgrades the request and runs the connection until it ends.
// Admission is limited per client IP when deps.JoinLimiter is set.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.JoinLimiter != nil && !deps.JoinLimiter.Allow(r) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.",
				"ip", logx.AnonymizeIP(limiter.ClientIP(r)))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written an HTTP error response.
			logx.Error(err, "Failed to upgrade connection to WebSocket", "code", errs.ErrUpgradeFailed)
			return
		}

		chat.NewClient(conn, deps.Dispatcher).Serve()
	}
}
