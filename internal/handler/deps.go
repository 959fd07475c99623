package handler

import (
	"bookchat/internal/app/chat"
	"bookchat/internal/configs"
	"bookchat/internal/pkg/limiter"
)

// AppDeps is everything the HTTP layer needs from the application.
type AppDeps struct {
	Manager     *chat.Manager
	Dispatcher  *chat.Dispatcher
	Config      *configs.AppConfig
	JoinLimiter *limiter.IPRateLimiter
}
