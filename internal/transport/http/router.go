// Package http собирает HTTP API виджета: chi-роутер, мидлвары и маршруты.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-feed-comments/internal/transport/http/handlers"
	"github.com/pribylovaa/go-feed-comments/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
	// Live — обработчик websocket-канала изменений; nil отключает /comments/ws.
	Live http.Handler
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(comments handlers.Comments, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(),
	)

	h := handlers.New(comments)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, opts)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, opts)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
// Websocket живёт дольше любого запроса, поэтому Timeout на него не навешивается.
func registerRoutes(r chi.Router, h *handlers.Handlers, opts Options) {
	r.Group(func(r chi.Router) {
		if opts.Timeout > 0 {
			r.Use(middleware.Timeout(opts.Timeout))
		}

		r.Get("/comments", h.ListComments)
		r.Post("/comments", h.CreateComment)
		r.Post("/comments/{id}/resend", h.ResendComment)
		r.Post("/comments/load", h.LoadComments)
		r.Post("/comments/history", h.LoadHistory)
		r.Get("/comments/status", h.Status)
	})

	if opts.Live != nil {
		r.Handle("/comments/ws", opts.Live)
	}
}
