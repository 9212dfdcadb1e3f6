package http

import (
	"net/http"

	httpmw "github.com/cwrk-planet/chat-relay/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	WSPath         string
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig, h *Handler, wsHandler http.HandlerFunc) http.Handler {
	if cfg.WSPath == "" {
		cfg.WSPath = "/start_web_socket"
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httpmw.RequestID)
	r.Use(httpmw.Logging)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{httpmw.HeaderRequestID},
		MaxAge:         300,
	}))

	r.NotFound(h.NotFound)

	// WS endpoint
	r.Get(cfg.WSPath, wsHandler)

	r.Get("/healthz", h.Healthz)
	r.Get("/stats", h.Stats)

	return r
}
