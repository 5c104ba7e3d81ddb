// Package httpapi is the admission/observability HTTP surface (component
// G): topic CRUD, health, stats, topic listing, and the /ws upgrade.
package httpapi

import (
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/adityasinghania3802/pub-sub-plivo/pkg/broker"
)

var topicNameRE = regexp.MustCompile(`^[A-Za-z0-9._-]{1,200}$`)

// Registry is the subset of *broker.Registry the HTTP surface drives.
type Registry interface {
	CreateTopic(name string) error
	DeleteTopic(name string) error
	Health() broker.HealthSnapshot
	ListTopics() []broker.TopicSummary
	Stats() map[string]broker.TopicStats
}

// API wires the observability/admission handlers and the /ws upgrade
// handler into a chi router.
type API struct {
	reg Registry
	ws  http.Handler
	log zerolog.Logger
}

func New(reg Registry, ws http.Handler, log zerolog.Logger) *API {
	return &API{reg: reg, ws: ws, log: log.With().Str("component", "httpapi").Logger()}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.logMiddleware)

	r.Post("/topics", a.handleCreateTopic)
	r.Delete("/topics/{name}", a.handleDeleteTopic)
	r.Get("/topics", a.handleListTopics)
	r.Get("/health", a.handleHealth)
	r.Get("/stats", a.handleStats)
	r.Get("/ws", a.ws.ServeHTTP)

	return r
}

func (a *API) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("http request")
		next.ServeHTTP(w, r)
	})
}
