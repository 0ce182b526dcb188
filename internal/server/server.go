package server

import (
	"io/fs"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/claude/mapty/internal/screen"
	"github.com/claude/mapty/internal/store"
	"github.com/claude/mapty/internal/tracker"
)

// Server holds dependencies for HTTP handlers. Every event runs under mu
// so it completes, screen snapshot included, before the next one starts.
type Server struct {
	mu     sync.Mutex
	ctrl   *tracker.Controller
	screen *screen.Screen
	store  *store.Store

	log    *slog.Logger
	apiKey string
	whois  WhoIsClient
	router chi.Router
}

// New creates a new Server with all routes configured. st must be the
// store ctrl operates on and scr the screen it renders to.
func New(ctrl *tracker.Controller, scr *screen.Screen, st *store.Store, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		ctrl:   ctrl,
		screen: scr,
		store:  st,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale enables tailnet identity lookups for request logging.
func (s *Server) SetTailscale(c WhoIsClient) {
	s.whois = c
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(TailnetIdentity(func() WhoIsClient { return s.whois }))
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/screen", s.handleScreen)

		r.Post("/position", s.handlePosition)
		r.Post("/position/error", s.handlePositionError)
		r.Post("/map/click", s.handleMapClick)

		r.Post("/form/submit", s.handleSubmit)
		r.Post("/form/cancel", s.handleCancel)

		r.Post("/sort/distance", s.handleSortDistance)
		r.Post("/sort/time", s.handleSortTime)

		r.Route("/workouts", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if s.apiKey != "" {
					r.Use(APIKeyAuth(s.apiKey))
				}
				r.Get("/", s.handleListWorkouts)
				r.Post("/import", s.handleImport)
			})
			r.Delete("/", s.handleClearAll)
			r.Post("/{id}/focus", s.handleFocus)
			r.Post("/{id}/edit", s.handleEdit)
			r.Delete("/{id}", s.handleDelete)
		})
	})
}

// SetFrontend mounts the embedded frontend filesystem.
// Unmatched routes serve index.html.
func (s *Server) SetFrontend(webFS fs.FS) {
	fileServer := http.FileServerFS(webFS)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		f, err := webFS.Open(r.URL.Path[1:])
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
