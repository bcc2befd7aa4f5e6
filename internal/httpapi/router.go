// path: internal/httpapi/router.go
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appmw "github.com/techappsUT/social-scheduler/internal/middleware"

	"github.com/techappsUT/social-scheduler/internal/logging"
	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/security"
	"github.com/techappsUT/social-scheduler/internal/store"
	"github.com/techappsUT/social-scheduler/pkg/response"
)

// Server is the thin CRUD surface over Store for posts, media links, and
// credentials described in spec.md §6.1, wired the way the teacher's
// Container groups handlers behind its router.
type Server struct {
	store     store.Store
	registry  *platform.Registry
	creds     *security.CredentialResolver
	log       logging.Logger
	rateLimit *appmw.RateLimiter
}

func New(s store.Store, reg *platform.Registry, creds *security.CredentialResolver, log logging.Logger) *Server {
	return &Server{store: s, registry: reg, creds: creds, log: log}
}

// WithRateLimiter attaches IP-based rate limiting to the router; nil is
// a valid value and simply skips the middleware (e.g. in tests).
func (s *Server) WithRateLimiter(rl *appmw.RateLimiter) *Server {
	s.rateLimit = rl
	return s
}

// Router builds the chi mux: request id/real ip/recoverer/timeout as the
// teacher's router does, CORS scoped to the configured allowed origins,
// then the posts and credentials route groups.
func (s *Server) Router(allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(appmw.SecurityHeaders)
	r.Use(appmw.RequestLogger(s.log))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if s.rateLimit != nil {
		r.Use(s.rateLimit.RateLimitByIP(appmw.DefaultIPRateLimit))
	}

	r.Get("/health", s.health)

	r.Route("/posts", func(r chi.Router) {
		r.Post("/", s.createPost)
		r.Get("/", s.listPosts)
		r.Get("/{id}", s.getPost)
		r.Put("/{id}", s.updatePost)
		r.Delete("/{id}", s.deletePost)
	})

	r.Route("/credentials", func(r chi.Router) {
		r.Get("/", s.listConfiguredPlatforms)
		r.Put("/{platform}", s.setCredentials)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{"status": "ok"})
}
