package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"miniFeed/domain"
)

// Config holds everything the Server needs to know besides its services.
type Config struct {
	// Address to listen on, like ":8000".
	Addr string
	// Prefix all api routes are mounted under, like "/api/v1".
	Prefix string

	// API metadata shown at the root of the api.
	Title       string
	Description string
	Version     string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	AllowedOrigins []string
}

// Server provides the http functionality of this app, namely routing,
// request handling, and middleware. Handlers hand their work to one of the
// domain services and shape the results into json responses.
type Server struct {
	router *mux.Router
	cfg    Config
	us     domain.UserService
	ps     domain.PostService
	ls     domain.LikeService
}

// NewServer returns a new instance of the server, registers all necessary
// routes and gives their handlers access to the app services passed in.
func NewServer(cfg Config, us domain.UserService, ps domain.PostService, ls domain.LikeService) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	// Construct a new Server with a gorilla router and the services passed in.
	s := &Server{
		router: mux.NewRouter(),
		cfg:    cfg,
		us:     us,
		ps:     ps,
		ls:     ls,
	}

	s.router.HandleFunc(cfg.Prefix, s.handleRoot).Methods("GET")

	api := s.router.PathPrefix(cfg.Prefix).Subrouter()
	s.registerUserRoutes(api)
	s.registerPostRoutes(api)
	s.registerLikeRoutes(api)

	// The subrouter answers misses under the prefix itself, the root router everything else.
	for _, r := range []*mux.Router{s.router, api} {
		r.NotFoundHandler = http.HandlerFunc(handleNotFound)
		r.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)
	}

	// Set up middleware that needs to run on every matched request.
	s.router.Use(setContentTypeJSON, requestTimeout(cfg.RequestTimeout))
	return s
}

// Handler returns the router wrapped in the middleware that has to run before routing:
// access logging, panic recovery, CORS and trailing slash removal.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
	)
	recovery := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))

	var h http.Handler = s.router
	h = stripTrailingSlash(h)
	h = cors(h)
	h = recovery(h)
	return handlers.CombinedLoggingHandler(os.Stdout, h)
}

// Run listens and serves on the configured address until ctx is cancelled,
// then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("[http] listening on %s", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Println("[http] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// The setContentTypeJSON middleware sets the content type to "application/json".
func setContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestTimeout bounds the time a request's database work may take. Queries run
// with the request's context, so they are cancelled once d has passed.
func requestTimeout(d time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// stripTrailingSlash makes "/users/" and "/users" the same route without redirecting,
// so that request bodies survive.
func stripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 1 && strings.HasSuffix(r.URL.Path, "/") {
			r.URL.Path = strings.TrimRight(r.URL.Path, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}
