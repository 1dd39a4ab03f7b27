package web

import (
	"net/http"

	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"notes/internal/config"
	"notes/internal/notes"
)

type Server struct {
	cfg     config.Config
	store   *notes.Store
	mux     *http.ServeMux
	views   *Templates
	flash   *flasher
	limiter *rate.Limiter
}

func NewServer(cfg config.Config, store *notes.Store) (*Server, error) {
	flash, err := newFlasher(cfg.SecretKey)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:     cfg,
		store:   store,
		mux:     http.NewServeMux(),
		views:   MustParseTemplates(),
		flash:   flash,
		limiter: newLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.requestID(s.logRequests(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.withRepo(s.handleIndex))
	s.mux.Handle("POST /notes", s.rateLimit(s.withRepo(s.handleCreate)))
	s.mux.HandleFunc("GET /notes/{id}/edit", s.withRepo(s.handleEdit))
	s.mux.Handle("POST /notes/{id}/edit", s.rateLimit(s.withRepo(s.handleUpdate)))
	s.mux.Handle("POST /notes/{id}/{action}", s.rateLimit(s.withRepo(s.handleAction)))
	s.mux.HandleFunc("GET /static/highlight.css", s.handleHighlightCSS)

	s.mux.Handle("/api/notes", s.apiCORS(s.withRepo(s.handleAPIList)))
	s.mux.Handle("/api/notes/{id}", s.apiCORS(s.withRepo(s.handleAPIGet)))

	s.mux.HandleFunc("/", s.handleNotFound)
}

// apiCORS adds CORS headers for the configured origins. With none
// configured the API stays same-origin.
func (s *Server) apiCORS(h http.HandlerFunc) http.Handler {
	if len(s.cfg.CORSOrigins) == 0 {
		return h
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Requested-With"},
		MaxAge:         86400,
	}).Handler(h)
}
