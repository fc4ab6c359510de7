// Package httpapi exposes checklist ingestion and querying over HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	"checklist/internal/ingest"
	"checklist/internal/storage"
)

// Server wires the catalog and ingestion engine to the HTTP surface.
type Server struct {
	catalog storage.Catalog
	engine  *ingest.Engine
	logger  *log.Logger

	// UploadRateLimit caps POST /v1/checklists requests per IP per minute.
	// Zero disables rate limiting.
	UploadRateLimit int

	// spoolDir is where uploads are spooled; empty means os.TempDir().
	spoolDir string
}

func NewServer(cat storage.Catalog, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Server{
		catalog: cat,
		engine:  &ingest.Engine{Catalog: cat, Logger: logger},
		logger:  logger,
	}
}

// Router builds the chi router with the full middleware stack and all
// versioned routes.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Link"},
		MaxAge:         300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/sports/{sport}/sets", s.handleListSets)

		r.Route("/checklists", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if s.UploadRateLimit > 0 {
					r.Use(httprate.LimitByIP(s.UploadRateLimit, 1*time.Minute))
				}
				r.Post("/", s.handleUpload)
			})

			r.Get("/{sport}/{set}", s.handleChecklist)
			r.Get("/{sport}/{set}/athletes", s.handleAthletes)
			r.Get("/{sport}/{set}/athlete-summary", s.handleAthleteSummary)
		})
	})

	return r
}

// Response is the uniform JSON envelope for every endpoint.
type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) writeResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		s.logger.Errorf("write response: %v", err)
	}
}

func (s *Server) writeData(w http.ResponseWriter, code int, message string, data interface{}) {
	s.writeResponse(w, Response{Message: message, Code: code, Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeResponse(w, Response{Message: http.StatusText(code), Code: code, Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, http.StatusOK, "checklist service is running", nil)
}
