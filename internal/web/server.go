package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/silktown-software/postcode-geocode-demo/internal/logging"
	"github.com/silktown-software/postcode-geocode-demo/internal/maps"
	"github.com/silktown-software/postcode-geocode-demo/internal/notify"
	"github.com/silktown-software/postcode-geocode-demo/internal/postcode"
	"github.com/silktown-software/postcode-geocode-demo/internal/storage"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var StaticFS embed.FS

type PostcodeLookup interface {
	GetPostcode(ctx context.Context, value string) (storage.PostcodeRecord, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type MapConfig struct {
	AccessToken string
	StyleURL    string
	Center      maps.LatLng
	Zoom        int
	LocalZoom   int
}

type PageData struct {
	Title string
	Page  string
	Map   MapConfig
}

type Server struct {
	lookup    PostcodeLookup
	health    HealthChecker
	publisher notify.Publisher
	validate  *validator.Validate
	templates map[string]*template.Template
	mapConfig MapConfig
	logger    *slog.Logger
}

type Options struct {
	Lookup    PostcodeLookup
	Health    HealthChecker
	Publisher notify.Publisher
	Map       MapConfig
	Logger    *slog.Logger
}

func NewServer(opts Options) (*Server, error) {
	if opts.Lookup == nil {
		return nil, errors.New("postcode lookup required")
	}
	landing, err := template.New("base").ParseFS(
		templatesFS,
		"templates/base.html",
		"templates/landing.html",
	)
	if err != nil {
		return nil, err
	}
	validate, err := newValidator()
	if err != nil {
		return nil, err
	}

	mapConfig := opts.Map
	if mapConfig.Center == (maps.LatLng{}) {
		mapConfig.Center = maps.DefaultCenter
	}
	if mapConfig.Zoom == 0 {
		mapConfig.Zoom = maps.DefaultZoom
	}
	if mapConfig.LocalZoom == 0 {
		mapConfig.LocalZoom = maps.LocalZoom
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = notify.LogPublisher{Logger: opts.Logger}
	}

	return &Server{
		lookup:    opts.Lookup,
		health:    opts.Health,
		publisher: publisher,
		validate:  validate,
		templates: map[string]*template.Template{"landing": landing},
		mapConfig: mapConfig,
		logger:    logging.OrDefault(opts.Logger),
	}, nil
}

// Handler wires the routes behind the access log. Only /geocode is rate limited.
func (s *Server) Handler(limiter *IPRateLimiter) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/static/", http.FileServerFS(StaticFS))
	mux.HandleFunc("/", s.Landing)
	if limiter != nil {
		mux.Handle("/geocode", limiter.Limit(http.HandlerFunc(s.Geocode)))
	} else {
		mux.HandleFunc("/geocode", s.Geocode)
	}
	mux.HandleFunc("/healthz", s.Healthz)
	return RequestLogger(s.logger, mux)
}

func (s *Server) Landing(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := PageData{
		Title: "Postcode map",
		Page:  "home",
		Map:   s.mapConfig,
	}
	if err := s.templates["landing"].ExecuteTemplate(w, "base", data); err != nil {
		s.logger.Error("render landing", "error", err)
		http.Error(w, "template render failed", http.StatusInternalServerError)
	}
}

type geocodeRequest struct {
	Postcode string `validate:"required,ukpostcode"`
}

func (s *Server) Geocode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	if !query.Has("postcode") {
		writeError(w, http.StatusBadRequest, "postcode is required")
		return
	}
	req := geocodeRequest{Postcode: strings.TrimSpace(query.Get("postcode"))}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	record, err := s.lookup.GetPostcode(r.Context(), req.Postcode)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.publish(r.Context(), notify.NewLookupEvent(postcode.Normalize(req.Postcode), http.StatusNotFound, 0, 0))
		writeError(w, http.StatusNotFound, "postcode not found")
		return
	case err != nil:
		s.logger.Error("postcode lookup failed", "postcode", req.Postcode, "error", err)
		writeError(w, http.StatusInternalServerError, "could not retrieve postcode")
		return
	}

	s.publish(r.Context(), notify.NewLookupEvent(record.Postcode, http.StatusOK, record.Lat, record.Lng))
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.logger.Error("health check failed", "error", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) publish(ctx context.Context, event notify.LookupEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish lookup event", "event_id", event.ID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
