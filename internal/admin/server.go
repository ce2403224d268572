package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/roach88/setfield/internal/lookup"
	"github.com/roach88/setfield/internal/schema"
	"github.com/roach88/setfield/internal/setfield"
	"github.com/roach88/setfield/internal/store"
)

// RequestIDHeader carries the per-request UUIDv7.
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// Server is the admin HTTP API.
type Server struct {
	store   *store.Store
	lookups *lookup.Registry
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithLookups sets the lookup registry. Defaults to lookup.Default.
func WithLookups(r *lookup.Registry) Option {
	return func(s *Server) { s.lookups = r }
}

// WithMetrics sets the metrics collectors. Defaults to NewMetrics().
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer returns an admin API over st.
func NewServer(st *store.Store, opts ...Option) *Server {
	s := &Server{store: st}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.lookups == nil {
		s.lookups = lookup.Default
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"Content-Type", "Accept"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		ExposedHeaders: []string{RequestIDHeader},
	}).Handler)
	router.Use(s.requestID)
	router.Use(middleware.Recoverer)

	router.Get("/health", s.instrument("health", s.healthHandler))
	router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	router.Route("/api/models", func(r chi.Router) {
		r.Get("/", s.instrument("models", s.modelsHandler))
		r.Route("/{model}/records", func(r chi.Router) {
			r.Get("/", s.instrument("list", s.listHandler))
			r.Post("/", s.instrument("create", s.createHandler))
			r.Get("/{pk}", s.instrument("get", s.getHandler))
			r.Put("/{pk}", s.instrument("update", s.updateHandler))
			r.Delete("/{pk}", s.instrument("delete", s.deleteHandler))
		})
	})

	return router
}

// requestID tags every request with a UUIDv7, echoed in the response.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.Must(uuid.NewV7()).String()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)

		s.metrics.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.metrics.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
		s.logger.Debug("request",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	}
}

// RecordResponse is one record in API responses.
type RecordResponse struct {
	PK      int64                   `json:"pk"`
	Fields  map[string]setfield.Set `json:"fields"`
	Display map[string]string       `json:"display"`
}

// FilterResponse is one set field filter with its choices.
type FilterResponse struct {
	Title     string   `json:"title"`
	Parameter string   `json:"parameter"`
	Choices   []Choice `json:"choices"`
}

// ListResponse is the filtered record list of a model.
type ListResponse struct {
	Model   string           `json:"model"`
	Count   int              `json:"count"`
	Results []RecordResponse `json:"results"`
	Filters []FilterResponse `json:"filters"`
}

// ModelResponse describes a model and its set fields.
type ModelResponse struct {
	Label  string          `json:"label"`
	Table  string          `json:"table"`
	Fields []FieldResponse `json:"fields"`
}

// FieldResponse describes a set field.
type FieldResponse struct {
	Name    string       `json:"name"`
	Options []string     `json:"options"`
	Default setfield.Set `json:"default"`
}

// RecordRequest is the body of create and update requests. Fields map
// names to option lists.
type RecordRequest struct {
	Fields map[string][]string `json:"fields"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"driver":    s.store.Dialect().String(),
	})
}

func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	models := s.store.Schema().Models()
	out := make([]ModelResponse, 0, len(models))
	for _, m := range models {
		mr := ModelResponse{Label: m.Label, Table: m.Table}
		for _, f := range m.Fields {
			mr.Fields = append(mr.Fields, FieldResponse{
				Name:    f.Name(),
				Options: f.Options(),
				Default: f.Default(),
			})
		}
		out = append(out, mr)
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := s.model(r)
	if err != nil {
		s.writeError(w, r, m, err)
		return
	}

	values := r.URL.Query()
	pred, err := s.lookups.ParseQuery(m, values)
	if err != nil {
		s.writeError(w, r, m, err)
		return
	}

	filters, err := s.filters(ctx, m, values)
	if err != nil {
		s.writeError(w, r, m, err)
		return
	}

	records, err := s.store.Filter(ctx, m.Label, pred)
	if err != nil {
		s.writeError(w, r, m, err)
		return
	}

	resp := ListResponse{
		Model:   m.Label,
		Count:   len(records),
		Results: make([]RecordResponse, 0, len(records)),
		Filters: filters,
	}
	for _, rec := range records {
		resp.Results = append(resp.Results, recordResponse(m, rec))
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

// filters builds every set field filter of m. Each filter's facets are
// computed over the rows matching the other parameters in values.
func (s *Server) filters(ctx context.Context, m *schema.Model, values url.Values) ([]FilterResponse, error) {
	out := make([]FilterResponse, 0, len(m.Fields))
	for _, f := range m.Fields {
		sf, err := NewSetFieldFilter(m, f.Name())
		if err != nil {
			return nil, err
		}
		selected, err := sf.Selected(values)
		if err != nil {
			return nil, err
		}
		selectedMask, err := f.Encode(setfield.NewSet(selected...))
		if err != nil {
			return nil, err
		}

		rest := make(url.Values, len(values))
		for k, v := range values {
			if k != sf.Parameter() {
				rest[k] = v
			}
		}
		others, err := s.lookups.ParseQuery(m, rest)
		if err != nil {
			return nil, err
		}

		rows, err := s.store.Masks(ctx, m.Label, f.Name(), others)
		if err != nil {
			return nil, err
		}

		out = append(out, FilterResponse{
			Title:     sf.Title(),
			Parameter: sf.Parameter(),
			Choices:   sf.Choices(values, selected, NewFacets(f, rows, selectedMask)),
		})
	}
	return out, nil
}

func (s *Server) createHandler(w http.ResponseWriter, r *http.Request) {
	m, err := s.model(r)
	if err != nil {
		s.writeError(w, r, m, err)
		return
	}

	req, err := decodeRecordRequest(r)
	if err != nil {
		s.writeError(w, r, m, err)
		return
	}

	values := make(map[string]any, len(req.Fields))
	for name, items := range req.Fields {
		values[name] = items
	}
	rec, err := s.store.Create(r.Context(), m.Label, values)
	if err != nil {
		s.writeError(w, r, m, err)
		return
	}

	s.logger.Info("record created", "request_id", RequestID(r.Context()), "model", m.Label, "pk", rec.PK)
	s.writeJSON(w, r, http.StatusCreated, recordResponse(m, rec))
}

func (s *Server) getHandler(w http.ResponseWriter, r *http.Request) {
	m, pk, err := s.modelAndPK(r)
	if err != nil {
		s.writeError(w, r, m, err)
		return
	}

	rec, err := s.store.Get(r.Context(), m.Label, pk)
	if err != nil {
		s.writeError(w, r, m, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, recordResponse(m, rec))
}

func (s *Server) updateHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, pk, err := s.modelAndPK(r)
	if err != nil {
		s.writeError(w, r, m, err)
		return
	}

	req, err := decodeRecordRequest(r)
	if err != nil {
		s.writeError(w, r, m, err)
		return
	}

	rec := &store.Record{Model: m.Label, PK: pk, Fields: make(map[string]setfield.Set, len(req.Fields))}
	for name, items := range req.Fields {
		rec.Fields[name] = setfield.NewSet(items...)
	}
	if err := s.store.Save(ctx, rec); err != nil {
		s.writeError(w, r, m, err)
		return
	}

	saved, err := s.store.Get(ctx, m.Label, pk)
	if err != nil {
		s.writeError(w, r, m, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, recordResponse(m, saved))
}

func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	m, pk, err := s.modelAndPK(r)
	if err != nil {
		s.writeError(w, r, m, err)
		return
	}

	if err := s.store.Delete(r.Context(), m.Label, pk); err != nil {
		s.writeError(w, r, m, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) model(r *http.Request) (*schema.Model, error) {
	return s.store.Schema().Model(chi.URLParam(r, "model"))
}

func (s *Server) modelAndPK(r *http.Request) (*schema.Model, int64, error) {
	m, err := s.model(r)
	if err != nil {
		return nil, 0, err
	}
	pk, err := strconv.ParseInt(chi.URLParam(r, "pk"), 10, 64)
	if err != nil {
		return m, 0, &requestError{fmt.Errorf("pk %q is not an integer", chi.URLParam(r, "pk"))}
	}
	return m, pk, nil
}

// requestError marks malformed requests.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func decodeRecordRequest(r *http.Request) (*RecordRequest, error) {
	var req RecordRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, &requestError{fmt.Errorf("invalid request body: %w", err)}
	}
	return &req, nil
}

func recordResponse(m *schema.Model, rec *store.Record) RecordResponse {
	resp := RecordResponse{
		PK:      rec.PK,
		Fields:  rec.Fields,
		Display: make(map[string]string, len(m.Fields)),
	}
	for _, f := range m.Fields {
		resp.Display[f.Name()] = Display(f, rec.Fields[f.Name()])
	}
	return resp
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case setfield.IsValidationError(err),
		errors.As(err, &reqErr),
		errors.Is(err, lookup.ErrUnknownLookup),
		errors.Is(err, lookup.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrUnknownModel),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with a JSON error. m may be nil.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, m *schema.Model, err error) {
	status := statusFor(err)
	id := RequestID(r.Context())

	if setfield.IsValidationError(err) && m != nil {
		s.metrics.validationFailures.WithLabelValues(m.Label).Inc()
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", id, "path", r.URL.Path, "error", err)
		msg = "internal error"
	} else {
		s.logger.Debug("request rejected", "request_id", id, "status", status, "error", err)
	}
	s.writeJSON(w, r, status, errorResponse{Error: msg, RequestID: id})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response failed", "request_id", RequestID(r.Context()),
			"path", r.URL.Path, "error", err)
	}
}
