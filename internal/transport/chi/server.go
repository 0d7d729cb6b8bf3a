package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solrfacet/internal/domain"
	"github.com/kailas-cloud/solrfacet/internal/logger"
	healthuc "github.com/kailas-cloud/solrfacet/internal/usecase/health"
	searchuc "github.com/kailas-cloud/solrfacet/internal/usecase/search"
	"github.com/kailas-cloud/solrfacet/internal/usecase/selection"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements the selection session HTTP API.
type Server struct {
	sessions      *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	query         *schema.Decoder
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(sessions *searchuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	query := schema.NewDecoder()
	query.IgnoreUnknownKeys(true)

	s := &Server{
		sessions: sessions,
		health:   health,
		logger:   logger,
		query:    query,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, ErrorResponseCodeSessionNotFound),
		sentinelHandler(domain.ErrWidgetNotFound, http.StatusNotFound, ErrorResponseCodeWidgetNotFound),
		sentinelHandler(domain.ErrInvalidOperation, http.StatusBadRequest, ErrorResponseCodeInvalidOperation),
		sentinelHandler(domain.ErrNoFacetKind, http.StatusUnprocessableEntity, ErrorResponseCodeWidgetMisconfigured),
		sentinelHandler(domain.ErrInvalidWidget, http.StatusUnprocessableEntity, ErrorResponseCodeWidgetMisconfigured),
		sentinelHandler(domain.ErrMalformedEntry, http.StatusConflict, ErrorResponseCodeMalformedEntry),
		sentinelHandler(domain.ErrMalformedCounts, http.StatusBadGateway, ErrorResponseCodeBackendError),
		sentinelHandler(domain.ErrBackend, http.StatusBadGateway, ErrorResponseCodeBackendError),
	}
	return s
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessions.Create(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateSessionResponse{ID: id})
}

// DeleteSession handles DELETE /sessions/{session}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request, session string) {
	if err := s.sessions.Delete(r.Context(), session); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetParams handles GET /sessions/{session}/params.
func (s *Server) GetParams(w http.ResponseWriter, r *http.Request, session string) {
	q, err := s.sessions.Params(r.Context(), session)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ParamsResponse{Query: q})
}

// Search handles GET /sessions/{session}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request, session string) {
	resp, err := s.sessions.Search(r.Context(), session)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	docs := resp.Body.Docs
	if docs == nil {
		docs = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		NumFound: resp.Body.NumFound,
		Start:    resp.Body.Start,
		QTime:    resp.Header.QTime,
		Docs:     docs,
	})
}

// ApplyOperation handles POST /sessions/{session}/widgets/{widget}/{op}.
func (s *Server) ApplyOperation(w http.ResponseWriter, r *http.Request, session, widget, op string) {
	parsed, err := selection.ParseOp(op)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	var q valueQuery
	if err := s.query.Decode(&q, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "invalid query: "+err.Error())
		return
	}
	if q.Value == "" && parsed != selection.OpClear {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "value is required")
		return
	}

	changed, err := s.sessions.Apply(r.Context(), session, widget, parsed, q.Value)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChangeResponse{Changed: changed})
}

// GetSelection handles GET /sessions/{session}/widgets/{widget}/selection.
func (s *Server) GetSelection(w http.ResponseWriter, r *http.Request, session, widget string) {
	st, err := s.sessions.Selection(r.Context(), session, widget)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	values := st.Values
	if values == nil {
		values = []string{}
	}
	writeJSON(w, http.StatusOK, SelectionResponse{Values: values, Empty: st.Empty})
}

// GetPosition handles GET /sessions/{session}/widgets/{widget}/position.
func (s *Server) GetPosition(w http.ResponseWriter, r *http.Request, session, widget string) {
	var q valueQuery
	if err := s.query.Decode(&q, r.URL.Query()); err != nil || q.Value == "" {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "value is required")
		return
	}
	idx, err := s.sessions.Position(r.Context(), session, widget, q.Value)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PositionResponse{Index: idx})
}

// GetCounts handles GET /sessions/{session}/widgets/{widget}/counts.
func (s *Server) GetCounts(w http.ResponseWriter, r *http.Request, session, widget string) {
	counts, err := s.sessions.Counts(r.Context(), session, widget)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	out := make([]FacetCount, len(counts))
	for i, c := range counts {
		out[i] = FacetCount{Facet: c.Facet, Count: c.Count, Missing: c.Missing}
	}
	writeJSON(w, http.StatusOK, CountsResponse{Counts: out})
}

// ListWidgets handles GET /widgets.
func (s *Server) ListWidgets(w http.ResponseWriter, _ *http.Request) {
	widgets := s.sessions.Widgets()
	out := make([]Widget, len(widgets))
	for i, wd := range widgets {
		out[i] = Widget{
			ID:    wd.ID(),
			Field: wd.Field(),
			Kind:  wd.Kind().String(),
			Mode:  wd.Mode().String(),
			Tag:   wd.Tag(),
			Key:   wd.Key(),
			Ex:    wd.Ex(),
		}
	}
	writeJSON(w, http.StatusOK, WidgetListResponse{Widgets: out})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrSessionNotFound,
		domain.ErrWidgetNotFound,
		domain.ErrInvalidOperation,
		domain.ErrNoFacetKind,
		domain.ErrInvalidWidget,
		domain.ErrMalformedEntry,
		domain.ErrMalformedCounts,
		domain.ErrBackend,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Widget errors carry the widget id in the response.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		resp := ErrorResponse{Code: code, Message: msg}
		var we *domain.WidgetError
		if errors.As(err, &we) {
			resp.Widget = we.WidgetID
		}
		writeJSON(w, status, resp)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
