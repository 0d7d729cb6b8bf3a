package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerOptions configures the router.
type ServerOptions struct {
	// BaseRouter receives the routes; a new router is created when nil.
	BaseRouter chi.Router
	// ErrorHandlerFunc reports path parameter binding failures.
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions registers the API routes on options.BaseRouter.
func HandlerWithOptions(s *Server, options ServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		}
	}
	b := binder{onError: options.ErrorHandlerFunc}

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/widgets", s.ListWidgets)

	r.Post("/sessions", s.CreateSession)
	r.Delete("/sessions/{session}", b.session(s.DeleteSession))
	r.Get("/sessions/{session}/params", b.session(s.GetParams))
	r.Get("/sessions/{session}/search", b.session(s.Search))

	r.Get("/sessions/{session}/widgets/{widget}/selection", b.widget(s.GetSelection))
	r.Get("/sessions/{session}/widgets/{widget}/position", b.widget(s.GetPosition))
	r.Get("/sessions/{session}/widgets/{widget}/counts", b.widget(s.GetCounts))
	r.Post("/sessions/{session}/widgets/{widget}/{op}", b.op(s.ApplyOperation))

	return r
}

// binder decodes path parameters the way generated oapi-codegen wrappers do.
type binder struct {
	onError func(w http.ResponseWriter, r *http.Request, err error)
}

func (b binder) path(r *http.Request, name string, dest *string) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false})
	if err != nil {
		return fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	if *dest == "" {
		return fmt.Errorf("parameter %s is required", name)
	}
	return nil
}

func (b binder) session(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var session string
		if err := b.path(r, "session", &session); err != nil {
			b.onError(w, r, err)
			return
		}
		h(w, r, session)
	}
}

func (b binder) widget(h func(http.ResponseWriter, *http.Request, string, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var session, widget string
		if err := b.path(r, "session", &session); err != nil {
			b.onError(w, r, err)
			return
		}
		if err := b.path(r, "widget", &widget); err != nil {
			b.onError(w, r, err)
			return
		}
		h(w, r, session, widget)
	}
}

func (b binder) op(h func(http.ResponseWriter, *http.Request, string, string, string)) http.HandlerFunc {
	return b.widget(func(w http.ResponseWriter, r *http.Request, session, widget string) {
		var op string
		if err := b.path(r, "op", &op); err != nil {
			b.onError(w, r, err)
			return
		}
		h(w, r, session, widget, op)
	})
}
