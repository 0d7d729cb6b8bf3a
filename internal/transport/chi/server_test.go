package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/solrfacet/internal/db/memory"
	"github.com/kailas-cloud/solrfacet/internal/domain"
	"github.com/kailas-cloud/solrfacet/internal/domain/facet"
	"github.com/kailas-cloud/solrfacet/internal/domain/response"
	sessionrepo "github.com/kailas-cloud/solrfacet/internal/repository/session"
	healthuc "github.com/kailas-cloud/solrfacet/internal/usecase/health"
	searchuc "github.com/kailas-cloud/solrfacet/internal/usecase/search"
)

// fakeBackend answers every select with the same facet counts.
type fakeBackend struct {
	mu   sync.Mutex
	err  error
	seen []url.Values
}

func (f *fakeBackend) Select(_ context.Context, params url.Values) (*response.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, params)
	if f.err != nil {
		return nil, f.err
	}
	return &response.Response{
		Body: response.Body{NumFound: 1, Docs: []json.RawMessage{json.RawMessage(`{"id":"1"}`)}},
		FacetCounts: &response.FacetCounts{Fields: map[string]json.RawMessage{
			"color": json.RawMessage(`["red",5,"blue",3]`),
		}},
	}, nil
}

func (f *fakeBackend) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeBackend) last() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seen) == 0 {
		return nil
	}
	return f.seen[len(f.seen)-1]
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	srv     *httptest.Server
	backend *fakeBackend
}

func newTestEnv(t *testing.T, dbErr error) *testEnv {
	t.Helper()
	var widgets []facet.Widget
	for _, cfg := range []facet.Config{
		{ID: "colors", Field: "color", Kind: facet.KindField, Multivalue: true, Union: true, Tag: "c", Ex: "c"},
		{ID: "size", Field: "size", Kind: facet.KindField},
		{ID: "raw", Field: "brand"},
	} {
		w, err := facet.New(cfg)
		if err != nil {
			t.Fatalf("facet.New(%s): %v", cfg.ID, err)
		}
		widgets = append(widgets, w)
	}

	backend := &fakeBackend{}
	repo := sessionrepo.New(memory.NewStore(), "test:", time.Hour)
	sessions, err := searchuc.New(searchuc.Config{
		Widgets:  widgets,
		Defaults: []searchuc.Default{{Name: "q", Value: "*:*"}},
	}, backend, repo, nil, nil)
	if err != nil {
		t.Fatalf("search.New: %v", err)
	}
	health := healthuc.New(fakePinger{err: dbErr}, fakePinger{})

	srv := httptest.NewServer(HandlerWithOptions(NewServer(sessions, health, nil), ServerOptions{}))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, backend: backend}
}

func (e *testEnv) do(t *testing.T, method, path string, out any) int {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, e.srv.URL+path, http.NoBody)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) session(t *testing.T) string {
	t.Helper()
	var created CreateSessionResponse
	if code := e.do(t, http.MethodPost, "/sessions", &created); code != http.StatusCreated {
		t.Fatalf("create session: status %d", code)
	}
	if created.ID == "" {
		t.Fatal("empty session id")
	}
	return created.ID
}

func TestServer_SelectionFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.session(t)
	base := "/sessions/" + id + "/widgets/colors"

	for _, v := range []string{"red", "blue"} {
		var ch ChangeResponse
		if code := env.do(t, http.MethodPost, base+"/append?value="+v, &ch); code != http.StatusOK || !ch.Changed {
			t.Fatalf("append %s: status %d changed %v", v, code, ch.Changed)
		}
	}

	var ch ChangeResponse
	if code := env.do(t, http.MethodPost, base+"/append?value=red", &ch); code != http.StatusOK || ch.Changed {
		t.Errorf("repeat append: status %d changed %v", code, ch.Changed)
	}

	var sel SelectionResponse
	if code := env.do(t, http.MethodGet, base+"/selection", &sel); code != http.StatusOK {
		t.Fatalf("selection: status %d", code)
	}
	if strings.Join(sel.Values, ",") != "red,blue" || sel.Empty {
		t.Errorf("selection = %+v", sel)
	}

	var pos PositionResponse
	env.do(t, http.MethodGet, base+"/position?value=blue", &pos)
	if pos.Index != 1 {
		t.Errorf("position of blue = %d", pos.Index)
	}

	var params ParamsResponse
	env.do(t, http.MethodGet, "/sessions/"+id+"/params", &params)
	q, err := url.ParseQuery(params.Query)
	if err != nil {
		t.Fatalf("parse params: %v", err)
	}
	if got := q.Get("fq"); got != "{!tag=c}color:(red blue)" {
		t.Errorf("fq = %q", got)
	}
	if got := env.backend.last().Get("fq"); got != "{!tag=c}color:(red blue)" {
		t.Errorf("backend fq = %q", got)
	}

	if code := env.do(t, http.MethodPost, base+"/clear", &ch); code != http.StatusOK || !ch.Changed {
		t.Errorf("clear: status %d changed %v", code, ch.Changed)
	}
	env.do(t, http.MethodGet, base+"/selection", &sel)
	if !sel.Empty || len(sel.Values) != 0 {
		t.Errorf("selection after clear = %+v", sel)
	}
}

func TestServer_CountsAndSearch(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.session(t)

	var counts CountsResponse
	if code := env.do(t, http.MethodGet, "/sessions/"+id+"/widgets/colors/counts", &counts); code != http.StatusOK {
		t.Fatalf("counts: status %d", code)
	}
	want := []FacetCount{{Facet: "red", Count: 5}, {Facet: "blue", Count: 3}}
	if fmt.Sprint(counts.Counts) != fmt.Sprint(want) {
		t.Errorf("counts = %+v", counts.Counts)
	}

	var search SearchResponse
	if code := env.do(t, http.MethodGet, "/sessions/"+id+"/search", &search); code != http.StatusOK {
		t.Fatalf("search: status %d", code)
	}
	if search.NumFound != 1 || len(search.Docs) != 1 {
		t.Errorf("search = %+v", search)
	}
}

func TestServer_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.session(t)
	sess := "/sessions/" + id

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantCode   ErrorResponseCode
		wantWidget string
	}{
		{"unknown session", http.MethodGet, "/sessions/nope/params", http.StatusNotFound, ErrorResponseCodeSessionNotFound, ""},
		{"unknown widget", http.MethodGet, sess + "/widgets/nope/selection", http.StatusNotFound, ErrorResponseCodeWidgetNotFound, ""},
		{"unknown op", http.MethodPost, sess + "/widgets/size/toggle?value=m", http.StatusBadRequest, ErrorResponseCodeInvalidOperation, ""},
		{"add on single widget", http.MethodPost, sess + "/widgets/size/add?value=m", http.StatusBadRequest, ErrorResponseCodeInvalidOperation, "size"},
		{"missing value", http.MethodPost, sess + "/widgets/size/set", http.StatusBadRequest, ErrorResponseCodeBadRequest, ""},
		{"position without value", http.MethodGet, sess + "/widgets/size/position", http.StatusBadRequest, ErrorResponseCodeBadRequest, ""},
		{"counts without kind", http.MethodGet, sess + "/widgets/raw/counts", http.StatusUnprocessableEntity, ErrorResponseCodeWidgetMisconfigured, "raw"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var errResp ErrorResponse
			if code := env.do(t, tc.method, tc.path, &errResp); code != tc.wantStatus {
				t.Errorf("status = %d, want %d", code, tc.wantStatus)
			}
			if errResp.Code != tc.wantCode {
				t.Errorf("code = %s, want %s", errResp.Code, tc.wantCode)
			}
			if errResp.Widget != tc.wantWidget {
				t.Errorf("widget = %q, want %q", errResp.Widget, tc.wantWidget)
			}
		})
	}
}

func TestServer_BackendError(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.session(t)
	env.backend.fail(fmt.Errorf("%w: connection refused", domain.ErrBackend))

	var errResp ErrorResponse
	if code := env.do(t, http.MethodGet, "/sessions/"+id+"/search", &errResp); code != http.StatusBadGateway {
		t.Errorf("status = %d", code)
	}
	if errResp.Code != ErrorResponseCodeBackendError {
		t.Errorf("code = %s", errResp.Code)
	}
	if strings.Contains(errResp.Message, "connection refused") {
		t.Errorf("internal detail leaked: %q", errResp.Message)
	}
}

func TestServer_DeleteSession(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.session(t)

	if code := env.do(t, http.MethodDelete, "/sessions/"+id, nil); code != http.StatusNoContent {
		t.Fatalf("delete: status %d", code)
	}
	var errResp ErrorResponse
	if code := env.do(t, http.MethodGet, "/sessions/"+id+"/params", &errResp); code != http.StatusNotFound {
		t.Errorf("params after delete: status %d", code)
	}
	if code := env.do(t, http.MethodDelete, "/sessions/"+id, &errResp); code != http.StatusNotFound {
		t.Errorf("second delete: status %d", code)
	}
}

func TestServer_ListWidgets(t *testing.T) {
	env := newTestEnv(t, nil)

	var list WidgetListResponse
	if code := env.do(t, http.MethodGet, "/widgets", &list); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(list.Widgets) != 3 {
		t.Fatalf("widgets = %+v", list.Widgets)
	}
	colors := list.Widgets[0]
	if colors.ID != "colors" || colors.Mode != "union" || colors.Kind != "field" || colors.Tag != "c" {
		t.Errorf("colors = %+v", colors)
	}
	if list.Widgets[2].Kind != "none" {
		t.Errorf("raw kind = %s", list.Widgets[2].Kind)
	}
}

func TestServer_Health(t *testing.T) {
	tests := []struct {
		name       string
		dbErr      error
		wantStatus int
		want       string
	}{
		{"healthy", nil, http.StatusOK, "ok"},
		{"degraded", errors.New("down"), http.StatusServiceUnavailable, "degraded"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, tc.dbErr)
			var h HealthResponse
			if code := env.do(t, http.MethodGet, "/health", &h); code != tc.wantStatus {
				t.Errorf("status = %d, want %d", code, tc.wantStatus)
			}
			if h.Status != tc.want || h.Checks["solr"] != "ok" {
				t.Errorf("health = %+v", h)
			}
		})
	}
}
