package solr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/solrfacet/internal/domain"
)

const selectBody = `{
  "responseHeader": {"status": 0, "QTime": 3},
  "response": {"numFound": 2, "start": 0, "docs": [{"id": "1"}, {"id": "2"}]},
  "facet_counts": {
    "facet_queries": {},
    "facet_fields": {"color": ["red", 5, "blue", 3]},
    "facet_ranges": {"price": {"counts": ["0", 1], "gap": 10, "start": 0, "end": 10}}
  }
}`

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/solr/", Core: "products"}, srv.Client(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Core: "c"}, nil, nil); err == nil {
		t.Error("expected error without base url")
	}
	if _, err := New(Config{BaseURL: "http://localhost:8983/solr"}, nil, nil); err == nil {
		t.Error("expected error without core")
	}
}

func TestSelect_Success(t *testing.T) {
	var got url.Values
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/solr/products/select" {
			t.Errorf("path = %s", r.URL.Path)
		}
		got = r.URL.Query()
		_, _ = io.WriteString(w, selectBody)
	})

	params := url.Values{"q": {"*:*"}, "fq": {"{!tag=c}color:(red blue)", "size:m"}, "wt": {"xml"}}
	resp, err := c.Select(context.Background(), params)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	if got.Get("wt") != "json" {
		t.Errorf("wt = %q", got.Get("wt"))
	}
	if fq := got["fq"]; len(fq) != 2 || fq[0] != "{!tag=c}color:(red blue)" {
		t.Errorf("fq = %q", fq)
	}
	if params.Get("wt") != "xml" {
		t.Error("caller params must not be mutated")
	}
	if resp.Body.NumFound != 2 || len(resp.Body.Docs) != 2 {
		t.Errorf("body = %+v", resp.Body)
	}
	if string(resp.FacetCounts.Fields["color"]) == "" || resp.FacetCounts.Ranges["price"] == nil {
		t.Errorf("facet counts not decoded: %+v", resp.FacetCounts)
	}
}

func TestSelect_LongQueryUsesPOST(t *testing.T) {
	var method, contentType string
	var form url.Values
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, contentType = r.Method, r.Header.Get("Content-Type")
		_ = r.ParseForm()
		form = r.PostForm
		_, _ = io.WriteString(w, selectBody)
	})

	long := strings.Repeat("x", maxGETQuery)
	if _, err := c.Select(context.Background(), url.Values{"q": {long}}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if method != http.MethodPost || contentType != "application/x-www-form-urlencoded" {
		t.Errorf("method=%s content-type=%s", method, contentType)
	}
	if form.Get("q") != long || form.Get("wt") != "json" {
		t.Error("form body not sent")
	}
}

func TestSelect_ErrorStatus(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"responseHeader":{"status":400},"error":{"msg":"undefined field colour","code":400}}`)
	})

	_, err := c.Select(context.Background(), url.Values{"q": {"*:*"}})
	if !errors.Is(err, domain.ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
	if !strings.Contains(err.Error(), "undefined field colour") {
		t.Errorf("solr message missing: %v", err)
	}
}

func TestSelect_BadJSON(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>proxy error</html>`)
	})
	if _, err := c.Select(context.Background(), url.Values{}); !errors.Is(err, domain.ErrBackend) {
		t.Errorf("expected ErrBackend, got %v", err)
	}
}

func TestSelect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base, Core: "c", Timeout: time.Second}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Select(context.Background(), url.Values{}); !errors.Is(err, domain.ErrBackend) {
		t.Errorf("expected ErrBackend, got %v", err)
	}
}

func TestSelect_CoalescesIdenticalQueries(t *testing.T) {
	var hits atomic.Int32
	arrived := make(chan struct{})
	release := make(chan struct{})
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			close(arrived)
		}
		<-release
		_, _ = io.WriteString(w, selectBody)
	})

	const n = 8
	params := url.Values{"q": {"*:*"}, "fq": {"color:red"}}
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Select(context.Background(), params)
			errs <- err
		}()
	}

	<-arrived
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Select: %v", err)
		}
	}
	if h := hits.Load(); h != 1 {
		t.Errorf("expected 1 backend hit, got %d", h)
	}
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		wantErr bool
	}{
		{"ok", http.StatusOK, `{"status":"OK"}`, false},
		{"not ok", http.StatusOK, `{"status":"FAIL"}`, true},
		{"server error", http.StatusServiceUnavailable, `{}`, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/solr/products/admin/ping" {
					t.Errorf("path = %s", r.URL.Path)
				}
				w.WriteHeader(tc.code)
				_, _ = io.WriteString(w, tc.body)
			})
			err := c.Ping(context.Background())
			if (err != nil) != tc.wantErr {
				t.Errorf("Ping err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
