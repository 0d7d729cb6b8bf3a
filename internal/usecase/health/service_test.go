package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck(t *testing.T) {
	down := &mockPinger{err: errors.New("conn refused")}
	up := &mockPinger{}

	tests := []struct {
		name    string
		db      DBPinger
		backend BackendPinger
		status  Status
		checks  map[string]CheckResult
	}{
		{"all healthy", up, up, Healthy, map[string]CheckResult{"database": CheckOK, "solr": CheckOK}},
		{"db down", down, up, Degraded, map[string]CheckResult{"database": CheckError, "solr": CheckOK}},
		{"solr down", up, down, Degraded, map[string]CheckResult{"database": CheckOK, "solr": CheckError}},
		{"both down", down, down, Unhealthy, map[string]CheckResult{"database": CheckError, "solr": CheckError}},
		{"no backend", up, nil, Healthy, map[string]CheckResult{"database": CheckOK}},
		{"no backend, db down", down, nil, Unhealthy, map[string]CheckResult{"database": CheckError}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := New(tc.db, tc.backend).Check(context.Background())
			if r.Status != tc.status {
				t.Errorf("expected %q, got %q", tc.status, r.Status)
			}
			if len(r.Checks) != len(tc.checks) {
				t.Errorf("expected %d checks, got %v", len(tc.checks), r.Checks)
			}
			for k, want := range tc.checks {
				if r.Checks[k] != want {
					t.Errorf("%s: expected %q, got %q", k, want, r.Checks[k])
				}
			}
		})
	}
}
