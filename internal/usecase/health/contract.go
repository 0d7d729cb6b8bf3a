package health

import "context"

// DBPinger checks session store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// BackendPinger checks search backend availability.
type BackendPinger interface {
	Ping(ctx context.Context) error
}
