package selection

import "github.com/kailas-cloud/solrfacet/internal/domain/param"

// Store is the parameter store region a controller reads and writes.
// Implemented by *param.Store.
type Store interface {
	AddByValue(name, value string) (*param.Parameter, bool)
	RemoveByValue(name string, m param.Matcher) bool
	Find(name string, m param.Matcher) []int
	Params(name string) []*param.Parameter
}

// Observer is notified after a mutation actually changed the selection.
type Observer func(Change)
