package ldap

import "time"

// Observer receives operational events from an Adapter. Implementations
// must be safe for concurrent use.
type Observer interface {
	OperationCompleted(operation string, duration time.Duration, err error)
	PagesFetched(operation string, pages, entries int)
	SchemaLookup(kind string, hit bool)
}

type nopObserver struct{}

func (nopObserver) OperationCompleted(string, time.Duration, error) {}
func (nopObserver) PagesFetched(string, int, int)                 {}
func (nopObserver) SchemaLookup(string, bool)                     {}
