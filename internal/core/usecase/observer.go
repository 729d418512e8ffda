package usecase

import "time"

// Observer receives business-level measurements from the use cases. The
// Prometheus metrics type in observability satisfies it; tests and the
// worker pass nothing and get the no-op.
type Observer interface {
	RecordLookup(service, path, outcome string)
	RecordCacheHit(service string)
	RecordProviderAttempt(service, provider, outcome string)
	RecordCascade(service, path string, attempts int, duration time.Duration)
	RecordHistoryRecord(service string, found bool)
}

type nopObserver struct{}

func (nopObserver) RecordLookup(string, string, string)                {}
func (nopObserver) RecordCacheHit(string)                              {}
func (nopObserver) RecordProviderAttempt(string, string, string)       {}
func (nopObserver) RecordCascade(string, string, int, time.Duration)   {}
func (nopObserver) RecordHistoryRecord(string, bool)                   {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
