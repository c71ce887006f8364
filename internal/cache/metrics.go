package cache

// Metrics receives coordinator lifecycle events.
type Metrics interface {
	// Hit is called when GetOrFetch is served from storage.
	Hit()

	// Miss is called when GetOrFetch has to run the producer.
	Miss()

	// Expire is called when an entry is evicted because its lifetime elapsed,
	// either lazily or by its timer.
	Expire()

	// ProducerFailure is called when the producer returns an error.
	ProducerFailure()
}

// NoopMetrics ignores every event.
type NoopMetrics struct{}

func (NoopMetrics) Hit()             {}
func (NoopMetrics) Miss()            {}
func (NoopMetrics) Expire()          {}
func (NoopMetrics) ProducerFailure() {}
