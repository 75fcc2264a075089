package kvcache

// Hooks lightweight callbacks for cache events.
// Implementations MUST be cheap and non-blocking; they run inline on every
// operation. Failures are not hooks, they go to the ErrorHandler.
type Hooks interface {
	// Get found a usable value.
	Hit(storeKey string)
	// Get found nothing (or a zero value with ZeroIsMiss).
	Miss(storeKey string)
	// Store returned ok=false on Set (admission/backpressure).
	SetRejected(storeKey string)
	// An entry was deleted by the cache on read.
	// reason ∈ {"value_decode"}
	SelfHeal(storeKey, reason string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string)              {}
func (NopHooks) Miss(string)             {}
func (NopHooks) SetRejected(string)      {}
func (NopHooks) SelfHeal(string, string) {}
