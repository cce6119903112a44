package gateway

import (
	"time"

	"go.uber.org/atomic"

	"github.com/easeaico/companion-engine/internal/apperr"
)

// DefaultMaxConcurrent bounds simultaneous upstream calls.
const DefaultMaxConcurrent = 50

// AdmissionController bounds in-flight upstream calls. Past capacity it
// rejects immediately rather than queueing.
type AdmissionController struct {
	inFlight      atomic.Int64
	maxConcurrent int64
	retryAfter    time.Duration
}

// NewAdmissionController creates a controller with the given capacity.
func NewAdmissionController(maxConcurrent int) *AdmissionController {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &AdmissionController{
		maxConcurrent: int64(maxConcurrent),
		retryAfter:    2 * time.Second,
	}
}

// Acquire admits one call or returns CapacityExceeded with a retry hint.
// The increment happens before any suspend point so concurrent callers cannot
// both pass the capacity check.
func (a *AdmissionController) Acquire() error {
	if a.inFlight.Inc() > a.maxConcurrent {
		a.inFlight.Dec()
		return apperr.CapacityExceeded(a.retryAfter)
	}
	return nil
}

// Release returns one admission slot. Must be called exactly once per
// successful Acquire, on every exit path.
func (a *AdmissionController) Release() {
	if a.inFlight.Dec() < 0 {
		// Unbalanced release; clamp rather than leak negative capacity.
		a.inFlight.Store(0)
	}
}

// InFlight reports the current number of admitted calls.
func (a *AdmissionController) InFlight() int64 {
	return a.inFlight.Load()
}
