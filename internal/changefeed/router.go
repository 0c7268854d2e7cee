// internal/changefeed/router.go
package changefeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coachme-notifier/internal/common/logger"
	"coachme-notifier/internal/common/metrics"
)

// Handler reacts to one change event. Returned errors are logged by the
// router; they never cause redelivery.
type Handler interface {
	HandleChange(ctx context.Context, e Event) error
}

type HandlerFunc func(ctx context.Context, e Event) error

func (f HandlerFunc) HandleChange(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Invocations receives one call per finished handler invocation.
type Invocations interface {
	RecordInvocation(ctx context.Context, trigger string, err error)
}

type routeKey struct {
	collection string
	kind       Kind
}

type route struct {
	name    string
	timeout time.Duration
	handler Handler
}

// Router fans change events out to registered handlers, each in its own
// goroutine, with at most maxInFlight invocations running at once.
type Router struct {
	mu          sync.RWMutex
	routes      map[routeKey]route
	sem         chan struct{}
	wg          sync.WaitGroup
	logger      logger.Logger
	invocations Invocations
}

func NewRouter(maxInFlight int, log logger.Logger) *Router {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &Router{
		routes: make(map[routeKey]route),
		sem:    make(chan struct{}, maxInFlight),
		logger: log,
	}
}

// WithInvocations sets the invocation recorder and returns the router.
func (r *Router) WithInvocations(inv Invocations) *Router {
	r.invocations = inv
	return r
}

// Register routes events of kind on collection to h. A later registration
// for the same pair replaces the earlier one.
func (r *Router) Register(collection string, kind Kind, name string, timeout time.Duration, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[routeKey{collection, kind}] = route{name: name, timeout: timeout, handler: h}
}

func (r *Router) lookup(e Event) (route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.routes[routeKey{e.Collection, e.Kind}]
	return rt, ok
}

// Dispatch starts the handler for e and returns false when no handler is
// registered. It blocks while maxInFlight invocations are running.
func (r *Router) Dispatch(ctx context.Context, e Event) bool {
	rt, ok := r.lookup(e)
	if !ok {
		return false
	}

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		r.logger.Warn("change event dropped on shutdown", map[string]interface{}{
			"trigger":  rt.name,
			"recordId": e.ID,
		})
		return true
	}

	r.wg.Add(1)
	go func() {
		defer func() {
			<-r.sem
			r.wg.Done()
		}()
		r.invoke(ctx, rt, e)
	}()
	return true
}

func (r *Router) invoke(parent context.Context, rt route, e Event) {
	// in-flight invocations finish on their own deadline, not on shutdown
	ctx := context.WithoutCancel(parent)
	if rt.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.timeout)
		defer cancel()
	}

	gauge := metrics.HandlersActive.WithLabelValues(rt.name)
	gauge.Inc()
	defer gauge.Dec()

	err := r.safeHandle(ctx, rt, e)
	if err != nil {
		r.logger.Error("trigger invocation failed", map[string]interface{}{
			"trigger":    rt.name,
			"collection": e.Collection,
			"recordId":   e.ID,
			"error":      err,
		})
	}
	if r.invocations != nil {
		r.invocations.RecordInvocation(ctx, rt.name, err)
	}
}

func (r *Router) safeHandle(ctx context.Context, rt route, e Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return rt.handler.HandleChange(ctx, e)
}

// Wait blocks until all started invocations finish or ctx is done.
func (r *Router) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
