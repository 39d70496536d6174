// Package metrics wraps a store.Backend to record Prometheus metrics about
// backend operations.
//
// Registered metrics:
//
//	stow_backend_ops_total{op="get",result="ok"}
//	stow_backend_ops_total{op="get",result="not_found"}
//	stow_backend_op_duration_seconds_bucket{op="put",le="0.005"}
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"go.hackfix.me/stow/store"
)

// Backend is an instrumented store.Backend.
type Backend struct {
	store.Backend
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// ListerBackend is an instrumented backend that supports enumeration.
type ListerBackend struct {
	*Backend
	lister store.Lister
}

var (
	_ store.Backend = &Backend{}
	_ store.Lister  = &ListerBackend{}
)

// Wrap instruments b and registers its metrics with reg. If b implements
// store.Lister, so does the returned backend.
func Wrap(b store.Backend, reg prometheus.Registerer) (store.Backend, error) {
	mb := &Backend{
		Backend: b,
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stow",
			Subsystem: "backend",
			Name:      "ops_total",
			Help:      "Number of backend operations, by operation and result.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stow",
			Subsystem: "backend",
			Name:      "op_duration_seconds",
			Help:      "Duration of backend operations.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{mb.ops, mb.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	if l, ok := b.(store.Lister); ok {
		return &ListerBackend{Backend: mb, lister: l}, nil
	}

	return mb, nil
}

// Unwrap returns the instrumented backend.
func (b *Backend) Unwrap() store.Backend {
	return b.Backend
}

func (b *Backend) Exists(namespace, key string) (bool, error) {
	defer b.observe("exists", time.Now())
	ok, err := b.Backend.Exists(namespace, key)
	b.count("exists", err)
	return ok, err
}

func (b *Backend) Put(namespace, key string, payload []byte, access store.Accessibility) error {
	defer b.observe("put", time.Now())
	err := b.Backend.Put(namespace, key, payload, access)
	b.count("put", err)
	return err
}

func (b *Backend) Get(namespace, key string) ([]byte, error) {
	defer b.observe("get", time.Now())
	val, err := b.Backend.Get(namespace, key)
	b.count("get", err)
	return val, err
}

func (b *Backend) Delete(namespace, key string) error {
	defer b.observe("delete", time.Now())
	err := b.Backend.Delete(namespace, key)
	b.count("delete", err)
	return err
}

func (b *Backend) DeleteAll(namespace string) error {
	defer b.observe("delete_all", time.Now())
	err := b.Backend.DeleteAll(namespace)
	b.count("delete_all", err)
	return err
}

func (b *ListerBackend) List(namespace string) ([]string, error) {
	defer b.observe("list", time.Now())
	keys, err := b.lister.List(namespace)
	b.count("list", err)
	return keys, err
}

func (b *Backend) observe(op string, start time.Time) {
	b.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (b *Backend) count(op string, err error) {
	b.ops.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrAccessDenied):
		return "denied"
	default:
		return "error"
	}
}
