package connector

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/faucetdb/driftguard/internal/model"
)

// ErrUnsupportedDriver is returned for a service whose driver has no
// registered factory.
var ErrUnsupportedDriver = errors.New("unsupported driver")

// Factory creates an unconnected Connector.
type Factory func() Connector

// Registry maps driver names to factories. Connections are short lived:
// each Open or Introspect builds a fresh connector, and concurrent
// introspections of one service share a single round trip.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	flight    singleflight.Group
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// RegisterDriver installs factory for driver, replacing any earlier one.
func (r *Registry) RegisterDriver(driver string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[driver] = factory
}

// Drivers returns the registered driver names, sorted.
func (r *Registry) Drivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	drivers := make([]string, 0, len(r.factories))
	for d := range r.factories {
		drivers = append(drivers, d)
	}
	slices.Sort(drivers)
	return drivers
}

// Open connects to svc and pings it. The caller owns the returned
// connector and must Disconnect it.
func (r *Registry) Open(ctx context.Context, svc model.ServiceConfig) (Connector, error) {
	r.mu.RLock()
	factory, ok := r.factories[svc.Driver]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnsupportedDriver, svc.Driver, r.Drivers())
	}

	conn := factory()
	if err := conn.Connect(ConfigFromService(svc)); err != nil {
		return nil, fmt.Errorf("connect service %q: %w", svc.Name, err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Disconnect() //nolint:errcheck
		return nil, fmt.Errorf("ping service %q: %w", svc.Name, err)
	}
	return conn, nil
}

type introspection struct {
	tables *model.Catalog
	procs  *model.ProcedureCatalog
}

// Introspect reads the tables and routines of svc over a fresh connection.
// Callers racing on the same service name receive the same catalogs, which
// they must treat as read-only.
func (r *Registry) Introspect(ctx context.Context, svc model.ServiceConfig) (*model.Catalog, *model.ProcedureCatalog, error) {
	v, err, _ := r.flight.Do(svc.Name, func() (interface{}, error) {
		conn, err := r.Open(ctx, svc)
		if err != nil {
			return nil, err
		}
		defer conn.Disconnect() //nolint:errcheck

		cat, err := conn.IntrospectCatalog(ctx)
		if err != nil {
			return nil, fmt.Errorf("introspect tables of %q: %w", svc.Name, err)
		}
		procs, err := conn.IntrospectProcedures(ctx)
		if err != nil {
			return nil, fmt.Errorf("introspect routines of %q: %w", svc.Name, err)
		}
		return introspection{tables: cat, procs: procs}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	res := v.(introspection)
	return res.tables, res.procs, nil
}
