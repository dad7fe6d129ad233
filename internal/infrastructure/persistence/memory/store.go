// Package memory provides a mutex-guarded in-memory implementation of the
// repository and unit-of-work ports. It backs the "memory" storage driver
// and the handler test suites; semantics mirror the postgres implementation,
// including copy-on-read aggregates and last-committed-wins on concurrent
// updates to the same row.
package memory

import (
	"sync"

	"github.com/chadland/notification-service/internal/domain"
	"github.com/chadland/notification-service/internal/domain/port/repository"
)

// Store is the shared storage behind memory units of work. All access goes
// through a unit of work; the store itself only guards its maps.
type Store struct {
	mu          sync.Mutex
	requests    map[domain.NotificationID]requestRecord
	preferences map[domain.UserID]domain.NotificationPreferences
	seq         uint64
}

// requestRecord pairs the stored aggregate with an insertion sequence used
// to order ListByUser results reverse chronologically.
type requestRecord struct {
	request domain.NotificationRequest
	seq     uint64
}

func NewStore() *Store {
	return &Store{
		requests:    make(map[domain.NotificationID]requestRecord),
		preferences: make(map[domain.UserID]domain.NotificationPreferences),
	}
}

// Factory creates one memory unit of work per cascade, all sharing the same
// store.
type Factory struct {
	store *Store
}

func NewFactory(store *Store) *Factory {
	return &Factory{store: store}
}

func (f *Factory) New() repository.UnitOfWork {
	return NewUnitOfWork(f.store)
}

func copyRequest(r domain.NotificationRequest) domain.NotificationRequest {
	vars := make(map[string]string, len(r.TemplateVars))
	for k, v := range r.TemplateVars {
		vars[k] = v
	}
	r.TemplateVars = vars
	return r
}
