package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/chadland/notification-service/internal/domain"
	"github.com/chadland/notification-service/internal/domain/port/repository"
)

var errNoTransaction = errors.New("memory unit of work: no transaction in progress")

// UnitOfWork implements repository.UnitOfWork over a shared in-memory
// Store. Aggregates handed out by its repositories are tracked copies;
// Commit writes their final state back into the store under the store
// mutex, giving last-committed-wins semantics for concurrent cascades.
type UnitOfWork struct {
	store       *Store
	active      bool
	requests    *requestRepository
	preferences *preferenceRepository
	pending     []domain.Event
	collected   []domain.Event
}

func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{
		store:       store,
		requests:    &requestRepository{store: store},
		preferences: &preferenceRepository{store: store},
	}
}

func (u *UnitOfWork) Begin(_ context.Context) error {
	u.active = true
	u.requests.begin()
	u.preferences.begin()
	return nil
}

func (u *UnitOfWork) Commit(_ context.Context) error {
	if !u.active {
		return errNoTransaction
	}

	u.store.mu.Lock()
	u.requests.flush()
	u.preferences.flush()
	u.store.mu.Unlock()

	// Pending events become collectible only now that the mutations are
	// durable.
	u.collected = append(u.collected, u.pending...)
	u.pending = nil
	u.active = false
	return nil
}

func (u *UnitOfWork) Rollback(_ context.Context) error {
	if !u.active {
		return nil // no-op after Commit, enabling the deferred-rollback idiom
	}
	u.pending = nil
	u.requests.begin()
	u.preferences.begin()
	u.active = false
	return nil
}

func (u *UnitOfWork) NotificationRequests() repository.NotificationRequestRepository {
	return u.requests
}

func (u *UnitOfWork) NotificationPreferences() repository.NotificationPreferencesRepository {
	return u.preferences
}

func (u *UnitOfWork) Record(events ...domain.Event) {
	u.pending = append(u.pending, events...)
}

func (u *UnitOfWork) CollectNewEvents() []domain.Event {
	events := u.collected
	u.collected = nil
	return events
}

// requestRepository tracks every aggregate it hands out so the unit of work
// can flush their final state on commit.
type requestRepository struct {
	store *Store
	seen  map[domain.NotificationID]*domain.NotificationRequest
}

func (r *requestRepository) begin() {
	r.seen = make(map[domain.NotificationID]*domain.NotificationRequest)
}

func (r *requestRepository) Get(_ context.Context, id domain.NotificationID) (*domain.NotificationRequest, error) {
	if tracked, ok := r.seen[id]; ok {
		return tracked, nil
	}

	r.store.mu.Lock()
	record, ok := r.store.requests[id]
	r.store.mu.Unlock()
	if !ok {
		return nil, nil
	}

	copied := copyRequest(record.request)
	if r.seen != nil {
		r.seen[id] = &copied
	}
	return &copied, nil
}

func (r *requestRepository) Add(_ context.Context, request *domain.NotificationRequest) error {
	if r.seen == nil {
		return errNoTransaction
	}
	r.seen[request.NotificationID] = request
	return nil
}

func (r *requestRepository) ListByUser(_ context.Context, userID domain.UserID) ([]*domain.NotificationRequest, error) {
	r.store.mu.Lock()
	records := make([]requestRecord, 0)
	for _, record := range r.store.requests {
		if record.request.UserID == userID {
			records = append(records, record)
		}
	}
	r.store.mu.Unlock()

	// Reverse chronological: newest insertion first.
	sort.Slice(records, func(i, j int) bool { return records[i].seq > records[j].seq })

	requests := make([]*domain.NotificationRequest, 0, len(records))
	for _, record := range records {
		copied := copyRequest(record.request)
		requests = append(requests, &copied)
	}
	return requests, nil
}

// flush upserts tracked aggregates; caller holds the store mutex.
func (r *requestRepository) flush() {
	for id, request := range r.seen {
		record, exists := r.store.requests[id]
		if !exists {
			r.store.seq++
			record = requestRecord{seq: r.store.seq}
		}
		record.request = copyRequest(*request)
		r.store.requests[id] = record
	}
}

type preferenceRepository struct {
	store *Store
	seen  map[domain.UserID]*domain.NotificationPreferences
}

func (r *preferenceRepository) begin() {
	r.seen = make(map[domain.UserID]*domain.NotificationPreferences)
}

func (r *preferenceRepository) Get(_ context.Context, userID domain.UserID) (*domain.NotificationPreferences, error) {
	if tracked, ok := r.seen[userID]; ok {
		return tracked, nil
	}

	r.store.mu.Lock()
	stored, ok := r.store.preferences[userID]
	r.store.mu.Unlock()
	if !ok {
		return nil, nil
	}

	copied := stored
	if r.seen != nil {
		r.seen[userID] = &copied
	}
	return &copied, nil
}

func (r *preferenceRepository) Add(_ context.Context, preferences *domain.NotificationPreferences) error {
	if r.seen == nil {
		return errNoTransaction
	}
	r.seen[preferences.UserID] = preferences
	return nil
}

// flush upserts tracked aggregates; caller holds the store mutex.
func (r *preferenceRepository) flush() {
	for userID, preferences := range r.seen {
		r.store.preferences[userID] = *preferences
	}
}
