package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/chadland/notification-service/internal/domain"
	"github.com/chadland/notification-service/internal/domain/port/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Factory creates one UnitOfWork per inbound message cascade, all sharing
// the same connection pool.
type Factory struct {
	pool *pgxpool.Pool
}

func NewFactory(pool *pgxpool.Pool) *Factory {
	return &Factory{pool: pool}
}

func (f *Factory) New() repository.UnitOfWork {
	return NewUnitOfWork(f.pool)
}

// UnitOfWork scopes one database transaction per handler invocation.
// Aggregates loaded or added through its repositories are tracked and
// upserted on Commit, so mutations made by handlers after loading are
// persisted without an explicit save call.
type UnitOfWork struct {
	pool *pgxpool.Pool
	tx   pgx.Tx

	requests    *requestRepository
	preferences *preferenceRepository

	pending   []domain.Event
	collected []domain.Event
}

func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	u := &UnitOfWork{pool: pool}
	u.requests = &requestRepository{uow: u}
	u.preferences = &preferenceRepository{uow: u}
	return u
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return errors.New("transaction already in progress")
	}
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	u.tx = tx
	u.requests.seen = make(map[domain.NotificationID]*domain.NotificationRequest)
	u.preferences.seen = make(map[domain.UserID]*domain.NotificationPreferences)
	return nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return errors.New("no transaction in progress")
	}
	if err := u.requests.flush(ctx, u.tx); err != nil {
		return err
	}
	if err := u.preferences.flush(ctx, u.tx); err != nil {
		return err
	}
	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	u.tx = nil
	u.collected = append(u.collected, u.pending...)
	u.pending = nil
	return nil
}

// Rollback after Commit is a no-op, allowing handlers to defer it
// unconditionally.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback(ctx)
	u.tx = nil
	u.pending = nil
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
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

// querier returns the active transaction, falling back to the pool for
// reads outside a transaction (the history view).
func (u *UnitOfWork) querier() interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
} {
	if u.tx != nil {
		return u.tx
	}
	return u.pool
}

type requestRepository struct {
	uow  *UnitOfWork
	seen map[domain.NotificationID]*domain.NotificationRequest
}

const requestColumns = `notification_id, userid, notification_type, recipient_email, subject, content, template_vars, status, retry_count`

func scanRequest(row pgx.Row) (*domain.NotificationRequest, error) {
	var (
		notificationID   string
		userID           string
		notificationType string
		recipientEmail   string
		subject          string
		content          string
		templateVars     map[string]string
		status           string
		retryCount       int
	)
	err := row.Scan(
		&notificationID,
		&userID,
		&notificationType,
		&recipientEmail,
		&subject,
		&content,
		&templateVars,
		&status,
		&retryCount,
	)
	if err != nil {
		return nil, err
	}
	if templateVars == nil {
		templateVars = map[string]string{}
	}
	return &domain.NotificationRequest{
		NotificationID:   domain.NotificationID(notificationID),
		UserID:           domain.UserID(userID),
		NotificationType: domain.NotificationType(notificationType),
		RecipientEmail:   domain.NotificationEmail(recipientEmail),
		Subject:          subject,
		Content:          content,
		TemplateVars:     templateVars,
		Status:           domain.NotificationStatus(status),
		RetryCount:       retryCount,
	}, nil
}

func (r *requestRepository) Get(ctx context.Context, id domain.NotificationID) (*domain.NotificationRequest, error) {
	if req, ok := r.seen[id]; ok {
		return req, nil
	}
	row := r.uow.querier().QueryRow(ctx,
		`SELECT `+requestColumns+` FROM notification_requests WHERE notification_id = $1`, string(id))
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading notification request %s: %w", id, err)
	}
	if r.seen != nil {
		r.seen[id] = req
	}
	return req, nil
}

func (r *requestRepository) Add(_ context.Context, request *domain.NotificationRequest) error {
	if r.seen == nil {
		return errors.New("no transaction in progress")
	}
	r.seen[request.NotificationID] = request
	return nil
}

func (r *requestRepository) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.NotificationRequest, error) {
	rows, err := r.uow.querier().Query(ctx,
		`SELECT `+requestColumns+` FROM notification_requests WHERE userid = $1 ORDER BY created_at DESC`,
		string(userID))
	if err != nil {
		return nil, fmt.Errorf("listing notification requests for user %s: %w", userID, err)
	}
	defer rows.Close()

	var requests []*domain.NotificationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning notification request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing notification requests for user %s: %w", userID, err)
	}
	return requests, nil
}

func (r *requestRepository) flush(ctx context.Context, tx pgx.Tx) error {
	for _, req := range r.seen {
		_, err := tx.Exec(ctx, `
			INSERT INTO notification_requests
				(notification_id, userid, notification_type, recipient_email, subject, content, template_vars, status, retry_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (notification_id) DO UPDATE SET
				status = EXCLUDED.status,
				retry_count = EXCLUDED.retry_count,
				updated_at = now()`,
			string(req.NotificationID),
			string(req.UserID),
			string(req.NotificationType),
			string(req.RecipientEmail),
			req.Subject,
			req.Content,
			req.TemplateVars,
			string(req.Status),
			req.RetryCount,
		)
		if err != nil {
			return fmt.Errorf("persisting notification request %s: %w", req.NotificationID, err)
		}
	}
	return nil
}

type preferenceRepository struct {
	uow  *UnitOfWork
	seen map[domain.UserID]*domain.NotificationPreferences
}

func (r *preferenceRepository) Get(ctx context.Context, userID domain.UserID) (*domain.NotificationPreferences, error) {
	if prefs, ok := r.seen[userID]; ok {
		return prefs, nil
	}
	var (
		storedUserID string
		email        string
		flags        map[string]bool
	)
	row := r.uow.querier().QueryRow(ctx,
		`SELECT userid, notification_email, preferences FROM notification_preferences WHERE userid = $1`,
		string(userID))
	err := row.Scan(&storedUserID, &email, &flags)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading notification preferences for user %s: %w", userID, err)
	}
	prefs := &domain.NotificationPreferences{
		UserID:            domain.UserID(storedUserID),
		NotificationEmail: domain.NotificationEmail(email),
		Settings:          domain.NewPreferenceSettings(flags),
	}
	if r.seen != nil {
		r.seen[userID] = prefs
	}
	return prefs, nil
}

func (r *preferenceRepository) Add(_ context.Context, preferences *domain.NotificationPreferences) error {
	if r.seen == nil {
		return errors.New("no transaction in progress")
	}
	r.seen[preferences.UserID] = preferences
	return nil
}

func (r *preferenceRepository) flush(ctx context.Context, tx pgx.Tx) error {
	for _, prefs := range r.seen {
		_, err := tx.Exec(ctx, `
			INSERT INTO notification_preferences (userid, notification_email, preferences)
			VALUES ($1, $2, $3)
			ON CONFLICT (userid) DO UPDATE SET
				notification_email = EXCLUDED.notification_email,
				preferences = EXCLUDED.preferences,
				updated_at = now()`,
			string(prefs.UserID),
			string(prefs.NotificationEmail),
			prefs.Settings.ToMap(),
		)
		if err != nil {
			return fmt.Errorf("persisting notification preferences for user %s: %w", prefs.UserID, err)
		}
	}
	return nil
}

var _ repository.UnitOfWorkFactory = (*Factory)(nil)
var _ repository.UnitOfWork = (*UnitOfWork)(nil)
