package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/lisensia/lisensia_api/internal/models"
)

// NotificationRepository handles data access for outbound notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a pending notification row.
func (r *NotificationRepository) Create(n *models.Notification) error {
	const q = `
        INSERT INTO notifications (order_ref, payload, status, attempts)
        VALUES ($1, $2, $3, 0)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRowx(q, n.OrderID, n.Payload, models.NotificationPending).
		Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
}

// GetPending returns pending notifications eligible for a send attempt.
// SKIP LOCKED keeps concurrent worker instances from retrying the same row.
func (r *NotificationRepository) GetPending(maxRetries, limit int) ([]models.Notification, error) {
	const q = `
        SELECT * FROM notifications
        WHERE status = 'pending' AND attempts < $1
        ORDER BY created_at ASC
        LIMIT $2
        FOR UPDATE SKIP LOCKED`

	var list []models.Notification
	if err := r.db.Select(&list, q, maxRetries, limit); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkSent marks a notification as delivered.
func (r *NotificationRepository) MarkSent(id int) error {
	const q = `
        UPDATE notifications
        SET status = 'sent', sent_at = NOW(), updated_at = NOW()
        WHERE id = $1`

	_, err := r.db.Exec(q, id)
	return err
}

// MarkAttemptFailed records a failed send attempt; once attempts reach
// maxRetries the row is parked as failed and no longer retried.
func (r *NotificationRepository) MarkAttemptFailed(id int, maxRetries int, sendErr string) error {
	const q = `
        UPDATE notifications
        SET attempts = attempts + 1,
            last_error = $2,
            status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END,
            updated_at = NOW()
        WHERE id = $1`

	_, err := r.db.Exec(q, id, sendErr, maxRetries)
	return err
}
