package models

import "time"

// NotificationStatus enumerates delivery states of an outbound notification.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is one outbound message to the WhatsApp gateway about an
// order. Fulfillment writes a pending row and fires a send attempt; the
// notify worker retries rows that did not go out.
type Notification struct {
	ID        int                `db:"id" json:"id"`
	OrderID   *int               `db:"order_ref" json:"orderId,omitempty"`
	Payload   []byte             `db:"payload" json:"-"`
	Status    NotificationStatus `db:"status" json:"status"`
	Attempts  int                `db:"attempts" json:"attempts"`
	LastError *string            `db:"last_error" json:"lastError,omitempty"`
	SentAt    *time.Time         `db:"sent_at" json:"sentAt,omitempty"`
	CreatedAt time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `db:"updated_at" json:"-"`
}
