package service

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/lisensia/lisensia_api/internal/models"
	"github.com/lisensia/lisensia_api/internal/notify"
	"github.com/lisensia/lisensia_api/internal/repository"
)

// NotificationService records outbound order notifications and delivers
// them through the configured sender. Every notification is persisted
// before the first send attempt so a gateway outage never loses one; the
// notify worker picks up pending rows and retries.
type NotificationService struct {
	repo       *repository.NotificationRepository
	sender     notify.Sender
	maxRetries int
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(repo *repository.NotificationRepository, sender notify.Sender, maxRetries int) *NotificationService {
	return &NotificationService{repo: repo, sender: sender, maxRetries: maxRetries}
}

// orderPayload is the JSON shape posted to the gateway.
type orderPayload struct {
	OrderID      string   `json:"order_id"`
	Item         string   `json:"item"`
	OS           string   `json:"os"`
	Version      string   `json:"version"`
	LicenseCount int      `json:"license_count"`
	Licenses     []string `json:"licenses"`
	Status       string   `json:"status"`
}

// QueueOrderNotification persists a notification for the order and tries to
// deliver it once inline. A failed first attempt is not an error for the
// caller; the row stays pending for the retry worker.
func (s *NotificationService) QueueOrderNotification(ctx context.Context, order *models.Order, keys []string) error {
	if keys == nil {
		keys = []string{}
	}
	payload, err := json.Marshal(orderPayload{
		OrderID:      order.OrderID,
		Item:         order.ItemName,
		OS:           order.OS,
		Version:      order.Version,
		LicenseCount: order.LicenseCount,
		Licenses:     keys,
		Status:       string(order.Status),
	})
	if err != nil {
		return err
	}

	n := models.Notification{
		OrderID: &order.ID,
		Payload: payload,
		Status:  models.NotificationPending,
	}
	if err := s.repo.Create(&n); err != nil {
		return err
	}

	s.attempt(ctx, &n)
	return nil
}

// DispatchPending retries every pending notification that has attempts
// left. Called by the notify worker on each tick.
func (s *NotificationService) DispatchPending(ctx context.Context) {
	pending, err := s.repo.GetPending(s.maxRetries, 20)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load pending notifications")
		return
	}
	for i := range pending {
		s.attempt(ctx, &pending[i])
	}
}

func (s *NotificationService) attempt(ctx context.Context, n *models.Notification) {
	if err := s.sender.Send(ctx, n.Payload); err != nil {
		log.Warn().Err(err).Int("notification_id", n.ID).Int("attempts", n.Attempts+1).
			Msg("Notification send failed")
		if markErr := s.repo.MarkAttemptFailed(n.ID, s.maxRetries, err.Error()); markErr != nil {
			log.Error().Err(markErr).Int("notification_id", n.ID).Msg("Failed to record notification attempt")
		}
		return
	}
	if err := s.repo.MarkSent(n.ID); err != nil {
		log.Error().Err(err).Int("notification_id", n.ID).Msg("Failed to mark notification sent")
	}
}
