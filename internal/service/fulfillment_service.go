package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/lisensia/lisensia_api/internal/models"
	"github.com/lisensia/lisensia_api/internal/repository"
	"github.com/lisensia/lisensia_api/internal/utils"
)

// FulfillmentStore is the transactional boundary the fulfillment core runs
// against. The production implementation is repository.FulfillmentRepository;
// tests substitute an in-memory store.
type FulfillmentStore interface {
	GetSoftwareByName(ctx context.Context, name string) (*models.Software, error)
	GetVersion(ctx context.Context, softwareID int, os, version string) (*models.SoftwareVersion, error)
	ReserveLicenses(ctx context.Context, p repository.ReserveParams) (*repository.Reservation, error)
	CreateOrder(ctx context.Context, o *models.Order) error
	ReleaseOrder(ctx context.Context, orderID int) (int, error)
}

// Outcome tags the non-error results of a fulfillment attempt.
type Outcome int

const (
	// OutcomeFulfilled: keys were claimed and an order was recorded.
	OutcomeFulfilled Outcome = iota
	// OutcomeNoLicenseRequired: the software does not draw from the pool;
	// only a download link (if any) is returned and no order is created.
	OutcomeNoLicenseRequired
	// OutcomeVersionNotFound: the software is searched by version and no
	// matching version exists. Not a hard error; no side effects.
	OutcomeVersionNotFound
	// OutcomeLinkOnly: the pool was short but the version has a download
	// link, so the link is returned without keys and without an order.
	OutcomeLinkOnly
)

// FindOrderRequest is one storefront fulfillment request.
type FindOrderRequest struct {
	OrderID    string
	ItemName   string
	OS         string
	Version    string
	ItemAmount int
}

// ProcessOrderRequest is the simplified fulfillment request without the
// link-only degraded path.
type ProcessOrderRequest struct {
	OrderID      string
	ItemName     string
	OS           string
	Version      string
	LicenseCount int
}

// FulfillmentResult is the tagged union of successful fulfillment outcomes.
// Failures (software not found, insufficient stock) are returned as errors.
type FulfillmentResult struct {
	Outcome      Outcome
	Item         string
	OrderID      *string
	DownloadLink *string
	Licenses     []string
}

// FulfillmentService implements order fulfillment: reserving license keys
// for a purchase and releasing them when the order is deleted.
type FulfillmentService struct {
	store         FulfillmentStore
	notifications *NotificationService
}

// NewFulfillmentService constructs a FulfillmentService. notifications may
// be nil, in which case fulfillment is silent.
func NewFulfillmentService(store FulfillmentStore, notifications *NotificationService) *FulfillmentService {
	return &FulfillmentService{store: store, notifications: notifications}
}

// FindOrder resolves a purchase request and, when the software requires
// licenses, atomically claims the requested number of unused keys.
//
// The branch policy is evaluated strictly in order: software lookup,
// no-license short-circuit, version resolution, availability under lock.
// Availability checked anywhere else is advisory; only the locked selection
// inside ReserveLicenses decides.
func (s *FulfillmentService) FindOrder(ctx context.Context, req FindOrderRequest) (*FulfillmentResult, error) {
	if req.ItemAmount < 1 {
		req.ItemAmount = 1
	}

	software, err := s.store.GetSoftwareByName(ctx, req.ItemName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrSoftwareNotFound
		}
		return nil, err
	}

	version, err := s.store.GetVersion(ctx, software.ID, req.OS, req.Version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if !software.RequiresLicense {
		// No order row is recorded on this path; see the documented fork
		// with ProcessOrder.
		return &FulfillmentResult{
			Outcome:      OutcomeNoLicenseRequired,
			Item:         software.Name,
			DownloadLink: versionLink(version),
			Licenses:     []string{},
		}, nil
	}

	if software.SearchByVersion && version == nil {
		return &FulfillmentResult{
			Outcome:  OutcomeVersionNotFound,
			Item:     software.Name,
			Licenses: []string{},
		}, nil
	}

	params := repository.ReserveParams{
		SoftwareID: software.ID,
		Quantity:   req.ItemAmount,
		OrderID:    req.OrderID,
		ItemName:   req.ItemName,
		OS:         req.OS,
		Version:    req.Version,
	}
	if software.SearchByVersion {
		params.VersionID = &version.ID
	}

	reservation, err := s.store.ReserveLicenses(ctx, params)
	if err != nil {
		if errors.Is(err, utils.ErrInsufficientStock) {
			if version != nil && version.DownloadLink != "" {
				return &FulfillmentResult{
					Outcome:      OutcomeLinkOnly,
					Item:         software.Name,
					DownloadLink: &version.DownloadLink,
					Licenses:     []string{},
				}, nil
			}
			return nil, utils.ErrInsufficientStock
		}
		return nil, err
	}

	s.fireNotification(&reservation.Order, reservation.LicenseKeys)

	return &FulfillmentResult{
		Outcome:      OutcomeFulfilled,
		Item:         software.Name,
		OrderID:      &reservation.Order.OrderID,
		DownloadLink: versionLink(version),
		Licenses:     reservation.LicenseKeys,
	}, nil
}

// ProcessOrder fulfills a purchase without the link-only degraded path: the
// version must exist, and a shortage is a hard failure. Unlike FindOrder it
// records an order even when the software needs no license.
func (s *FulfillmentService) ProcessOrder(ctx context.Context, req ProcessOrderRequest) (*FulfillmentResult, error) {
	if req.LicenseCount < 1 {
		req.LicenseCount = 1
	}

	software, err := s.store.GetSoftwareByName(ctx, req.ItemName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrSoftwareNotFound
		}
		return nil, err
	}

	version, err := s.store.GetVersion(ctx, software.ID, req.OS, req.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrVersionNotFound
		}
		return nil, err
	}

	if !software.RequiresLicense {
		order := models.Order{
			OrderID:      req.OrderID,
			ItemName:     req.ItemName,
			OS:           req.OS,
			Version:      req.Version,
			LicenseCount: 0,
			Status:       models.OrderStatusProcessed,
			SoftwareID:   &software.ID,
		}
		if err := s.store.CreateOrder(ctx, &order); err != nil {
			return nil, err
		}
		s.fireNotification(&order, nil)
		return &FulfillmentResult{
			Outcome:      OutcomeNoLicenseRequired,
			Item:         software.Name,
			OrderID:      &order.OrderID,
			DownloadLink: &version.DownloadLink,
			Licenses:     []string{},
		}, nil
	}

	// The process path never scopes the pool by version.
	reservation, err := s.store.ReserveLicenses(ctx, repository.ReserveParams{
		SoftwareID: software.ID,
		Quantity:   req.LicenseCount,
		OrderID:    req.OrderID,
		ItemName:   req.ItemName,
		OS:         req.OS,
		Version:    req.Version,
	})
	if err != nil {
		return nil, err
	}

	s.fireNotification(&reservation.Order, reservation.LicenseKeys)

	return &FulfillmentResult{
		Outcome:      OutcomeFulfilled,
		Item:         software.Name,
		OrderID:      &reservation.Order.OrderID,
		DownloadLink: &version.DownloadLink,
		Licenses:     reservation.LicenseKeys,
	}, nil
}

// ReleaseOrder reverses a reservation; the released keys are immediately
// eligible for a future claim. Returns the number of keys released.
func (s *FulfillmentService) ReleaseOrder(ctx context.Context, orderID int) (int, error) {
	released, err := s.store.ReleaseOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	log.Info().Int("order_id", orderID).Int("released", released).Msg("Order deleted, licenses returned to pool")
	return released, nil
}

// fireNotification queues an order notification without blocking the
// request; delivery failures are retried by the notify worker.
func (s *FulfillmentService) fireNotification(order *models.Order, keys []string) {
	if s.notifications == nil {
		return
	}
	o := *order
	go func() {
		if err := s.notifications.QueueOrderNotification(context.Background(), &o, keys); err != nil {
			log.Error().Err(err).Str("order_id", o.OrderID).Msg("Failed to queue order notification")
		}
	}()
}

func versionLink(v *models.SoftwareVersion) *string {
	if v == nil || v.DownloadLink == "" {
		return nil
	}
	return &v.DownloadLink
}
