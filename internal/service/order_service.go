package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lisensia/lisensia_api/internal/cache"
	"github.com/lisensia/lisensia_api/internal/models"
	"github.com/lisensia/lisensia_api/internal/repository"
	"github.com/lisensia/lisensia_api/internal/utils"
)

// OrderService provides admin-facing order queries and reporting. The
// fulfillment paths live in FulfillmentService.
type OrderService struct {
	orderRepo  *repository.OrderRepository
	statsCache *cache.StatsCache
}

// NewOrderService constructs an OrderService. statsCache may be nil, in
// which case usage reports always hit the database.
func NewOrderService(orderRepo *repository.OrderRepository, statsCache *cache.StatsCache) *OrderService {
	return &OrderService{orderRepo: orderRepo, statsCache: statsCache}
}

// GetAll returns all orders with their linked licenses, newest first.
func (s *OrderService) GetAll() ([]models.Order, error) {
	return s.orderRepo.GetAll()
}

// GetByID returns one order.
func (s *OrderService) GetByID(id int) (*models.Order, error) {
	o, err := s.orderRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// Create records a manual order entry without touching the license pool.
// A business order id is generated when the caller does not supply one.
func (s *OrderService) Create(o *models.Order) error {
	if o.OrderID == "" {
		id, err := utils.GenerateOrderID()
		if err != nil {
			return err
		}
		o.OrderID = id
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	return s.orderRepo.Create(o)
}

// Update updates an order's mutable fields.
func (s *OrderService) Update(o *models.Order) error {
	if err := s.orderRepo.Update(o); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrOrderNotFound
		}
		return err
	}
	return nil
}

// Usage aggregates order counts per software for a date range. Results are
// cached briefly; the report is a dashboard aggregate, never an input to
// fulfillment decisions.
func (s *OrderService) Usage(ctx context.Context, start, end string) ([]repository.UsageRow, error) {
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}

	if s.statsCache != nil {
		if cached, err := s.statsCache.GetUsage(ctx, start, end); err != nil {
			log.Warn().Err(err).Msg("Usage cache read failed, falling back to database")
		} else if cached != nil {
			rows := make([]repository.UsageRow, len(cached))
			for i, e := range cached {
				rows[i] = repository.UsageRow{SoftwareName: e.Name, Count: e.Count}
			}
			return rows, nil
		}
	}

	rows, err := s.orderRepo.UsageBetween(start, end)
	if err != nil {
		return nil, err
	}

	if s.statsCache != nil {
		entries := make([]cache.UsageEntry, len(rows))
		for i, r := range rows {
			entries[i] = cache.UsageEntry{Name: r.SoftwareName, Count: r.Count}
		}
		if err := s.statsCache.SetUsage(ctx, start, end, entries); err != nil {
			log.Warn().Err(err).Msg("Usage cache write failed")
		}
	}
	return rows, nil
}

// Count returns the number of orders created in a date range.
func (s *OrderService) Count(start, end string) (int, error) {
	if err := validateDateRange(start, end); err != nil {
		return 0, err
	}
	return s.orderRepo.CountBetween(start, end)
}

func validateDateRange(start, end string) error {
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return errors.New("invalid start date, expected RFC3339")
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return errors.New("invalid end date, expected RFC3339")
	}
	if e.Before(s) {
		return errors.New("end date is before start date")
	}
	return nil
}
