package repository

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lisensia/lisensia_api/internal/models"
)

// OrderRepository handles non-transactional data access for orders.
// Reservation and compensating deletion live in FulfillmentRepository.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetAll returns all orders, newest first, each with its linked licenses.
func (r *OrderRepository) GetAll() ([]models.Order, error) {
	const q = `SELECT * FROM orders ORDER BY created_at DESC`

	var orders []models.Order
	if err := r.db.Select(&orders, q); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int, len(orders))
	idx := make(map[int]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		idx[orders[i].ID] = i
	}

	const linkQ = `
        SELECT ol.order_id AS order_ref, l.id, l.software_id, l.software_version_id,
               l.license_key, l.is_active, l.used_at, l.created_at, l.updated_at
        FROM order_licenses ol
        JOIN licenses l ON ol.license_id = l.id
        WHERE ol.order_id = ANY($1)
        ORDER BY l.id`

	rows, err := r.db.Queryx(linkQ, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var row orderLicenseRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		if i, ok := idx[row.OrderRef]; ok {
			orders[i].Licenses = append(orders[i].Licenses, row.toLicense())
		}
	}
	return orders, rows.Err()
}

// orderLicenseRow is a helper struct for scanning licenses joined with their
// owning order id.
type orderLicenseRow struct {
	OrderRef          int        `db:"order_ref"`
	ID                int        `db:"id"`
	SoftwareID        int        `db:"software_id"`
	SoftwareVersionID *int       `db:"software_version_id"`
	LicenseKey        string     `db:"license_key"`
	IsActive          bool       `db:"is_active"`
	UsedAt            *time.Time `db:"used_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

func (row *orderLicenseRow) toLicense() models.License {
	return models.License{
		ID:                row.ID,
		SoftwareID:        row.SoftwareID,
		SoftwareVersionID: row.SoftwareVersionID,
		LicenseKey:        row.LicenseKey,
		IsActive:          row.IsActive,
		UsedAt:            row.UsedAt,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

// GetByID returns a single order by internal id.
func (r *OrderRepository) GetByID(id int) (*models.Order, error) {
	const q = `SELECT * FROM orders WHERE id = $1 LIMIT 1`

	var o models.Order
	if err := r.db.Get(&o, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &o, nil
}

// Create inserts an order row with no license links (manual admin entry).
func (r *OrderRepository) Create(o *models.Order) error {
	const q = `
        INSERT INTO orders (order_id, item_name, os, version, license_count, status, software_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRowx(q, o.OrderID, o.ItemName, o.OS, o.Version, o.LicenseCount, o.Status, o.SoftwareID).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

// Update updates the mutable fields of an order.
func (r *OrderRepository) Update(o *models.Order) error {
	const q = `
        UPDATE orders
        SET order_id = $1, item_name = $2, os = $3, version = $4,
            license_count = $5, status = $6, updated_at = NOW()
        WHERE id = $7
        RETURNING updated_at`

	return r.db.QueryRowx(q, o.OrderID, o.ItemName, o.OS, o.Version, o.LicenseCount, o.Status, o.ID).
		Scan(&o.UpdatedAt)
}

// UsageRow is one per-software order count for the usage report.
type UsageRow struct {
	SoftwareName string `db:"software_name"`
	Count        int    `db:"count"`
}

// UsageBetween aggregates order counts per software for the date range.
func (r *OrderRepository) UsageBetween(start, end string) ([]UsageRow, error) {
	const q = `
        SELECT s.name AS software_name, COUNT(o.id) AS count
        FROM orders o
        JOIN software s ON o.software_id = s.id
        WHERE o.created_at >= $1::timestamptz AND o.created_at <= $2::timestamptz
        GROUP BY s.id, s.name
        ORDER BY count DESC`

	var rows []UsageRow
	if err := r.db.Select(&rows, q, start, end); err != nil {
		return nil, err
	}
	return rows, nil
}

// CountBetween returns the number of orders created in the date range.
func (r *OrderRepository) CountBetween(start, end string) (int, error) {
	const q = `
        SELECT COUNT(*) FROM orders
        WHERE created_at >= $1::timestamptz AND created_at <= $2::timestamptz`

	var n int
	if err := r.db.Get(&n, q, start, end); err != nil {
		return 0, err
	}
	return n, nil
}
