package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lisensia/lisensia_api/internal/models"
	"github.com/lisensia/lisensia_api/internal/utils"
)

// ReserveParams describes one reservation attempt against the license pool.
type ReserveParams struct {
	SoftwareID int
	// VersionID scopes the pool to one version when the software is
	// searched by version; nil means any key of the software qualifies.
	VersionID *int
	Quantity  int

	// Denormalized order fields.
	OrderID  string
	ItemName string
	OS       string
	Version  string
}

// Reservation is the committed result of a reservation transaction.
type Reservation struct {
	Order       models.Order
	LicenseKeys []string
}

// FulfillmentRepository owns the two transactions with real correctness
// concerns: claiming license keys for an order and releasing them when the
// order is deleted. Everything here runs in a single database transaction;
// no partial state is ever visible outside it.
type FulfillmentRepository struct {
	db *sqlx.DB
}

// NewFulfillmentRepository creates a new FulfillmentRepository.
func NewFulfillmentRepository(db *sqlx.DB) *FulfillmentRepository {
	return &FulfillmentRepository{db: db}
}

// GetSoftwareByName returns a software product matched case-insensitively.
func (r *FulfillmentRepository) GetSoftwareByName(ctx context.Context, name string) (*models.Software, error) {
	const q = `SELECT * FROM software WHERE LOWER(name) = LOWER($1) LIMIT 1`

	var s models.Software
	if err := r.db.GetContext(ctx, &s, q, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &s, nil
}

// GetVersion returns the version matching (software_id, os, version).
func (r *FulfillmentRepository) GetVersion(ctx context.Context, softwareID int, os, version string) (*models.SoftwareVersion, error) {
	const q = `
        SELECT * FROM software_versions
        WHERE software_id = $1 AND os = $2 AND version = $3
        LIMIT 1`

	var v models.SoftwareVersion
	if err := r.db.GetContext(ctx, &v, q, softwareID, os, version); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &v, nil
}

// ReserveLicenses atomically claims exactly p.Quantity unused license keys
// for the given scope and records the order that owns them.
//
// The candidate rows are selected FOR UPDATE in ascending id order so that
// concurrent reservations lock overlapping candidate sets in the same order
// instead of deadlocking. If fewer than p.Quantity rows can be locked the
// whole transaction rolls back and utils.ErrInsufficientStock is returned;
// a caller never observes a partial claim.
func (r *FulfillmentRepository) ReserveLicenses(ctx context.Context, p ReserveParams) (*Reservation, error) {
	if p.Quantity < 1 {
		return nil, fmt.Errorf("invalid quantity %d", p.Quantity)
	}

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	const lockQ = `
        SELECT id, license_key FROM licenses
        WHERE software_id = $1 AND is_active = false
          AND ($2::int IS NULL OR software_version_id = $2)
        ORDER BY id ASC
        LIMIT $3
        FOR UPDATE`

	type lockedRow struct {
		ID         int    `db:"id"`
		LicenseKey string `db:"license_key"`
	}
	var locked []lockedRow
	if err := tx.SelectContext(ctx, &locked, lockQ, p.SoftwareID, p.VersionID, p.Quantity); err != nil {
		return nil, err
	}
	if len(locked) < p.Quantity {
		return nil, utils.ErrInsufficientStock
	}

	ids := make([]int, len(locked))
	keys := make([]string, len(locked))
	for i, row := range locked {
		ids[i] = row.ID
		keys[i] = row.LicenseKey
	}

	const markQ = `
        UPDATE licenses
        SET is_active = true, used_at = NOW(), updated_at = NOW()
        WHERE id = ANY($1)`

	if _, err := tx.ExecContext(ctx, markQ, pq.Array(ids)); err != nil {
		return nil, err
	}

	order := models.Order{
		OrderID:      p.OrderID,
		ItemName:     p.ItemName,
		OS:           p.OS,
		Version:      p.Version,
		LicenseCount: p.Quantity,
		Status:       models.OrderStatusProcessed,
		SoftwareID:   &p.SoftwareID,
	}

	const orderQ = `
        INSERT INTO orders (order_id, item_name, os, version, license_count, status, software_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	if err := tx.QueryRowxContext(ctx, orderQ,
		order.OrderID, order.ItemName, order.OS, order.Version,
		order.LicenseCount, order.Status, order.SoftwareID,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return nil, err
	}

	const linkQ = `
        INSERT INTO order_licenses (order_id, license_id)
        SELECT $1, id FROM UNNEST($2::int[]) AS id`

	if _, err := tx.ExecContext(ctx, linkQ, order.ID, pq.Array(ids)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Reservation{Order: order, LicenseKeys: keys}, nil
}

// CreateOrder inserts an order with no license links, for fulfillment of
// software that does not require a license.
func (r *FulfillmentRepository) CreateOrder(ctx context.Context, o *models.Order) error {
	const q = `
        INSERT INTO orders (order_id, item_name, os, version, license_count, status, software_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRowxContext(ctx, q,
		o.OrderID, o.ItemName, o.OS, o.Version, o.LicenseCount, o.Status, o.SoftwareID,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

// ReleaseOrder reverses a reservation: every key linked to the order goes
// back to the unused pool, the join rows are removed, and the order row is
// deleted, all in one transaction. Returns the number of keys released.
//
// The order row is locked first so a concurrent release of the same order
// serializes here instead of double-releasing.
func (r *FulfillmentRepository) ReleaseOrder(ctx context.Context, orderID int) (int, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	const orderQ = `SELECT id FROM orders WHERE id = $1 FOR UPDATE`

	var id int
	if err := tx.GetContext(ctx, &id, orderQ, orderID); err != nil {
		if err == sql.ErrNoRows {
			return 0, utils.ErrOrderNotFound
		}
		return 0, err
	}

	// The join table is the source of truth for which keys the order owns.
	const linkedQ = `SELECT license_id FROM order_licenses WHERE order_id = $1 ORDER BY license_id`

	var licenseIDs []int
	if err := tx.SelectContext(ctx, &licenseIDs, linkedQ, orderID); err != nil {
		return 0, err
	}

	if len(licenseIDs) > 0 {
		// used_at is cleared rather than refreshed; a released key carries
		// no trace of the deleted order.
		const releaseQ = `
            UPDATE licenses
            SET is_active = false, used_at = NULL, updated_at = NOW()
            WHERE id = ANY($1)`

		if _, err := tx.ExecContext(ctx, releaseQ, pq.Array(licenseIDs)); err != nil {
			return 0, err
		}

		const unlinkQ = `DELETE FROM order_licenses WHERE order_id = $1`
		if _, err := tx.ExecContext(ctx, unlinkQ, orderID); err != nil {
			return 0, err
		}
	}

	const deleteQ = `DELETE FROM orders WHERE id = $1`
	if _, err := tx.ExecContext(ctx, deleteQ, orderID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(licenseIDs), nil
}
