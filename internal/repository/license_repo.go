package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lisensia/lisensia_api/internal/models"
)

// LicenseRepository handles data access for the license key pool.
//
// It only performs non-locking reads and admin mutations; the reservation
// path that flips keys to used lives in FulfillmentRepository, inside a
// single row-locking transaction.
type LicenseRepository struct {
	db *sqlx.DB
}

// NewLicenseRepository creates a new LicenseRepository.
func NewLicenseRepository(db *sqlx.DB) *LicenseRepository {
	return &LicenseRepository{db: db}
}

const licenseJoinedSelect = `
        SELECT l.*, s.name AS software_name, v.os AS os, v.version AS version
        FROM licenses l
        JOIN software s ON l.software_id = s.id
        LEFT JOIN software_versions v ON l.software_version_id = v.id`

// GetAll returns all licenses with software/version info joined in.
func (r *LicenseRepository) GetAll() ([]models.License, error) {
	const q = licenseJoinedSelect + ` ORDER BY l.id`

	var list []models.License
	if err := r.db.Select(&list, q); err != nil {
		return nil, err
	}
	return list, nil
}

// GetByID returns a single license by id with software/version info.
func (r *LicenseRepository) GetByID(id int) (*models.License, error) {
	const q = licenseJoinedSelect + ` WHERE l.id = $1 LIMIT 1`

	var l models.License
	if err := r.db.Get(&l, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &l, nil
}

// GetAllAvailable returns every unused license with software/version info.
// Advisory read only: the authoritative availability check happens under
// lock at reservation time.
func (r *LicenseRepository) GetAllAvailable() ([]models.License, error) {
	const q = licenseJoinedSelect + ` WHERE l.is_active = false ORDER BY l.id`

	var list []models.License
	if err := r.db.Select(&list, q); err != nil {
		return nil, err
	}
	return list, nil
}

// GetAvailable returns up to limit unused licenses for a software product.
func (r *LicenseRepository) GetAvailable(softwareID, limit int) ([]models.License, error) {
	const q = `
        SELECT * FROM licenses
        WHERE software_id = $1 AND is_active = false
        ORDER BY id
        LIMIT $2`

	var list []models.License
	if err := r.db.Select(&list, q, softwareID, limit); err != nil {
		return nil, err
	}
	return list, nil
}

// Create inserts a single license key.
func (r *LicenseRepository) Create(l *models.License) error {
	const q = `
        INSERT INTO licenses (software_id, software_version_id, license_key, is_active, used_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRowx(q, l.SoftwareID, l.SoftwareVersionID, l.LicenseKey, l.IsActive, l.UsedAt).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

// BulkCreate inserts many license keys, skipping keys that already exist.
// The unique constraint on license_key is the backstop; ON CONFLICT keeps
// the import idempotent. Returns the number of rows actually inserted.
func (r *LicenseRepository) BulkCreate(softwareID int, versionID *int, keys []string) (int, error) {
	const q = `
        INSERT INTO licenses (software_id, software_version_id, license_key, is_active, used_at)
        SELECT $1, $2, k, false, NULL FROM UNNEST($3::text[]) AS k
        ON CONFLICT (license_key) DO NOTHING`

	res, err := r.db.Exec(q, softwareID, versionID, pq.Array(keys))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// AssignVersion points existing license keys of a software product at a
// specific version. Keys not present yet are inserted as unused.
func (r *LicenseRepository) AssignVersion(softwareID int, versionID *int, keys []string) error {
	const updateQ = `
        UPDATE licenses
        SET software_version_id = $2, updated_at = NOW()
        WHERE software_id = $1 AND license_key = ANY($3)`

	if _, err := r.db.Exec(updateQ, softwareID, versionID, pq.Array(keys)); err != nil {
		return err
	}

	const insertQ = `
        INSERT INTO licenses (software_id, software_version_id, license_key, is_active, used_at)
        SELECT $1, $2, k, false, NULL FROM UNNEST($3::text[]) AS k
        ON CONFLICT (license_key) DO NOTHING`

	_, err := r.db.Exec(insertQ, softwareID, versionID, pq.Array(keys))
	return err
}

// Update updates a license row.
func (r *LicenseRepository) Update(l *models.License) error {
	const q = `
        UPDATE licenses
        SET software_id = $1, software_version_id = $2, license_key = $3,
            is_active = $4, used_at = $5, updated_at = NOW()
        WHERE id = $6
        RETURNING updated_at`

	return r.db.QueryRowx(q, l.SoftwareID, l.SoftwareVersionID, l.LicenseKey, l.IsActive, l.UsedAt, l.ID).
		Scan(&l.UpdatedAt)
}

// Activate marks a single license as consumed outside of an order
// (manual admin activation).
func (r *LicenseRepository) Activate(id int) error {
	const q = `
        UPDATE licenses
        SET is_active = true, used_at = NOW(), updated_at = NOW()
        WHERE id = $1`

	_, err := r.db.Exec(q, id)
	return err
}

// Delete deletes a license by id.
func (r *LicenseRepository) Delete(id int) error {
	const q = `DELETE FROM licenses WHERE id = $1`
	_, err := r.db.Exec(q, id)
	return err
}

// DeleteByKeys deletes all licenses whose key appears in keys.
func (r *LicenseRepository) DeleteByKeys(keys []string) (int, error) {
	const q = `DELETE FROM licenses WHERE license_key = ANY($1)`

	res, err := r.db.Exec(q, pq.Array(keys))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// CountCreatedBetween returns how many licenses were created in the range.
func (r *LicenseRepository) CountCreatedBetween(start, end string) (int, error) {
	const q = `
        SELECT COUNT(*) FROM licenses
        WHERE created_at >= $1::timestamptz AND created_at <= $2::timestamptz`

	var n int
	if err := r.db.Get(&n, q, start, end); err != nil {
		return 0, err
	}
	return n, nil
}

// CountAvailableBetween returns how many unused licenses were created in the range.
func (r *LicenseRepository) CountAvailableBetween(start, end string) (int, error) {
	const q = `
        SELECT COUNT(*) FROM licenses
        WHERE is_active = false
          AND created_at >= $1::timestamptz AND created_at <= $2::timestamptz`

	var n int
	if err := r.db.Get(&n, q, start, end); err != nil {
		return 0, err
	}
	return n, nil
}

// CountAvailableForSoftware returns the unused pool size for a software
// product, optionally scoped to a version.
func (r *LicenseRepository) CountAvailableForSoftware(softwareID int, versionID *int) (int, error) {
	const q = `
        SELECT COUNT(*) FROM licenses
        WHERE software_id = $1 AND is_active = false
          AND ($2::int IS NULL OR software_version_id = $2)`

	var n int
	if err := r.db.Get(&n, q, softwareID, versionID); err != nil {
		return 0, err
	}
	return n, nil
}
