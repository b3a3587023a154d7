package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/lisensia/lisensia_api/internal/models"
)

// SoftwareVersionRepository handles data access for software versions.
type SoftwareVersionRepository struct {
	db *sqlx.DB
}

// NewSoftwareVersionRepository creates a new SoftwareVersionRepository.
func NewSoftwareVersionRepository(db *sqlx.DB) *SoftwareVersionRepository {
	return &SoftwareVersionRepository{db: db}
}

// GetAll returns all versions with the owning software name joined in.
func (r *SoftwareVersionRepository) GetAll() ([]models.SoftwareVersion, error) {
	const q = `
        SELECT v.*, s.name AS software_name
        FROM software_versions v
        JOIN software s ON v.software_id = s.id
        ORDER BY s.name, v.os, v.version`

	var list []models.SoftwareVersion
	if err := r.db.Select(&list, q); err != nil {
		return nil, err
	}
	return list, nil
}

// GetByID returns a single version by id with the software name joined in.
func (r *SoftwareVersionRepository) GetByID(id int) (*models.SoftwareVersion, error) {
	const q = `
        SELECT v.*, s.name AS software_name
        FROM software_versions v
        JOIN software s ON v.software_id = s.id
        WHERE v.id = $1 LIMIT 1`

	var v models.SoftwareVersion
	if err := r.db.Get(&v, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &v, nil
}

// GetBySoftwareID returns all versions belonging to a software product.
func (r *SoftwareVersionRepository) GetBySoftwareID(softwareID int) ([]models.SoftwareVersion, error) {
	const q = `SELECT * FROM software_versions WHERE software_id = $1 ORDER BY os, version`

	var list []models.SoftwareVersion
	if err := r.db.Select(&list, q, softwareID); err != nil {
		return nil, err
	}
	return list, nil
}

// GetBySelector returns the version matching (software_id, os, version).
func (r *SoftwareVersionRepository) GetBySelector(softwareID int, os, version string) (*models.SoftwareVersion, error) {
	const q = `
        SELECT * FROM software_versions
        WHERE software_id = $1 AND os = $2 AND version = $3
        LIMIT 1`

	var v models.SoftwareVersion
	if err := r.db.Get(&v, q, softwareID, os, version); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &v, nil
}

// Create inserts a new software version.
func (r *SoftwareVersionRepository) Create(v *models.SoftwareVersion) error {
	const q = `
        INSERT INTO software_versions (software_id, os, version, download_link)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRowx(q, v.SoftwareID, v.OS, v.Version, v.DownloadLink).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

// Update updates an existing software version.
func (r *SoftwareVersionRepository) Update(v *models.SoftwareVersion) error {
	const q = `
        UPDATE software_versions
        SET software_id = $1, os = $2, version = $3, download_link = $4, updated_at = NOW()
        WHERE id = $5
        RETURNING updated_at`

	return r.db.QueryRowx(q, v.SoftwareID, v.OS, v.Version, v.DownloadLink, v.ID).
		Scan(&v.UpdatedAt)
}

// Delete deletes a software version by id.
func (r *SoftwareVersionRepository) Delete(id int) error {
	const q = `DELETE FROM software_versions WHERE id = $1`
	_, err := r.db.Exec(q, id)
	return err
}
