package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/lisensia/lisensia_api/internal/models"
)

// SoftwareRepository handles data access for software products.
type SoftwareRepository struct {
	db *sqlx.DB
}

// NewSoftwareRepository creates a new SoftwareRepository.
func NewSoftwareRepository(db *sqlx.DB) *SoftwareRepository {
	return &SoftwareRepository{db: db}
}

// GetAll returns all software products ordered by name.
func (r *SoftwareRepository) GetAll() ([]models.Software, error) {
	const q = `SELECT * FROM software ORDER BY name`

	var list []models.Software
	if err := r.db.Select(&list, q); err != nil {
		return nil, err
	}
	return list, nil
}

// GetByID returns a single software product by id.
func (r *SoftwareRepository) GetByID(id int) (*models.Software, error) {
	const q = `SELECT * FROM software WHERE id = $1 LIMIT 1`

	var s models.Software
	if err := r.db.Get(&s, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &s, nil
}

// GetByNameFold returns a software product matched case-insensitively on name.
func (r *SoftwareRepository) GetByNameFold(name string) (*models.Software, error) {
	const q = `SELECT * FROM software WHERE LOWER(name) = LOWER($1) LIMIT 1`

	var s models.Software
	if err := r.db.Get(&s, q, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts a new software product.
func (r *SoftwareRepository) Create(s *models.Software) error {
	const q = `
        INSERT INTO software (name, requires_license, search_by_version)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRowx(q, s.Name, s.RequiresLicense, s.SearchByVersion).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// Update updates an existing software product.
func (r *SoftwareRepository) Update(s *models.Software) error {
	const q = `
        UPDATE software
        SET name = $1, requires_license = $2, search_by_version = $3, updated_at = NOW()
        WHERE id = $4
        RETURNING updated_at`

	return r.db.QueryRowx(q, s.Name, s.RequiresLicense, s.SearchByVersion, s.ID).
		Scan(&s.UpdatedAt)
}

// Delete deletes a software product by id.
func (r *SoftwareRepository) Delete(id int) error {
	const q = `DELETE FROM software WHERE id = $1`
	_, err := r.db.Exec(q, id)
	return err
}
