package service

import (
	"database/sql"
	"errors"

	"github.com/lisensia/lisensia_api/internal/models"
	"github.com/lisensia/lisensia_api/internal/repository"
	"github.com/lisensia/lisensia_api/internal/utils"
)

// LicenseService provides business logic for managing the license key pool.
type LicenseService struct {
	licenseRepo  *repository.LicenseRepository
	softwareRepo *repository.SoftwareRepository
	versionRepo  *repository.SoftwareVersionRepository
}

// NewLicenseService constructs a LicenseService.
func NewLicenseService(licenseRepo *repository.LicenseRepository, softwareRepo *repository.SoftwareRepository, versionRepo *repository.SoftwareVersionRepository) *LicenseService {
	return &LicenseService{licenseRepo: licenseRepo, softwareRepo: softwareRepo, versionRepo: versionRepo}
}

// GetAll returns every license key with joined software and version info.
func (s *LicenseService) GetAll() ([]models.License, error) {
	return s.licenseRepo.GetAll()
}

// GetByID returns one license.
func (s *LicenseService) GetByID(id int) (*models.License, error) {
	l, err := s.licenseRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrLicenseNotFound
		}
		return nil, err
	}
	return l, nil
}

// GetAvailable returns unused keys, optionally limited to one software.
// This is a reporting view; fulfillment decides availability under lock.
func (s *LicenseService) GetAvailable(softwareID, limit int) ([]models.License, error) {
	if softwareID <= 0 {
		return s.licenseRepo.GetAllAvailable()
	}
	return s.licenseRepo.GetAvailable(softwareID, limit)
}

// Create adds a single key to the pool.
func (s *LicenseService) Create(l *models.License) error {
	if err := s.validateScope(l.SoftwareID, l.SoftwareVersionID); err != nil {
		return err
	}
	return s.licenseRepo.Create(l)
}

// BulkImport normalizes and inserts a batch of keys for one software,
// optionally pinned to a version. Duplicate keys are skipped, not errors.
// Returns the number of keys actually inserted.
func (s *LicenseService) BulkImport(softwareID int, versionID *int, keys []string) (int, error) {
	if err := s.validateScope(softwareID, versionID); err != nil {
		return 0, err
	}
	normalized := utils.NormalizeLicenseKeys(keys)
	if len(normalized) == 0 {
		return 0, errors.New("no license keys provided")
	}
	return s.licenseRepo.BulkCreate(softwareID, versionID, normalized)
}

// AssignVersion re-scopes the given keys to a version, inserting any keys
// not yet in the pool.
func (s *LicenseService) AssignVersion(softwareID int, versionID *int, keys []string) error {
	if err := s.validateScope(softwareID, versionID); err != nil {
		return err
	}
	normalized := utils.NormalizeLicenseKeys(keys)
	if len(normalized) == 0 {
		return errors.New("no license keys provided")
	}
	return s.licenseRepo.AssignVersion(softwareID, versionID, normalized)
}

// Update updates a license row.
func (s *LicenseService) Update(l *models.License) error {
	if err := s.licenseRepo.Update(l); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrLicenseNotFound
		}
		return err
	}
	return nil
}

// Activate marks a key used outside the order flow (manual fulfillment).
func (s *LicenseService) Activate(id int) error {
	l, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if l.IsActive {
		return utils.ErrLicenseUsed
	}
	return s.licenseRepo.Activate(id)
}

// Delete removes one license.
func (s *LicenseService) Delete(id int) error {
	if err := s.licenseRepo.Delete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrLicenseNotFound
		}
		return err
	}
	return nil
}

// DeleteByKeys removes a batch of keys; returns how many were deleted.
func (s *LicenseService) DeleteByKeys(keys []string) (int, error) {
	normalized := utils.NormalizeLicenseKeys(keys)
	if len(normalized) == 0 {
		return 0, errors.New("no license keys provided")
	}
	return s.licenseRepo.DeleteByKeys(normalized)
}

// PoolStats summarizes the license pool for a date range.
type PoolStats struct {
	Created   int `json:"created"`
	Available int `json:"available"`
}

// Stats returns pool counts for the date range. Always read live from the
// database; a stale count here would misreport sellable inventory.
func (s *LicenseService) Stats(start, end string) (*PoolStats, error) {
	created, err := s.licenseRepo.CountCreatedBetween(start, end)
	if err != nil {
		return nil, err
	}
	available, err := s.licenseRepo.CountAvailableBetween(start, end)
	if err != nil {
		return nil, err
	}
	return &PoolStats{Created: created, Available: available}, nil
}

// CountAvailable reports how many unused keys remain for a software,
// optionally scoped to a version.
func (s *LicenseService) CountAvailable(softwareID int, versionID *int) (int, error) {
	if _, err := s.softwareRepo.GetByID(softwareID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, utils.ErrSoftwareNotFound
		}
		return 0, err
	}
	return s.licenseRepo.CountAvailableForSoftware(softwareID, versionID)
}

func (s *LicenseService) validateScope(softwareID int, versionID *int) error {
	if _, err := s.softwareRepo.GetByID(softwareID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrSoftwareNotFound
		}
		return err
	}
	if versionID != nil {
		v, err := s.versionRepo.GetByID(*versionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return utils.ErrVersionNotFound
			}
			return err
		}
		if v.SoftwareID != softwareID {
			return errors.New("version does not belong to the software")
		}
	}
	return nil
}
