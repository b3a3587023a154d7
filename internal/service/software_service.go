package service

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lisensia/lisensia_api/internal/models"
	"github.com/lisensia/lisensia_api/internal/repository"
	"github.com/lisensia/lisensia_api/internal/utils"
)

// SoftwareService provides catalog business logic for software products and
// their versions.
type SoftwareService struct {
	softwareRepo *repository.SoftwareRepository
	versionRepo  *repository.SoftwareVersionRepository
}

// NewSoftwareService constructs a SoftwareService.
func NewSoftwareService(softwareRepo *repository.SoftwareRepository, versionRepo *repository.SoftwareVersionRepository) *SoftwareService {
	return &SoftwareService{softwareRepo: softwareRepo, versionRepo: versionRepo}
}

// GetAllSoftware returns the full catalog.
func (s *SoftwareService) GetAllSoftware() ([]models.Software, error) {
	return s.softwareRepo.GetAll()
}

// GetSoftwareByID returns one product.
func (s *SoftwareService) GetSoftwareByID(id int) (*models.Software, error) {
	sw, err := s.softwareRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrSoftwareNotFound
		}
		return nil, err
	}
	return sw, nil
}

// CreateSoftware adds a product to the catalog. Names are matched
// case-insensitively at fulfillment time, so duplicates are rejected here.
func (s *SoftwareService) CreateSoftware(sw *models.Software) error {
	sw.Name = strings.TrimSpace(sw.Name)
	if sw.Name == "" {
		return errors.New("name is required")
	}
	if existing, err := s.softwareRepo.GetByNameFold(sw.Name); err == nil && existing != nil {
		return errors.New("software with this name already exists")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return s.softwareRepo.Create(sw)
}

// UpdateSoftware updates a product's fields.
func (s *SoftwareService) UpdateSoftware(sw *models.Software) error {
	sw.Name = strings.TrimSpace(sw.Name)
	if sw.Name == "" {
		return errors.New("name is required")
	}
	if err := s.softwareRepo.Update(sw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrSoftwareNotFound
		}
		return err
	}
	return nil
}

// DeleteSoftware removes a product. Versions and licenses cascade in the
// schema; existing orders keep their denormalized fields.
func (s *SoftwareService) DeleteSoftware(id int) error {
	if err := s.softwareRepo.Delete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrSoftwareNotFound
		}
		return err
	}
	return nil
}

// GetAllVersions returns every version with its software name.
func (s *SoftwareService) GetAllVersions() ([]models.SoftwareVersion, error) {
	return s.versionRepo.GetAll()
}

// GetVersionsBySoftware returns the versions of one product.
func (s *SoftwareService) GetVersionsBySoftware(softwareID int) ([]models.SoftwareVersion, error) {
	if _, err := s.GetSoftwareByID(softwareID); err != nil {
		return nil, err
	}
	return s.versionRepo.GetBySoftwareID(softwareID)
}

// GetVersionByID returns one version.
func (s *SoftwareService) GetVersionByID(id int) (*models.SoftwareVersion, error) {
	v, err := s.versionRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrVersionNotFound
		}
		return nil, err
	}
	return v, nil
}

// CreateVersion adds a version under an existing product.
func (s *SoftwareService) CreateVersion(v *models.SoftwareVersion) error {
	if _, err := s.GetSoftwareByID(v.SoftwareID); err != nil {
		return err
	}
	v.OS = strings.TrimSpace(v.OS)
	v.Version = strings.TrimSpace(v.Version)
	if v.OS == "" || v.Version == "" {
		return errors.New("os and version are required")
	}
	if existing, err := s.versionRepo.GetBySelector(v.SoftwareID, v.OS, v.Version); err == nil && existing != nil {
		return errors.New("version already exists for this software and os")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return s.versionRepo.Create(v)
}

// UpdateVersion updates a version's fields.
func (s *SoftwareService) UpdateVersion(v *models.SoftwareVersion) error {
	if err := s.versionRepo.Update(v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrVersionNotFound
		}
		return err
	}
	return nil
}

// DeleteVersion removes a version. Licenses assigned to it fall back to the
// unscoped pool via ON DELETE SET NULL.
func (s *SoftwareService) DeleteVersion(id int) error {
	if err := s.versionRepo.Delete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrVersionNotFound
		}
		return err
	}
	return nil
}
