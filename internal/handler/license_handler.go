package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lisensia/lisensia_api/internal/models"
	"github.com/lisensia/lisensia_api/internal/service"
	"github.com/lisensia/lisensia_api/internal/utils"
)

// LicenseHandler handles license pool HTTP endpoints.
type LicenseHandler struct {
	licenseService *service.LicenseService
}

// NewLicenseHandler constructs a LicenseHandler.
func NewLicenseHandler(licenseService *service.LicenseService) *LicenseHandler {
	return &LicenseHandler{licenseService: licenseService}
}

// GetLicenses returns the full pool.
func (h *LicenseHandler) GetLicenses(c *gin.Context) {
	licenses, err := h.licenseService.GetAll()
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get licenses")
		return
	}
	utils.Success(c, 200, "Licenses retrieved successfully", gin.H{"licenses": licenses})
}

// GetLicense returns one license by id.
func (h *LicenseHandler) GetLicense(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid license id")
		return
	}

	license, err := h.licenseService.GetByID(id)
	if err != nil {
		if errors.Is(err, utils.ErrLicenseNotFound) {
			utils.Error(c, 404, "LICENSE_NOT_FOUND", "License not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get license")
		return
	}
	utils.Success(c, 200, "License retrieved successfully", gin.H{"license": license})
}

// GetAvailableLicenses returns unused keys, optionally filtered by software.
func (h *LicenseHandler) GetAvailableLicenses(c *gin.Context) {
	softwareID := 0
	if v := c.Query("software_id"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			utils.Error(c, 400, "INVALID_ID", "Invalid software id")
			return
		}
		softwareID = n
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	licenses, err := h.licenseService.GetAvailable(softwareID, limit)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get available licenses")
		return
	}
	utils.Success(c, 200, "Available licenses retrieved successfully", gin.H{"licenses": licenses})
}

type createLicenseRequest struct {
	SoftwareID        int    `json:"software_id" binding:"required"`
	SoftwareVersionID *int   `json:"software_version_id"`
	LicenseKey        string `json:"license_key" binding:"required"`
}

// CreateLicense adds a single key to the pool.
func (h *LicenseHandler) CreateLicense(c *gin.Context) {
	var req createLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	license := models.License{
		SoftwareID:        req.SoftwareID,
		SoftwareVersionID: req.SoftwareVersionID,
		LicenseKey:        req.LicenseKey,
	}
	if err := h.licenseService.Create(&license); err != nil {
		h.writeScopeError(c, err)
		return
	}
	utils.Success(c, 201, "License created successfully", gin.H{"license": license})
}

type bulkLicenseRequest struct {
	SoftwareID        int      `json:"software_id" binding:"required"`
	SoftwareVersionID *int     `json:"software_version_id"`
	LicenseKeys       []string `json:"license_keys" binding:"required"`
}

// BulkCreateLicenses imports a batch of keys; duplicates are skipped.
func (h *LicenseHandler) BulkCreateLicenses(c *gin.Context) {
	var req bulkLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	inserted, err := h.licenseService.BulkImport(req.SoftwareID, req.SoftwareVersionID, req.LicenseKeys)
	if err != nil {
		h.writeScopeError(c, err)
		return
	}
	utils.Success(c, 201, "Licenses imported successfully", gin.H{
		"inserted": inserted,
		"skipped":  len(utils.NormalizeLicenseKeys(req.LicenseKeys)) - inserted,
	})
}

// AssignVersion re-scopes a batch of keys to a version.
func (h *LicenseHandler) AssignVersion(c *gin.Context) {
	var req bulkLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if err := h.licenseService.AssignVersion(req.SoftwareID, req.SoftwareVersionID, req.LicenseKeys); err != nil {
		h.writeScopeError(c, err)
		return
	}
	utils.Success(c, 200, "Licenses assigned successfully", nil)
}

type updateLicenseRequest struct {
	SoftwareID        int    `json:"software_id" binding:"required"`
	SoftwareVersionID *int   `json:"software_version_id"`
	LicenseKey        string `json:"license_key" binding:"required"`
	IsActive          bool   `json:"is_active"`
}

// UpdateLicense updates a license row.
func (h *LicenseHandler) UpdateLicense(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid license id")
		return
	}

	var req updateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	license := models.License{
		ID:                id,
		SoftwareID:        req.SoftwareID,
		SoftwareVersionID: req.SoftwareVersionID,
		LicenseKey:        req.LicenseKey,
		IsActive:          req.IsActive,
	}
	if err := h.licenseService.Update(&license); err != nil {
		if errors.Is(err, utils.ErrLicenseNotFound) {
			utils.Error(c, 404, "LICENSE_NOT_FOUND", "License not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update license")
		return
	}
	utils.Success(c, 200, "License updated successfully", gin.H{"license": license})
}

// ActivateLicense marks a key used outside the order flow.
func (h *LicenseHandler) ActivateLicense(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid license id")
		return
	}

	if err := h.licenseService.Activate(id); err != nil {
		switch {
		case errors.Is(err, utils.ErrLicenseNotFound):
			utils.Error(c, 404, "LICENSE_NOT_FOUND", "License not found")
		case errors.Is(err, utils.ErrLicenseUsed):
			utils.Error(c, 409, "LICENSE_USED", "License is already used")
		default:
			utils.Error(c, 500, "INTERNAL_ERROR", "Failed to activate license")
		}
		return
	}
	utils.Success(c, 200, "License activated successfully", nil)
}

// DeleteLicense removes one license.
func (h *LicenseHandler) DeleteLicense(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid license id")
		return
	}

	if err := h.licenseService.Delete(id); err != nil {
		if errors.Is(err, utils.ErrLicenseNotFound) {
			utils.Error(c, 404, "LICENSE_NOT_FOUND", "License not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to delete license")
		return
	}
	utils.Success(c, 200, "License deleted successfully", nil)
}

type deleteByKeysRequest struct {
	LicenseKeys []string `json:"license_keys" binding:"required"`
}

// DeleteLicensesByKeys removes a batch of keys.
func (h *LicenseHandler) DeleteLicensesByKeys(c *gin.Context) {
	var req deleteByKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	deleted, err := h.licenseService.DeleteByKeys(req.LicenseKeys)
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}
	utils.Success(c, 200, "Licenses deleted successfully", gin.H{"deleted": deleted})
}

// GetStats returns pool counts for a date range.
func (h *LicenseHandler) GetStats(c *gin.Context) {
	start := c.Query("start_date")
	end := c.Query("end_date")
	if start == "" || end == "" {
		utils.Error(c, 400, "INVALID_REQUEST", "start_date and end_date are required")
		return
	}

	stats, err := h.licenseService.Stats(start, end)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get license stats")
		return
	}
	utils.Success(c, 200, "License stats retrieved successfully", gin.H{"stats": stats})
}

// CountAvailable reports remaining stock for a software, optionally scoped
// to one version. Advisory only; reservation rechecks under lock.
func (h *LicenseHandler) CountAvailable(c *gin.Context) {
	softwareID, err := strconv.Atoi(c.Query("software_id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid software id")
		return
	}
	var versionID *int
	if v := c.Query("software_version_id"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			utils.Error(c, 400, "INVALID_ID", "Invalid software version id")
			return
		}
		versionID = &n
	}

	count, err := h.licenseService.CountAvailable(softwareID, versionID)
	if err != nil {
		if errors.Is(err, utils.ErrSoftwareNotFound) {
			utils.Error(c, 404, "SOFTWARE_NOT_FOUND", "Software not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to count available licenses")
		return
	}
	utils.Success(c, 200, "Available license count retrieved successfully", gin.H{"count": count})
}

func (h *LicenseHandler) writeScopeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrSoftwareNotFound):
		utils.Error(c, 404, "SOFTWARE_NOT_FOUND", "Software not found")
	case errors.Is(err, utils.ErrVersionNotFound):
		utils.Error(c, 404, "VERSION_NOT_FOUND", "Software version not found")
	default:
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
	}
}
