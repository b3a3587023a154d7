package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lisensia/lisensia_api/internal/models"
	"github.com/lisensia/lisensia_api/internal/service"
	"github.com/lisensia/lisensia_api/internal/utils"
)

// SoftwareVersionHandler handles software version HTTP endpoints.
type SoftwareVersionHandler struct {
	softwareService *service.SoftwareService
}

// NewSoftwareVersionHandler constructs a SoftwareVersionHandler.
func NewSoftwareVersionHandler(softwareService *service.SoftwareService) *SoftwareVersionHandler {
	return &SoftwareVersionHandler{softwareService: softwareService}
}

// GetVersions returns every version, or the versions of one product when
// software_id is given.
func (h *SoftwareVersionHandler) GetVersions(c *gin.Context) {
	if v := c.Query("software_id"); v != "" {
		softwareID, err := strconv.Atoi(v)
		if err != nil {
			utils.Error(c, 400, "INVALID_ID", "Invalid software id")
			return
		}
		versions, err := h.softwareService.GetVersionsBySoftware(softwareID)
		if err != nil {
			if errors.Is(err, utils.ErrSoftwareNotFound) {
				utils.Error(c, 404, "SOFTWARE_NOT_FOUND", "Software not found")
				return
			}
			utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get versions")
			return
		}
		utils.Success(c, 200, "Versions retrieved successfully", gin.H{"versions": versions})
		return
	}

	versions, err := h.softwareService.GetAllVersions()
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get versions")
		return
	}
	utils.Success(c, 200, "Versions retrieved successfully", gin.H{"versions": versions})
}

// GetVersion returns one version by id.
func (h *SoftwareVersionHandler) GetVersion(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid version id")
		return
	}

	version, err := h.softwareService.GetVersionByID(id)
	if err != nil {
		if errors.Is(err, utils.ErrVersionNotFound) {
			utils.Error(c, 404, "VERSION_NOT_FOUND", "Software version not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get version")
		return
	}
	utils.Success(c, 200, "Version retrieved successfully", gin.H{"version": version})
}

type versionRequest struct {
	SoftwareID   int    `json:"software_id" binding:"required"`
	OS           string `json:"os" binding:"required"`
	Version      string `json:"version" binding:"required"`
	DownloadLink string `json:"download_link"`
}

// CreateVersion adds a version under an existing product.
func (h *SoftwareVersionHandler) CreateVersion(c *gin.Context) {
	var req versionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	version := models.SoftwareVersion{
		SoftwareID:   req.SoftwareID,
		OS:           req.OS,
		Version:      req.Version,
		DownloadLink: req.DownloadLink,
	}
	if err := h.softwareService.CreateVersion(&version); err != nil {
		if errors.Is(err, utils.ErrSoftwareNotFound) {
			utils.Error(c, 404, "SOFTWARE_NOT_FOUND", "Software not found")
			return
		}
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}
	utils.Success(c, 201, "Version created successfully", gin.H{"version": version})
}

// UpdateVersion updates a version.
func (h *SoftwareVersionHandler) UpdateVersion(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid version id")
		return
	}

	var req versionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	version := models.SoftwareVersion{
		ID:           id,
		SoftwareID:   req.SoftwareID,
		OS:           req.OS,
		Version:      req.Version,
		DownloadLink: req.DownloadLink,
	}
	if err := h.softwareService.UpdateVersion(&version); err != nil {
		if errors.Is(err, utils.ErrVersionNotFound) {
			utils.Error(c, 404, "VERSION_NOT_FOUND", "Software version not found")
			return
		}
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}
	utils.Success(c, 200, "Version updated successfully", gin.H{"version": version})
}

// DeleteVersion removes a version.
func (h *SoftwareVersionHandler) DeleteVersion(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid version id")
		return
	}

	if err := h.softwareService.DeleteVersion(id); err != nil {
		if errors.Is(err, utils.ErrVersionNotFound) {
			utils.Error(c, 404, "VERSION_NOT_FOUND", "Software version not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to delete version")
		return
	}
	utils.Success(c, 200, "Version deleted successfully", nil)
}
