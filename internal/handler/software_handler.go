package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lisensia/lisensia_api/internal/models"
	"github.com/lisensia/lisensia_api/internal/service"
	"github.com/lisensia/lisensia_api/internal/utils"
)

// SoftwareHandler handles software catalog HTTP endpoints.
type SoftwareHandler struct {
	softwareService *service.SoftwareService
}

// NewSoftwareHandler constructs a SoftwareHandler.
func NewSoftwareHandler(softwareService *service.SoftwareService) *SoftwareHandler {
	return &SoftwareHandler{softwareService: softwareService}
}

// GetSoftware returns the full catalog.
func (h *SoftwareHandler) GetSoftware(c *gin.Context) {
	software, err := h.softwareService.GetAllSoftware()
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get software")
		return
	}
	utils.Success(c, 200, "Software retrieved successfully", gin.H{"software": software})
}

// GetSoftwareByID returns one product.
func (h *SoftwareHandler) GetSoftwareByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid software id")
		return
	}

	software, err := h.softwareService.GetSoftwareByID(id)
	if err != nil {
		if errors.Is(err, utils.ErrSoftwareNotFound) {
			utils.Error(c, 404, "SOFTWARE_NOT_FOUND", "Software not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get software")
		return
	}
	utils.Success(c, 200, "Software retrieved successfully", gin.H{"software": software})
}

type softwareRequest struct {
	Name            string `json:"name" binding:"required"`
	RequiresLicense bool   `json:"requires_license"`
	SearchByVersion bool   `json:"search_by_version"`
}

// CreateSoftware adds a product to the catalog.
func (h *SoftwareHandler) CreateSoftware(c *gin.Context) {
	var req softwareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	software := models.Software{
		Name:            req.Name,
		RequiresLicense: req.RequiresLicense,
		SearchByVersion: req.SearchByVersion,
	}
	if err := h.softwareService.CreateSoftware(&software); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}
	utils.Success(c, 201, "Software created successfully", gin.H{"software": software})
}

// UpdateSoftware updates a product.
func (h *SoftwareHandler) UpdateSoftware(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid software id")
		return
	}

	var req softwareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	software := models.Software{
		ID:              id,
		Name:            req.Name,
		RequiresLicense: req.RequiresLicense,
		SearchByVersion: req.SearchByVersion,
	}
	if err := h.softwareService.UpdateSoftware(&software); err != nil {
		if errors.Is(err, utils.ErrSoftwareNotFound) {
			utils.Error(c, 404, "SOFTWARE_NOT_FOUND", "Software not found")
			return
		}
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}
	utils.Success(c, 200, "Software updated successfully", gin.H{"software": software})
}

// DeleteSoftware removes a product and its versions and licenses.
func (h *SoftwareHandler) DeleteSoftware(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid software id")
		return
	}

	if err := h.softwareService.DeleteSoftware(id); err != nil {
		if errors.Is(err, utils.ErrSoftwareNotFound) {
			utils.Error(c, 404, "SOFTWARE_NOT_FOUND", "Software not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to delete software")
		return
	}
	utils.Success(c, 200, "Software deleted successfully", nil)
}
