// internal/handlers/catalog/package_handler.go
package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"talenthub-service/internal/domain/credit"
	"talenthub-service/internal/middleware"
	xerrors "talenthub-service/internal/pkg/errors"
	"talenthub-service/internal/pkg/response"
	"talenthub-service/internal/service/catalog"

	"github.com/gin-gonic/gin"
)

type PackageHandler struct {
	packageService *catalog.PackageService
}

func NewPackageHandler(packageService *catalog.PackageService) *PackageHandler {
	return &PackageHandler{packageService: packageService}
}

// ListPackages retrieves the credit package catalog. Admins see inactive ones.
func (h *PackageHandler) ListPackages(c *gin.Context) {
	packages, err := h.packageService.ListPackages(c.Request.Context(), middleware.IsAdmin(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list packages", err)
		return
	}

	response.Success(c, http.StatusOK, "packages retrieved", packages)
}

// GetPackage retrieves a single package by ID
func (h *PackageHandler) GetPackage(c *gin.Context) {
	packageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid package ID", err)
		return
	}

	pkg, err := h.packageService.GetPackage(c.Request.Context(), packageID)
	if err != nil {
		response.Error(c, http.StatusNotFound, "package not found", err)
		return
	}

	response.Success(c, http.StatusOK, "package retrieved", pkg)
}

// CreatePackage creates a new credit package (admin only)
func (h *PackageHandler) CreatePackage(c *gin.Context) {
	var req credit.CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	pkg, err := h.packageService.CreatePackage(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrInvalidInput) {
			response.ValidationError(c, "invalid package definition", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to create package", err)
		return
	}

	response.Success(c, http.StatusCreated, "package created", pkg)
}

// UpdatePackage applies a partial update to a package (admin only)
func (h *PackageHandler) UpdatePackage(c *gin.Context) {
	packageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid package ID", err)
		return
	}

	var req credit.UpdatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	pkg, err := h.packageService.UpdatePackage(c.Request.Context(), packageID, &req)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "package not found")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "invalid package update", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to update package", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "package updated", pkg)
}

// DeletePackage removes an unreferenced package (admin only)
func (h *PackageHandler) DeletePackage(c *gin.Context) {
	packageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid package ID", err)
		return
	}

	if err := h.packageService.DeletePackage(c.Request.Context(), packageID); err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "package not found")
		case errors.Is(err, xerrors.ErrPackageInUse):
			response.Conflict(c, "package is referenced and cannot be deleted", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to delete package", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "package deleted", nil)
}
