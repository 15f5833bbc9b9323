package handler

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	trackingapp "github.com/trackd/backend/internal/application/tracking"
	"github.com/trackd/backend/internal/interfaces/http/dto"
)

// imageFormField is the multipart field carrying an uploaded package image.
const imageFormField = "packageImage"

// PackageHandler handles package tracking API endpoints
type PackageHandler struct {
	BaseHandler
	service *trackingapp.PackageService
}

// NewPackageHandler creates a new PackageHandler
func NewPackageHandler(service *trackingapp.PackageService) *PackageHandler {
	return &PackageHandler{service: service}
}

// RegisterRoutes registers package routes on the API group
func (h *PackageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	packages := rg.Group("/packages")
	{
		packages.GET("", h.List)
		packages.POST("", h.Create)
		packages.PUT("/:trackingNumber", h.Update)
		packages.DELETE("/:trackingNumber", h.Delete)
	}
}

// List returns every stored package
func (h *PackageHandler) List(c *gin.Context) {
	h.Success(c, h.service.List(c.Request.Context()))
}

// Create creates a new package from a JSON body or multipart form
func (h *PackageHandler) Create(c *gin.Context) {
	req, ok := h.decodeSaveRequest(c)
	if !ok {
		return
	}

	pkg, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, pkg)
}

// Update merges the supplied fields over an existing package
func (h *PackageHandler) Update(c *gin.Context) {
	var uri dto.TrackingNumberRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Tracking number is required")
		return
	}

	req, ok := h.decodeSaveRequest(c)
	if !ok {
		return
	}

	pkg, err := h.service.Update(c.Request.Context(), uri.TrackingNumber, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pkg)
}

// Delete removes a package and its stored image
func (h *PackageHandler) Delete(c *gin.Context) {
	var uri dto.TrackingNumberRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Tracking number is required")
		return
	}

	if err := h.service.Delete(c.Request.Context(), uri.TrackingNumber); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"trackingNumber": uri.TrackingNumber, "deleted": true})
}

// decodeSaveRequest resolves the two accepted request shapes into one
// SaveRequest: a multipart form whose values are strings plus an optional
// image file, or a plain JSON object. On failure it writes the error
// response and returns ok=false.
func (h *PackageHandler) decodeSaveRequest(c *gin.Context) (trackingapp.SaveRequest, bool) {
	req := trackingapp.SaveRequest{Fields: map[string]any{}}

	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			h.BadRequest(c, "Invalid multipart form")
			return req, false
		}

		for key, values := range form.Value {
			if len(values) > 0 {
				req.Fields[key] = values[0]
			}
		}

		if files := form.File[imageFormField]; len(files) > 0 {
			header := files[0]
			file, err := header.Open()
			if err != nil {
				h.BadRequest(c, "Unable to read uploaded image")
				return req, false
			}
			defer file.Close()

			data, err := io.ReadAll(file)
			if err != nil {
				h.BadRequest(c, "Unable to read uploaded image")
				return req, false
			}
			req.File = &trackingapp.FileUpload{Name: header.Filename, Data: data}
			// A binary upload supersedes any string value under the same key.
			delete(req.Fields, imageFormField)
		}
		return req, true
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Unable to read request body")
		return req, false
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req.Fields); err != nil {
			h.Error(c, dto.GetHTTPStatus(dto.ErrCodeInvalidJSON), dto.ErrCodeInvalidJSON, "Request body must be a JSON object")
			return req, false
		}
	}
	return req, true
}
