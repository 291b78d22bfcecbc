package handlers

import (
	"net/http"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/observability"
)

// CatalogHandler exposes read-only catalog lookups.
type CatalogHandler struct {
	logger *observability.Logger
	cat    catalog.Catalog
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(logger *observability.Logger, cat catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{logger: logger, cat: cat}
}

// DocumentTypeDTO is the list representation of a document type.
type DocumentTypeDTO struct {
	ID          string   `json:"id"`
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Nature      string   `json:"nature,omitempty"`
	FieldCodes  []string `json:"field_codes,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ListTypes handles GET /api/v1/catalog/types with an optional nature
// query parameter.
func (h *CatalogHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	nature := catalog.DocumentNature(r.URL.Query().Get("nature"))

	types, err := h.cat.ActiveDocumentTypes(r.Context(), nature)
	if err != nil {
		h.logger.Error().Err(err).Msg("Catalog listing failed")
		writeError(w, http.StatusInternalServerError, "catalog listing failed", err.Error())
		return
	}

	dtos := make([]DocumentTypeDTO, 0, len(types))
	for _, dt := range types {
		dtos = append(dtos, DocumentTypeDTO{
			ID:          dt.ID.String(),
			Code:        dt.Code,
			Name:        dt.Name,
			Description: dt.Description,
			Nature:      string(dt.Nature),
			FieldCodes:  dt.DefaultFieldCodes,
			Tags:        dt.Tags,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_types": dtos,
		"count":          len(dtos),
	})
}
