package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// GetRepositoryInfos lists the repositories
func (h *Handler) GetRepositoryInfos(w http.ResponseWriter, r *http.Request) {
	infos, err := h.service.GetRepositoryInfos(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, infos)
}

// GetRepositoryInfo describes one repository
func (h *Handler) GetRepositoryInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.GetRepositoryInfo(r.Context(), chi.URLParam(r, "repositoryID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// GetTypeDefinition returns one type definition
func (h *Handler) GetTypeDefinition(w http.ResponseWriter, r *http.Request) {
	td, err := h.service.GetTypeDefinition(r.Context(), chi.URLParam(r, "typeID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, td)
}

// GetTypeChildren lists the subtypes of a type, or the base types on /types
func (h *Handler) GetTypeChildren(w http.ResponseWriter, r *http.Request) {
	maxItems, skipCount, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	withProps, err := boolParam(r, "includePropertyDefinitions", false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.service.GetTypeChildren(r.Context(), chi.URLParam(r, "typeID"), withProps, maxItems, skipCount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, list)
}

// GetTypeDescendants returns the subtype tree of a type
func (h *Handler) GetTypeDescendants(w http.ResponseWriter, r *http.Request) {
	depth, err := intParam(r, "depth", -1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	withProps, err := boolParam(r, "includePropertyDefinitions", false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tree, err := h.service.GetTypeDescendants(r.Context(), chi.URLParam(r, "typeID"), depth, withProps)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, tree)
}

// CreateTypeRequest is the request body for creating a type. Property
// definitions are listed in declaration order.
type CreateTypeRequest struct {
	*cmis.TypeDefinition
	Properties []*cmis.PropertyDefinition `json:"properties"`
}

// CreateType registers a new type
func (h *Handler) CreateType(w http.ResponseWriter, r *http.Request) {
	req := CreateTypeRequest{TypeDefinition: &cmis.TypeDefinition{}}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	def := req.TypeDefinition
	if len(req.Properties) > 0 {
		def.OwnPropertyDefinitions = req.Properties
	}
	td, err := h.service.CreateType(r.Context(), def)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, td)
}

// GetContentChanges pages through the change log
func (h *Handler) GetContentChanges(w http.ResponseWriter, r *http.Request) {
	token, err := int64Param(r, "changeLogToken", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	maxItems, err := intParam(r, "maxItems", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.service.GetContentChanges(r.Context(), token, maxItems)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, list)
}
