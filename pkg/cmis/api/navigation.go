package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// GetChildren lists a page of folder children
func (h *Handler) GetChildren(w http.ResponseWriter, r *http.Request) {
	maxItems, skipCount, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req := cmis.GetChildrenRequest{
		FolderID:  chi.URLParam(r, "objectID"),
		Filter:    r.URL.Query().Get("filter"),
		MaxItems:  maxItems,
		SkipCount: skipCount,
	}
	if req.IncludeAllowableActions, err = boolParam(r, "includeAllowableActions", false); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.IncludePathSegment, err = boolParam(r, "includePathSegment", false); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.FoldersOnly, err = boolParam(r, "foldersOnly", false); err != nil {
		h.writeError(w, r, err)
		return
	}

	list, err := h.service.GetChildren(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, list)
}

func descendantsRequest(r *http.Request) (cmis.DescendantsRequest, error) {
	req := cmis.DescendantsRequest{
		FolderID: chi.URLParam(r, "objectID"),
		Filter:   r.URL.Query().Get("filter"),
	}
	var err error
	if req.Depth, err = intParam(r, "depth", -1); err != nil {
		return req, err
	}
	if req.IncludeAllowableActions, err = boolParam(r, "includeAllowableActions", false); err != nil {
		return req, err
	}
	if req.IncludePathSegment, err = boolParam(r, "includePathSegment", false); err != nil {
		return req, err
	}
	return req, nil
}

// GetDescendants returns the objects below a folder
func (h *Handler) GetDescendants(w http.ResponseWriter, r *http.Request) {
	req, err := descendantsRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tree, err := h.service.GetDescendants(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, tree)
}

// GetFolderTree returns the folders below a folder
func (h *Handler) GetFolderTree(w http.ResponseWriter, r *http.Request) {
	req, err := descendantsRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tree, err := h.service.GetFolderTree(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, tree)
}

// GetFolderParent returns the parent of a folder
func (h *Handler) GetFolderParent(w http.ResponseWriter, r *http.Request) {
	parent, err := h.service.GetFolderParent(r.Context(), chi.URLParam(r, "objectID"), r.URL.Query().Get("filter"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, parent)
}

// GetObjectParents returns the folders an object is filed in
func (h *Handler) GetObjectParents(w http.ResponseWriter, r *http.Request) {
	withSegment, err := boolParam(r, "includeRelativePathSegment", false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	parents, err := h.service.GetObjectParents(r.Context(), chi.URLParam(r, "objectID"), r.URL.Query().Get("filter"), withSegment)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, parents)
}

// GetCheckedOutDocs lists working copies, below the folder given by the
// folderId parameter or in the whole repository
func (h *Handler) GetCheckedOutDocs(w http.ResponseWriter, r *http.Request) {
	maxItems, skipCount, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	list, err := h.service.GetCheckedOutDocs(r.Context(), q.Get("folderId"), q.Get("filter"), maxItems, skipCount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, list)
}

// DeleteTreeResponse lists the objects a tree deletion left behind
type DeleteTreeResponse struct {
	FailedToDelete []string `json:"failedToDelete"`
}

// DeleteTree deletes a folder and everything below it
func (h *Handler) DeleteTree(w http.ResponseWriter, r *http.Request) {
	allVersions, err := boolParam(r, "allVersions", true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	continueOnFailure, err := boolParam(r, "continueOnFailure", false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	unfile := cmis.UnfileObject(r.URL.Query().Get("unfileObjects"))
	if unfile == "" {
		unfile = cmis.UnfileObjectDelete
	}

	failed, err := h.service.DeleteTree(r.Context(), chi.URLParam(r, "objectID"), allVersions, unfile, continueOnFailure)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if failed == nil {
		failed = []string{}
	}
	render.JSON(w, r, DeleteTreeResponse{FailedToDelete: failed})
}
