package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// CheckOutResponse is the response body of a check-out
type CheckOutResponse struct {
	ID            string `json:"id"`
	ContentCopied bool   `json:"contentCopied"`
}

// CheckOut creates the working copy of a document
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	id, copied, err := h.service.CheckOut(r.Context(), chi.URLParam(r, "objectID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, CheckOutResponse{ID: id, ContentCopied: copied})
}

// CancelCheckOut discards a working copy
func (h *Handler) CancelCheckOut(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelCheckOut(r.Context(), chi.URLParam(r, "objectID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckInRequest is the request body for checking in a working copy
type CheckInRequest struct {
	Major      bool            `json:"major"`
	Comment    string          `json:"checkinComment"`
	Properties cmis.Properties `json:"properties,omitempty"`
	Content    *ContentBody    `json:"content,omitempty"`
	PolicyIDs  []string        `json:"policyIds,omitempty"`
	AddAces    cmis.Acl        `json:"addACEs"`
	RemoveAces cmis.Acl        `json:"removeACEs"`
}

// CheckIn commits a working copy as a new version
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := h.service.CheckIn(r.Context(), cmis.CheckInRequest{
		ObjectID:   chi.URLParam(r, "objectID"),
		Major:      req.Major,
		Properties: properties(req.Properties),
		Content:    req.Content.input(),
		Comment:    req.Comment,
		PolicyIDs:  req.PolicyIDs,
		AddAces:    normalizeAcl(req.AddAces),
		RemoveAces: normalizeAcl(req.RemoveAces),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, CreatedResponse{ID: id})
}

// GetAllVersions lists the versions of a document's series
func (h *Handler) GetAllVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.service.GetAllVersions(r.Context(), chi.URLParam(r, "objectID"), r.URL.Query().Get("filter"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, versions)
}

// GetObjectOfLatestVersion returns the latest version, or the latest major
// version with major=true
func (h *Handler) GetObjectOfLatestVersion(w http.ResponseWriter, r *http.Request) {
	major, err := boolParam(r, "major", false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	opts, err := objectOptions(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	obj, err := h.service.GetObjectOfLatestVersion(r.Context(), chi.URLParam(r, "objectID"), major, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, obj)
}
