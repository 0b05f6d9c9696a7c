package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// GetAcl returns the ACL of an object
func (h *Handler) GetAcl(w http.ResponseWriter, r *http.Request) {
	acl, err := h.service.GetAcl(r.Context(), chi.URLParam(r, "objectID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, acl)
}

// ApplyAclRequest is the request body for merging ACEs into an ACL
type ApplyAclRequest struct {
	Add         cmis.Acl            `json:"addACEs"`
	Remove      cmis.Acl            `json:"removeACEs"`
	Propagation cmis.AclPropagation `json:"propagation"`
}

// ApplyAcl adds and removes ACEs
func (h *Handler) ApplyAcl(w http.ResponseWriter, r *http.Request) {
	var req ApplyAclRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.service.ApplyAcl(r.Context(), chi.URLParam(r, "objectID"),
		normalizeAcl(req.Add), normalizeAcl(req.Remove), req.Propagation)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// SetAclRequest is the request body for replacing an ACL
type SetAclRequest struct {
	Acl         cmis.Acl            `json:"acl"`
	Propagation cmis.AclPropagation `json:"propagation"`
}

// SetAcl replaces the ACL of an object
func (h *Handler) SetAcl(w http.ResponseWriter, r *http.Request) {
	var req SetAclRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.service.SetAcl(r.Context(), chi.URLParam(r, "objectID"), normalizeAcl(req.Acl), req.Propagation)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// GetAppliedPolicies lists the policies applied to an object
func (h *Handler) GetAppliedPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.service.GetAppliedPolicies(r.Context(), chi.URLParam(r, "objectID"), r.URL.Query().Get("filter"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, policies)
}

// ApplyPolicy applies a policy to an object
func (h *Handler) ApplyPolicy(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ApplyPolicy(r.Context(), chi.URLParam(r, "policyID"), chi.URLParam(r, "objectID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemovePolicy removes a policy from an object
func (h *Handler) RemovePolicy(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemovePolicy(r.Context(), chi.URLParam(r, "policyID"), chi.URLParam(r, "objectID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetObjectRelationships lists the relationships of an object
func (h *Handler) GetObjectRelationships(w http.ResponseWriter, r *http.Request) {
	maxItems, skipCount, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	req := cmis.GetRelationshipsRequest{
		ObjectID:  chi.URLParam(r, "objectID"),
		TypeID:    q.Get("typeId"),
		Direction: cmis.RelationshipDirection(q.Get("relationshipDirection")),
		Filter:    q.Get("filter"),
		MaxItems:  maxItems,
		SkipCount: skipCount,
	}
	if req.IncludeSubRelationshipTypes, err = boolParam(r, "includeSubRelationshipTypes", false); err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.service.GetObjectRelationships(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, list)
}
