package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// ContentBody is inline document content in a JSON request
type ContentBody struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

func (c *ContentBody) input() *cmis.ContentStreamInput {
	if c == nil {
		return nil
	}
	return &cmis.ContentStreamInput{
		Reader:   bytes.NewReader(c.Data),
		FileName: c.FileName,
		MimeType: c.MimeType,
	}
}

// CreateObjectRequest is the request body for creating an object. The
// base type of cmis:objectTypeId selects what is created. SourceID copies
// an existing document.
type CreateObjectRequest struct {
	Properties      cmis.Properties      `json:"properties"`
	SourceID        string               `json:"sourceId,omitempty"`
	Content         *ContentBody         `json:"content,omitempty"`
	VersioningState cmis.VersioningState `json:"versioningState,omitempty"`
	PolicyIDs       []string             `json:"policyIds,omitempty"`
	AddAces         cmis.Acl             `json:"addACEs"`
	RemoveAces      cmis.Acl             `json:"removeACEs"`
}

// CreatedResponse is the response body of create and update operations
type CreatedResponse struct {
	ID string `json:"id"`
}

// CreateChild creates a document, folder or policy in the folder
func (h *Handler) CreateChild(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, chi.URLParam(r, "objectID"))
}

// CreateRelationship creates a relationship between two objects
func (h *Handler) CreateRelationship(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "")
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, folderID string) {
	var req CreateObjectRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	props := properties(req.Properties)
	req.AddAces = normalizeAcl(req.AddAces)
	req.RemoveAces = normalizeAcl(req.RemoveAces)
	ctx := r.Context()

	var id string
	var err error
	if req.SourceID != "" {
		id, err = h.service.CreateDocumentFromSource(ctx, cmis.CreateDocumentFromSourceRequest{
			SourceID:        req.SourceID,
			Properties:      props,
			FolderID:        folderID,
			VersioningState: req.VersioningState,
			PolicyIDs:       req.PolicyIDs,
			AddAces:         req.AddAces,
			RemoveAces:      req.RemoveAces,
		})
	} else {
		id, err = h.createByType(r, props, folderID, &req)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/objects/%s", id))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, CreatedResponse{ID: id})
}

func (h *Handler) createByType(r *http.Request, props cmis.Properties, folderID string, req *CreateObjectRequest) (string, error) {
	ctx := r.Context()
	typeID := props.String(cmis.PropObjectTypeID)
	if typeID == "" {
		return "", badRequest("property %s is required", cmis.PropObjectTypeID)
	}
	td, err := h.service.GetTypeDefinition(ctx, typeID)
	if err != nil {
		return "", err
	}

	switch td.BaseID {
	case cmis.BaseTypeDocument:
		return h.service.CreateDocument(ctx, cmis.CreateDocumentRequest{
			Properties:      props,
			FolderID:        folderID,
			Content:         req.Content.input(),
			VersioningState: req.VersioningState,
			PolicyIDs:       req.PolicyIDs,
			AddAces:         req.AddAces,
			RemoveAces:      req.RemoveAces,
		})
	case cmis.BaseTypeFolder:
		return h.service.CreateFolder(ctx, cmis.CreateFolderRequest{
			Properties: props,
			FolderID:   folderID,
			PolicyIDs:  req.PolicyIDs,
			AddAces:    req.AddAces,
			RemoveAces: req.RemoveAces,
		})
	case cmis.BaseTypePolicy:
		return h.service.CreatePolicy(ctx, cmis.CreatePolicyRequest{
			Properties: props,
			FolderID:   folderID,
			PolicyIDs:  req.PolicyIDs,
			AddAces:    req.AddAces,
			RemoveAces: req.RemoveAces,
		})
	case cmis.BaseTypeRelationship:
		if folderID != "" {
			return "", cmis.Errorf(cmis.KindConstraint, "relationships are not fileable")
		}
		return h.service.CreateRelationship(ctx, cmis.CreateRelationshipRequest{
			Properties: props,
			PolicyIDs:  req.PolicyIDs,
			AddAces:    req.AddAces,
			RemoveAces: req.RemoveAces,
		})
	default:
		return "", badRequest("type %s has unknown base type %s", typeID, td.BaseID)
	}
}

// GetObject returns an object
func (h *Handler) GetObject(w http.ResponseWriter, r *http.Request) {
	opts, err := objectOptions(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	obj, err := h.service.GetObject(r.Context(), chi.URLParam(r, "objectID"), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, obj)
}

// GetObjectByPath returns the object at the path given by the path parameter
func (h *Handler) GetObjectByPath(w http.ResponseWriter, r *http.Request) {
	opts, err := objectOptions(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	obj, err := h.service.GetObjectByPath(r.Context(), r.URL.Query().Get("path"), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, obj)
}

// GetProperties returns the properties of an object
func (h *Handler) GetProperties(w http.ResponseWriter, r *http.Request) {
	props, err := h.service.GetProperties(r.Context(), chi.URLParam(r, "objectID"), r.URL.Query().Get("filter"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, props)
}

// UpdatePropertiesRequest is the request body for updating properties.
// A property with no values is deleted.
type UpdatePropertiesRequest struct {
	ChangeToken string          `json:"changeToken"`
	Properties  cmis.Properties `json:"properties"`
}

// UpdateProperties changes the properties of an object
func (h *Handler) UpdateProperties(w http.ResponseWriter, r *http.Request) {
	var req UpdatePropertiesRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := h.service.UpdateProperties(r.Context(), chi.URLParam(r, "objectID"), req.ChangeToken, properties(req.Properties))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, CreatedResponse{ID: id})
}

// GetAllowableActions returns what the principal may do with an object
func (h *Handler) GetAllowableActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.service.GetAllowableActions(r.Context(), chi.URLParam(r, "objectID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, actions)
}

// GetRenditions lists the renditions of a document
func (h *Handler) GetRenditions(w http.ResponseWriter, r *http.Request) {
	maxItems, skipCount, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	renditions, err := h.service.GetRenditions(r.Context(), chi.URLParam(r, "objectID"), maxItems, skipCount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, renditions)
}

// DeleteObject deletes an object, or its whole version series with
// allVersions
func (h *Handler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	allVersions, err := boolParam(r, "allVersions", true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.service.DeleteObject(r.Context(), chi.URLParam(r, "objectID"), allVersions); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetContentStream streams the content of a document. The offset and
// length parameters select a range.
func (h *Handler) GetContentStream(w http.ResponseWriter, r *http.Request) {
	offset, err := int64Param(r, "offset", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	length, err := int64Param(r, "length", -1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cs, err := h.service.GetContentStream(r.Context(), chi.URLParam(r, "objectID"), offset, length)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	mimeType := cs.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(cs.Length(), 10))
	if cs.FileName != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cs.FileName))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(cs.Bytes()); err != nil {
		h.logger.Warn("Failed to write content stream", "object_id", chi.URLParam(r, "objectID"), "error", err)
	}
}

// contentRequest builds a content request from the raw request body. The
// file name comes from the fileName parameter and the MIME type from the
// Content-Type header.
func contentRequest(r *http.Request) (cmis.SetContentStreamRequest, error) {
	overwrite, err := boolParam(r, "overwrite", false)
	if err != nil {
		return cmis.SetContentStreamRequest{}, err
	}
	return cmis.SetContentStreamRequest{
		ObjectID:    chi.URLParam(r, "objectID"),
		Overwrite:   overwrite,
		ChangeToken: r.URL.Query().Get("changeToken"),
		Content: cmis.ContentStreamInput{
			Reader:   r.Body,
			FileName: r.URL.Query().Get("fileName"),
			MimeType: r.Header.Get("Content-Type"),
		},
	}, nil
}

// SetContentStream replaces the content of a document
func (h *Handler) SetContentStream(w http.ResponseWriter, r *http.Request) {
	req, err := contentRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := h.service.SetContentStream(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, CreatedResponse{ID: id})
}

// AppendContentStream appends the request body to the content of a document
func (h *Handler) AppendContentStream(w http.ResponseWriter, r *http.Request) {
	req, err := contentRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := h.service.AppendContentStream(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, CreatedResponse{ID: id})
}

// DeleteContentStream removes the content of a document
func (h *Handler) DeleteContentStream(w http.ResponseWriter, r *http.Request) {
	id, err := h.service.DeleteContentStream(r.Context(), chi.URLParam(r, "objectID"), r.URL.Query().Get("changeToken"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, CreatedResponse{ID: id})
}

// MoveObjectRequest is the request body for moving an object
type MoveObjectRequest struct {
	SourceFolderID string `json:"sourceFolderId"`
	TargetFolderID string `json:"targetFolderId"`
}

// MoveObject moves an object between folders
func (h *Handler) MoveObject(w http.ResponseWriter, r *http.Request) {
	var req MoveObjectRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := h.service.MoveObject(r.Context(), chi.URLParam(r, "objectID"), req.SourceFolderID, req.TargetFolderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, CreatedResponse{ID: id})
}

// AddObjectToFolder files an object in an additional folder
func (h *Handler) AddObjectToFolder(w http.ResponseWriter, r *http.Request) {
	allVersions, err := boolParam(r, "allVersions", true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.service.AddObjectToFolder(r.Context(), chi.URLParam(r, "objectID"), chi.URLParam(r, "folderID"), allVersions); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveObjectFromFolder unfiles an object from a folder
func (h *Handler) RemoveObjectFromFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveObjectFromFolder(r.Context(), chi.URLParam(r, "objectID"), chi.URLParam(r, "folderID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
