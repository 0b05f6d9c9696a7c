// Package api exposes the repository services as JSON over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// Handler handles HTTP requests for a repository
type Handler struct {
	service cmis.Service
	logger  *slog.Logger
}

// NewHandler creates a new repository handler
func NewHandler(service cmis.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Routes returns the repository routes. The acting principal is resolved
// by PrincipalMiddleware.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(PrincipalMiddleware)

	r.Get("/repositories", h.GetRepositoryInfos)
	r.Get("/repositories/{repositoryID}", h.GetRepositoryInfo)

	r.Route("/types", func(r chi.Router) {
		r.Get("/", h.GetTypeChildren)
		r.Post("/", h.CreateType)
		r.Get("/{typeID}", h.GetTypeDefinition)
		r.Get("/{typeID}/children", h.GetTypeChildren)
		r.Get("/{typeID}/descendants", h.GetTypeDescendants)
	})

	r.Get("/path", h.GetObjectByPath)
	r.Get("/checkedout", h.GetCheckedOutDocs)
	r.Get("/changes", h.GetContentChanges)
	r.Post("/relationships", h.CreateRelationship)

	r.Route("/objects/{objectID}", func(r chi.Router) {
		r.Get("/", h.GetObject)
		r.Delete("/", h.DeleteObject)
		r.Get("/properties", h.GetProperties)
		r.Patch("/properties", h.UpdateProperties)
		r.Get("/actions", h.GetAllowableActions)
		r.Get("/renditions", h.GetRenditions)

		// Content
		r.Get("/content", h.GetContentStream)
		r.Put("/content", h.SetContentStream)
		r.Post("/content", h.AppendContentStream)
		r.Delete("/content", h.DeleteContentStream)

		// Navigation and filing
		r.Get("/children", h.GetChildren)
		r.Post("/children", h.CreateChild)
		r.Get("/descendants", h.GetDescendants)
		r.Get("/tree", h.GetFolderTree)
		r.Delete("/tree", h.DeleteTree)
		r.Get("/parent", h.GetFolderParent)
		r.Get("/parents", h.GetObjectParents)
		r.Put("/parents/{folderID}", h.AddObjectToFolder)
		r.Delete("/parents/{folderID}", h.RemoveObjectFromFolder)
		r.Post("/move", h.MoveObject)

		// Versioning
		r.Post("/checkout", h.CheckOut)
		r.Delete("/checkout", h.CancelCheckOut)
		r.Post("/checkin", h.CheckIn)
		r.Get("/versions", h.GetAllVersions)
		r.Get("/latest", h.GetObjectOfLatestVersion)

		// Security
		r.Get("/acl", h.GetAcl)
		r.Post("/acl", h.ApplyAcl)
		r.Put("/acl", h.SetAcl)
		r.Get("/policies", h.GetAppliedPolicies)
		r.Put("/policies/{policyID}", h.ApplyPolicy)
		r.Delete("/policies/{policyID}", h.RemovePolicy)

		r.Get("/relationships", h.GetObjectRelationships)
	})

	return r
}

// ErrorResponse is the response body of a failed request
type ErrorResponse struct {
	Kind     string `json:"kind"`
	Op       string `json:"operation,omitempty"`
	ObjectID string `json:"objectId,omitempty"`
	Message  string `json:"message"`
}

// StatusCode maps a repository error to an HTTP status code.
func StatusCode(err error) int {
	switch cmis.KindOf(err) {
	case cmis.KindInvalidArgument:
		return http.StatusBadRequest
	case cmis.KindObjectNotFound:
		return http.StatusNotFound
	case cmis.KindNameConstraintViolation, cmis.KindConstraint, cmis.KindUpdateConflict:
		return http.StatusConflict
	case cmis.KindPermissionDenied:
		return http.StatusForbidden
	case cmis.KindNotSupported:
		return http.StatusMethodNotAllowed
	case cmis.KindStorageLimitExceeded:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	resp := ErrorResponse{
		Kind:    cmis.KindOf(err).String(),
		Message: err.Error(),
	}
	var cerr *cmis.Error
	if errors.As(err, &cerr) {
		resp.Op = cerr.Op
		resp.ObjectID = cerr.ObjectID
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		h.logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

func badRequest(format string, args ...any) error {
	return cmis.Errorf(cmis.KindInvalidArgument, format, args...)
}

// decode reads a JSON request body into v. An empty body leaves v
// unchanged.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("malformed request body: %v", err)
	}
	return nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, badRequest("parameter %s: %q is not an integer", name, s)
	}
	return n, nil
}

func int64Param(r *http.Request, name string, def int64) (int64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, badRequest("parameter %s: %q is not an integer", name, s)
	}
	return n, nil
}

func boolParam(r *http.Request, name string, def bool) (bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, badRequest("parameter %s: %q is not a boolean", name, s)
	}
	return b, nil
}

// paging reads maxItems and skipCount. A missing maxItems selects all
// items.
func paging(r *http.Request) (maxItems, skipCount int, err error) {
	if maxItems, err = intParam(r, "maxItems", 0); err != nil {
		return 0, 0, err
	}
	if skipCount, err = intParam(r, "skipCount", 0); err != nil {
		return 0, 0, err
	}
	return maxItems, skipCount, nil
}

// objectOptions reads the GetObjectOptions query parameters.
func objectOptions(r *http.Request) (cmis.GetObjectOptions, error) {
	opts := cmis.GetObjectOptions{
		Filter:               r.URL.Query().Get("filter"),
		IncludeRelationships: cmis.RelationshipDirection(r.URL.Query().Get("includeRelationships")),
	}
	var err error
	if opts.IncludeAllowableActions, err = boolParam(r, "includeAllowableActions", false); err != nil {
		return opts, err
	}
	if opts.IncludeAcl, err = boolParam(r, "includeACL", false); err != nil {
		return opts, err
	}
	if opts.IncludePolicyIDs, err = boolParam(r, "includePolicyIds", false); err != nil {
		return opts, err
	}
	return opts, nil
}

// properties keys each property by its id, taking the id from the map key
// when the body leaves it out.
func properties(in cmis.Properties) cmis.Properties {
	out := make(cmis.Properties, len(in))
	for key, p := range in {
		if p.ID == "" {
			p.ID = key
		}
		out[p.ID] = p
	}
	return out
}

// normalizeAcl collapses duplicate principals in a decoded ACL.
func normalizeAcl(a cmis.Acl) cmis.Acl {
	return cmis.NewAcl(a.Aces...)
}
