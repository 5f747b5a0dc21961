package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/portal"
)

const (
	// multipartOverhead is allowed on top of a field's size limit for form framing
	multipartOverhead = 1 << 20

	// defaultMaxUpload bounds request bodies for fields without a size limit
	defaultMaxUpload = 32 << 20

	multipartMemory = 8 << 20
)

// EntityHandler serves CRUD and attachment uploads for every registered schema
type EntityHandler struct {
	service *portal.Service
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(service *portal.Service) *EntityHandler {
	return &EntityHandler{service: service}
}

// Routes returns the routes for entities
func (h *EntityHandler) Routes() chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// Register adds the entity routes to r
func (h *EntityHandler) Register(r chi.Router) {
	r.Get("/entities", h.ListEntities)

	r.Get("/{entity}", h.List)
	r.Post("/{entity}", h.Create)
	r.Post("/{entity}/attachments/{field}", h.UploadAttachment)
	r.Get("/{entity}/{id}", h.Get)
	r.Put("/{entity}/{id}", h.Update)
	r.Delete("/{entity}/{id}", h.Delete)
}

// ListEntities returns the schema of every entity
func (h *EntityHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	schemas, err := h.service.Entities(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, schemas)
}

// List returns one page of records
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	page, err := h.service.List(r.Context(), chi.URLParam(r, "entity"), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, page)
}

// Get returns one record
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "entity"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

// Create inserts a record from a JSON object of field values
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, r, "invalid JSON body")
		return
	}

	rec, err := h.service.Create(r.Context(), chi.URLParam(r, "entity"), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

// Update applies a JSON object of field values to a record
func (h *EntityHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, r, "invalid JSON body")
		return
	}

	rec, err := h.service.Update(r.Context(), chi.URLParam(r, "entity"), chi.URLParam(r, "id"), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

// Delete removes a record
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "entity"), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadAttachment stores the multipart "file" part under the constraints of
// an attachment field and returns its URL and path.
func (h *EntityHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	field := chi.URLParam(r, "field")

	limit := int64(defaultMaxUpload)
	if schema, err := h.service.Schema(entity); err == nil {
		if f, ok := schema.Field(field); ok && f.Attachment != nil && f.Attachment.MaxBytes() > 0 {
			limit = f.Attachment.MaxBytes() + multipartOverhead
		}
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, media.ErrSizeExceeded)
			return
		}
		badRequest(w, r, "expected multipart form with a file part")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, media.ErrNoFile)
		return
	}
	defer file.Close()

	result, err := h.service.UploadAttachment(r.Context(), entity, field, media.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// parseQuery reads q, limit, offset, order_by, desc and filter.<field>
func parseQuery(r *http.Request) (portal.Query, error) {
	values := r.URL.Query()
	q := portal.Query{
		Search:  values.Get("q"),
		OrderBy: values.Get("order_by"),
	}

	var err error
	if v := values.Get("limit"); v != "" {
		if q.Limit, err = strconv.Atoi(v); err != nil {
			return q, errors.New("limit must be an integer")
		}
	}
	if v := values.Get("offset"); v != "" {
		if q.Offset, err = strconv.Atoi(v); err != nil {
			return q, errors.New("offset must be an integer")
		}
	}
	if v := values.Get("desc"); v != "" {
		if q.Desc, err = strconv.ParseBool(v); err != nil {
			return q, errors.New("desc must be a boolean")
		}
	}

	for key, vals := range values {
		name, ok := strings.CutPrefix(key, "filter.")
		if !ok || name == "" || len(vals) == 0 {
			continue
		}
		if q.Filters == nil {
			q.Filters = make(map[string]string)
		}
		q.Filters[name] = vals[0]
	}
	return q, nil
}
