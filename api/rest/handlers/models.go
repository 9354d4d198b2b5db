package handlers

import (
	"net/http"
	"strconv"

	"model-lifecycle/storage"

	"github.com/gorilla/mux"
)

// ModelHandler handles model store requests
type ModelHandler struct {
	store *storage.ModelStore
}

// NewModelHandler creates a new model handler
func NewModelHandler(store *storage.ModelStore) *ModelHandler {
	return &ModelHandler{store: store}
}

// List handles GET /v1/models
func (h *ModelHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": h.store.List(),
	})
}

// Latest handles GET /v1/models/{id}/latest
func (h *ModelHandler) Latest(w http.ResponseWriter, r *http.Request) {
	artifact, err := h.store.Latest(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

// Active handles GET /v1/models/{id}/active
func (h *ModelHandler) Active(w http.ResponseWriter, r *http.Request) {
	artifact, err := h.store.Active(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

// GetVersion handles GET /v1/models/{id}/versions/{version}
func (h *ModelHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	version, ok := parseVersion(w, vars["version"])
	if !ok {
		return
	}
	artifact, err := h.store.Load(vars["id"], version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

// DeleteVersion handles DELETE /v1/models/{id}/versions/{version}
func (h *ModelHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	version, ok := parseVersion(w, vars["version"])
	if !ok {
		return
	}
	deleted, err := h.store.Delete(vars["id"], version)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		notFound(w, "Model version not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      vars["id"],
		"version": version,
		"deleted": true,
	})
}

// Prune handles POST /v1/models/{id}/prune?keep=N
func (h *ModelHandler) Prune(w http.ResponseWriter, r *http.Request) {
	keep, err := intParam(r.URL.Query().Get("keep"), storage.DefaultKeep)
	if err != nil {
		badRequest(w, "keep must be an integer")
		return
	}
	id := mux.Vars(r)["id"]
	deleted, err := h.store.Prune(id, keep)
	if err != nil {
		writeError(w, err)
		return
	}
	versions, _ := h.store.Versions(id)
	resp := map[string]interface{}{
		"id":       id,
		"deleted":  deleted,
		"versions": versions,
	}
	// the active version survives pruning even when older than the kept ones
	if active, err := h.store.ActiveVersion(id); err == nil {
		resp["active_version"] = active
		resp["pinned_beyond_keep"] = len(versions) > keep
	}
	writeJSON(w, http.StatusOK, resp)
}

// Activate handles POST /v1/models/{id}/activate/{version}
func (h *ModelHandler) Activate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	version, ok := parseVersion(w, vars["version"])
	if !ok {
		return
	}
	if err := h.store.SetActive(vars["id"], version, "manual"); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":             vars["id"],
		"active_version": version,
	})
}

// Rollback handles POST /v1/models/{id}/rollback
func (h *ModelHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	version, err := h.store.Rollback(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":             id,
		"active_version": version,
	})
}

// Backup handles POST /v1/models/backup
func (h *ModelHandler) Backup(w http.ResponseWriter, r *http.Request) {
	path, err := h.store.Backup(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"path": path})
}

func parseVersion(w http.ResponseWriter, raw string) (int, bool) {
	version, err := strconv.Atoi(raw)
	if err != nil || version < 1 {
		badRequest(w, "version must be a positive integer")
		return 0, false
	}
	return version, true
}
