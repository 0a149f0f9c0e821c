package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/MissionDeck/internal/domain/artifact"
	"github.com/Strob0t/MissionDeck/internal/service"
)

const maxUploadBody = 1 << 20 // 1 MiB

// Handlers bundles all HTTP handlers with their dependencies.
type Handlers struct {
	State *service.StateService
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(state *service.StateService) *Handlers {
	return &Handlers{State: state}
}

// HandleHealth reports process liveness.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetState returns the full mission state snapshot.
func (h *Handlers) GetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.State.Snapshot())
}

// GetArtifact returns one artifact by id.
func (h *Handlers) GetArtifact(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	a, ok := h.State.GetArtifact(id)
	if !ok {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type uploadArtifactRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

type uploadArtifactResponse struct {
	Success  bool              `json:"success"`
	Artifact artifact.Artifact `json:"artifact"`
}

// UploadArtifact stores a user-provided artifact and broadcasts it to
// all connected clients. The artifact is immutable once stored.
func (h *Handlers) UploadArtifact(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[uploadArtifactRequest](w, r, maxUploadBody)
	if !ok {
		return
	}
	if !requireField(w, req.Name, "name") || !requireField(w, req.Content, "content") {
		return
	}
	if req.Type == "" {
		req.Type = string(artifact.TypeText)
	}

	a := &artifact.Artifact{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Type:      artifact.Type(req.Type),
		Content:   req.Content,
		CreatedBy: "User",
		CreatedAt: time.Now(),
	}
	if err := a.Validate(); err != nil {
		writeDomainError(w, err, "invalid artifact")
		return
	}

	h.State.PutArtifact(r.Context(), a)
	writeJSON(w, http.StatusOK, uploadArtifactResponse{Success: true, Artifact: *a})
}
