// This file implements the photo evidence endpoints. Photo uploads are
// multipart: the file lands in object storage (with a thumbnail) before the
// evidence record is created and run through OCR.
//
// Routes:
//   - POST /api/reports/{id}/evidence   -> Upload (multipart: photo, kind)
//   - POST /api/evidence/{id}/replace   -> Replace (multipart: photo, reason)
//   - POST /api/evidence/{id}/unlock    -> Unlock
//   - GET  /api/evidence/{id}           -> Get
//   - GET  /api/evidence/{id}/history   -> History
package handler

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pilotos/fleetcore/internal/domain"
	"github.com/pilotos/fleetcore/internal/service"
	"github.com/pilotos/fleetcore/internal/storage"
)

// EvidenceHandler handles evidence requests.
type EvidenceHandler struct {
	evidence   service.EvidenceService
	files      storage.Storage
	thumbnails service.ThumbnailProcessor
	logger     *slog.Logger
}

// NewEvidenceHandler creates a new EvidenceHandler.
func NewEvidenceHandler(evidence service.EvidenceService, files storage.Storage, thumbnails service.ThumbnailProcessor, logger *slog.Logger) *EvidenceHandler {
	return &EvidenceHandler{
		evidence:   evidence,
		files:      files,
		thumbnails: thumbnails,
		logger:     logger,
	}
}

// RegisterRoutes registers evidence routes on the provided mux.
func (h *EvidenceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/reports/{id}/evidence", h.Upload)
	mux.HandleFunc("POST /api/evidence/{id}/replace", h.Replace)
	mux.HandleFunc("POST /api/evidence/{id}/unlock", h.Unlock)
	mux.HandleFunc("GET /api/evidence/{id}", h.Get)
	mux.HandleFunc("GET /api/evidence/{id}/history", h.History)
}

type evidenceJSON struct {
	ID            uuid.UUID `json:"id"`
	ReportID      uuid.UUID `json:"report_id"`
	Kind          string    `json:"kind"`
	StorageRef    string    `json:"storage_ref"`
	Status        string    `json:"status"`
	OCRConfidence float64   `json:"ocr_confidence"`
	Attempts      int       `json:"attempts"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type taskJSON struct {
	ID        uuid.UUID `json:"id"`
	DriverID  uuid.UUID `json:"driver_id"`
	Kind      string    `json:"kind"`
	EntityID  uuid.UUID `json:"entity_id"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}

type attachResultJSON struct {
	Evidence evidenceJSON `json:"evidence"`
	Task     *taskJSON    `json:"task,omitempty"`
}

func renderEvidence(e *domain.PhotoEvidence) evidenceJSON {
	return evidenceJSON{
		ID:            e.ID,
		ReportID:      e.ReportID,
		Kind:          string(e.Kind),
		StorageRef:    e.StorageRef,
		Status:        string(e.Status),
		OCRConfidence: e.OCRConfidence,
		Attempts:      e.Attempts,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func renderTask(t *domain.PendingTask) *taskJSON {
	if t == nil {
		return nil
	}
	return &taskJSON{
		ID:        t.ID,
		DriverID:  t.DriverID,
		Kind:      string(t.Kind),
		EntityID:  t.EntityID,
		Resolved:  t.Resolved,
		CreatedAt: t.CreatedAt,
	}
}

func renderAttachResult(a *service.AttachResult) *attachResultJSON {
	if a == nil {
		return nil
	}
	return &attachResultJSON{
		Evidence: renderEvidence(a.Evidence),
		Task:     renderTask(a.Task),
	}
}

// storePhoto reads the uploaded file, stores it under a fresh photo key, and
// writes a thumbnail alongside. Thumbnail failures are logged, not fatal.
func (h *EvidenceHandler) storePhoto(r *http.Request, file multipart.File, header *multipart.FileHeader) (string, error) {
	contentType := storage.DetectContentType(header.Header.Get("Content-Type"), header.Filename)
	if !storage.IsAllowedPhotoType(contentType) {
		return "", domain.Invalid("evidence.upload", "photo must be a JPEG, PNG or WebP image")
	}

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxPhotoSize+1))
	if err != nil {
		return "", domain.Internal(err, "evidence.upload", "failed to read photo")
	}
	if int64(len(data)) > storage.MaxPhotoSize {
		return "", domain.Invalid("evidence.upload", "photo exceeds the size limit")
	}

	photoID := uuid.New()
	key := storage.PhotoKey(photoID, header.Filename)
	err = h.files.Put(r.Context(), key, bytes.NewReader(data), storage.PutOptions{
		ContentType: contentType,
		MaxSize:     storage.MaxPhotoSize,
	})
	if err != nil {
		return "", domain.Internal(err, "evidence.upload", "failed to store photo")
	}

	thumb, _, _, err := h.thumbnails.GenerateThumbnail(bytes.NewReader(data), service.ThumbnailMaxWidth, service.ThumbnailMaxHeight)
	if err != nil {
		h.logger.Warn("thumbnail generation failed", "key", key, "error", err)
		return key, nil
	}
	err = h.files.Put(r.Context(), storage.ThumbnailKey(photoID), bytes.NewReader(thumb), storage.PutOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		h.logger.Warn("thumbnail store failed", "key", key, "error", err)
	}
	return key, nil
}

// Upload handles POST /api/reports/{id}/evidence.
func (h *EvidenceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	reportID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := r.ParseMultipartForm(storage.MaxPhotoSize); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("evidence.upload", "expected a multipart form"))
		return
	}
	kind := domain.EvidenceKind(r.FormValue("kind"))
	if !kind.IsValid() {
		ErrorResponse(w, r, h.logger, domain.Invalid("evidence.upload", "kind must be METER or FUEL"))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("evidence.upload", "photo file is required"))
		return
	}
	defer file.Close()

	key, err := h.storePhoto(r, file, header)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.evidence.Attach(r.Context(), reportID, kind, key)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, renderAttachResult(result))
}

// Replace handles POST /api/evidence/{id}/replace.
func (h *EvidenceHandler) Replace(w http.ResponseWriter, r *http.Request) {
	evidenceID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := r.ParseMultipartForm(storage.MaxPhotoSize); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("evidence.replace", "expected a multipart form"))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("evidence.replace", "photo file is required"))
		return
	}
	defer file.Close()

	key, err := h.storePhoto(r, file, header)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	updated, err := h.evidence.Replace(r.Context(), evidenceID, key, r.FormValue("reason"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, renderEvidence(updated))
}

type unlockRequest struct {
	IncidentID uuid.UUID `json:"incident_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	Reason     string    `json:"reason"`
}

// Unlock handles POST /api/evidence/{id}/unlock.
func (h *EvidenceHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	evidenceID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req unlockRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	updated, err := h.evidence.Unlock(r.Context(), evidenceID, req.IncidentID, req.ActorID, req.Reason)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, renderEvidence(updated))
}

// Get handles GET /api/evidence/{id}.
func (h *EvidenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	ev, err := h.evidence.GetByID(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, renderEvidence(ev))
}

type historyJSON struct {
	ID          uuid.UUID `json:"id"`
	PreviousRef string    `json:"previous_ref"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// History handles GET /api/evidence/{id}/history.
func (h *EvidenceHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	entries, err := h.evidence.History(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]historyJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyJSON{
			ID:          e.ID,
			PreviousRef: e.PreviousRef,
			Reason:      e.Reason,
			CreatedAt:   e.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"history": out})
}
