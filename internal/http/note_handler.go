package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/family-scheduler/internal/application"
)

type noteService interface {
	CreateNote(ctx context.Context, params application.CreateNoteParams) (application.Note, error)
	UpdateNote(ctx context.Context, params application.UpdateNoteParams) (application.Note, error)
	ListNotes(ctx context.Context) ([]application.Note, error)
	DeleteNote(ctx context.Context, principal application.Principal, noteID string) error
}

type NoteHandler struct {
	service   noteService
	responder responder
}

func NewNoteHandler(service noteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{service: service, responder: newResponder(logger)}
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	note, err := h.service.CreateNote(r.Context(), application.CreateNoteParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, noteResponse{Note: toNoteDTO(note)})
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	noteID, ok := NoteIDFromContext(r.Context())
	if !ok || strings.TrimSpace(noteID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidNoteID)
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	note, err := h.service.UpdateNote(r.Context(), application.UpdateNoteParams{
		Principal: principal,
		NoteID:    noteID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, noteResponse{Note: toNoteDTO(note)})
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	noteID, ok := NoteIDFromContext(r.Context())
	if !ok || strings.TrimSpace(noteID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidNoteID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.DeleteNote(r.Context(), principal, noteID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	notes, err := h.service.ListNotes(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]noteDTO, 0, len(notes))
	for _, note := range notes {
		dtos = append(dtos, toNoteDTO(note))
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listNotesResponse{Notes: dtos})
}

type noteRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Pinned bool   `json:"pinned"`
}

func (r noteRequest) toInput() application.NoteInput {
	return application.NoteInput{
		Title:  strings.TrimSpace(r.Title),
		Body:   r.Body,
		Pinned: r.Pinned,
	}
}

type noteResponse struct {
	Note noteDTO `json:"note"`
}

type listNotesResponse struct {
	Notes []noteDTO `json:"notes"`
}

type noteDTO struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Pinned    bool   `json:"pinned"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toNoteDTO(note application.Note) noteDTO {
	return noteDTO{
		ID:        note.ID,
		AuthorID:  note.AuthorID,
		Title:     note.Title,
		Body:      note.Body,
		Pinned:    note.Pinned,
		CreatedAt: note.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: note.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
