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

type memberService interface {
	CreateMember(ctx context.Context, params application.CreateMemberParams) (application.Member, error)
	UpdateMember(ctx context.Context, params application.UpdateMemberParams) (application.Member, error)
	GetMember(ctx context.Context, id string) (application.Member, error)
	ListMembers(ctx context.Context) ([]application.Member, error)
	DeleteMember(ctx context.Context, principal application.Principal, memberID string) error
}

type MemberHandler struct {
	service   memberService
	responder responder
}

func NewMemberHandler(service memberService, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{service: service, responder: newResponder(logger)}
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	member, err := h.service.CreateMember(r.Context(), application.CreateMemberParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, memberResponse{Member: toMemberDTO(member)})
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	memberID, ok := MemberIDFromContext(r.Context())
	if !ok || strings.TrimSpace(memberID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMemberID)
		return
	}

	member, err := h.service.GetMember(r.Context(), memberID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, memberResponse{Member: toMemberDTO(member)})
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	memberID, ok := MemberIDFromContext(r.Context())
	if !ok || strings.TrimSpace(memberID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMemberID)
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	member, err := h.service.UpdateMember(r.Context(), application.UpdateMemberParams{
		Principal: principal,
		MemberID:  memberID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, memberResponse{Member: toMemberDTO(member)})
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	memberID, ok := MemberIDFromContext(r.Context())
	if !ok || strings.TrimSpace(memberID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMemberID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.DeleteMember(r.Context(), principal, memberID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]memberDTO, 0, len(members))
	for _, member := range members {
		dtos = append(dtos, toMemberDTO(member))
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMembersResponse{Members: dtos})
}

type memberRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
	Password    string `json:"password"`
	IsAdmin     bool   `json:"is_admin"`
}

func (r memberRequest) toInput() application.MemberInput {
	return application.MemberInput{
		Email:       strings.TrimSpace(r.Email),
		DisplayName: strings.TrimSpace(r.DisplayName),
		Color:       strings.TrimSpace(r.Color),
		Password:    r.Password,
		IsAdmin:     r.IsAdmin,
	}
}

type memberResponse struct {
	Member memberDTO `json:"member"`
}

type listMembersResponse struct {
	Members []memberDTO `json:"members"`
}

type memberDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color,omitempty"`
	IsAdmin     bool   `json:"is_admin"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toMemberDTO(member application.Member) memberDTO {
	return memberDTO{
		ID:          member.ID,
		Email:       member.Email,
		DisplayName: member.DisplayName,
		Color:       member.Color,
		IsAdmin:     member.IsAdmin,
		CreatedAt:   member.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   member.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
