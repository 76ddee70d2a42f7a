package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"trivia-raffle-service/internal/app"
	"trivia-raffle-service/internal/domain"
)

// Handler exposes the admin API for ticket accounting and the prize draw.
// Authentication is a collaborator concern; the actor identity arrives via
// headers set by the fronting proxy.
type Handler struct {
	tickets *app.TicketService
	draws   *app.DrawService
}

func NewHandler(tickets *app.TicketService, draws *app.DrawService) *Handler {
	return &Handler{tickets: tickets, draws: draws}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/competitions/{id}/tickets/recompute", h.recompute)
	mux.HandleFunc("POST /api/competitions/{id}/tickets/manual", h.grantManual)
	mux.HandleFunc("GET /api/competitions/{id}/preview", h.preview)
	mux.HandleFunc("POST /api/competitions/{id}/lock", h.lock)
	mux.HandleFunc("POST /api/competitions/{id}/draw", h.draw)
	mux.HandleFunc("POST /api/competitions/{id}/reset", h.reset)
	mux.HandleFunc("PUT /api/competitions/{id}/publication", h.setPublication)
	mux.HandleFunc("GET /api/competitions/{id}/result", h.result)
	mux.HandleFunc("GET /api/competitions/{id}/result/public", h.publicResult)
}

type recomputeRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

func (h *Handler) recompute(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req recomputeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeMessage(w, http.StatusBadRequest, "userId is required")
		return
	}
	result, err := h.tickets.Recompute(r.Context(), actor, r.PathValue("id"), req.UserID, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type manualGrantRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Count       int    `json:"count"`
	Note        string `json:"note"`
}

func (h *Handler) grantManual(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req manualGrantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeMessage(w, http.StatusBadRequest, "userId is required")
		return
	}
	entry, err := h.tickets.GrantManual(r.Context(), actor, r.PathValue("id"), req.UserID, req.DisplayName, req.Count, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.draws.Preview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if candidates == nil {
		candidates = []domain.Candidate{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	snapshot, err := h.draws.Lock(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot)
}

type drawRequest struct {
	Seed string `json:"seed"`
}

func (h *Handler) draw(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	// The seed is optional and the body may be absent entirely; chunked
	// requests report no ContentLength, so decode and tolerate an empty body.
	var req drawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.draws.Run(r.Context(), actor, r.PathValue("id"), req.Seed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type resetRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req resetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.draws.Reset(r.Context(), actor, r.PathValue("id"), req.Reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setPublication(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var pub domain.Publication
	if !decodeBody(w, r, &pub) {
		return
	}
	if err := h.draws.SetPublication(r.Context(), actor, r.PathValue("id"), pub); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) result(w http.ResponseWriter, r *http.Request) {
	result, err := h.draws.Result(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) publicResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.draws.PublicResult(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func actorFrom(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	id := r.Header.Get("X-Actor-Id")
	if id == "" {
		writeMessage(w, http.StatusBadRequest, "missing X-Actor-Id header")
		return domain.Actor{}, false
	}
	role := domain.Role(r.Header.Get("X-Actor-Role"))
	if role == "" {
		role = domain.RoleAdmin
	}
	return domain.Actor{ID: id, Role: role}, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeError maps each domain error to a distinct status and message so the
// admin can tell whether to retry, escalate, or treat the draw as final.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAlreadyLocked),
		errors.Is(err, domain.ErrAlreadyDrawn):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNoSnapshot),
		errors.Is(err, domain.ErrNoDrawResult),
		errors.Is(err, domain.ErrCompetitionNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNoEligibleCandidates),
		errors.Is(err, domain.ErrReasonTooShort),
		errors.Is(err, domain.ErrManualAdjustmentsDisabled),
		errors.Is(err, domain.ErrEmptySnapshot):
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

type messageBody struct {
	Message string `json:"message"`
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageBody{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
