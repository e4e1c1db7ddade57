package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/darkevich777/anime-quiz/internal/app"
	"github.com/darkevich777/anime-quiz/internal/domain"
	qrcode "github.com/skip2/go-qrcode"
)

// Handler exposes the game state machine as a JSON API polled by the webapp.
// Every endpoint is keyed by chat_id (the group) and user_id (the caller).
type Handler struct {
	service   *app.GameService
	webAppURL string
}

func NewHandler(service *app.GameService, webAppURL string) *Handler {
	return &Handler{service: service, webAppURL: webAppURL}
}

// Register wires all API routes into the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", h.handleState)
	mux.HandleFunc("/api/qr", h.handleQR)

	mux.HandleFunc("/api/register", h.mutation(func(req mutationRequest) (domain.Snapshot, error) {
		return h.service.Register(req.ChatID, req.UserID, req.Name)
	}))
	mux.HandleFunc("/api/claim", h.mutation(func(req mutationRequest) (domain.Snapshot, error) {
		return h.service.ClaimModerator(req.ChatID, req.UserID)
	}))
	mux.HandleFunc("/api/configure", h.mutation(func(req mutationRequest) (domain.Snapshot, error) {
		return h.service.Configure(req.ChatID, req.UserID, req.TimerSeconds, req.RoundsTotal)
	}))
	mux.HandleFunc("/api/round/start", h.mutationCtx(func(r *http.Request, req mutationRequest) (domain.Snapshot, error) {
		return h.service.StartRound(r.Context(), req.ChatID, req.UserID, req.TimerSeconds)
	}))
	mux.HandleFunc("/api/round/next", h.mutationCtx(func(r *http.Request, req mutationRequest) (domain.Snapshot, error) {
		return h.service.NextRound(r.Context(), req.ChatID, req.UserID)
	}))
	mux.HandleFunc("/api/ready", h.mutation(func(req mutationRequest) (domain.Snapshot, error) {
		return h.service.MarkReady(req.ChatID, req.UserID)
	}))
	mux.HandleFunc("/api/force_start", h.mutation(func(req mutationRequest) (domain.Snapshot, error) {
		return h.service.ForceStart(req.ChatID, req.UserID)
	}))
	mux.HandleFunc("/api/answer", h.mutation(func(req mutationRequest) (domain.Snapshot, error) {
		if req.Choice == nil {
			return domain.Snapshot{}, errBadRequest
		}
		return h.service.SubmitAnswer(req.ChatID, req.UserID, *req.Choice)
	}))
	mux.HandleFunc("/api/end", h.mutation(func(req mutationRequest) (domain.Snapshot, error) {
		return h.service.EndGame(req.ChatID, req.UserID)
	}))
	mux.HandleFunc("/api/rematch/join", h.mutation(func(req mutationRequest) (domain.Snapshot, error) {
		return h.service.JoinRematch(req.ChatID, req.UserID, req.Name)
	}))
	mux.HandleFunc("/api/rematch/leave", h.mutation(func(req mutationRequest) (domain.Snapshot, error) {
		return h.service.LeaveRematch(req.ChatID, req.UserID)
	}))
	mux.HandleFunc("/api/rematch/start", h.mutation(func(req mutationRequest) (domain.Snapshot, error) {
		return h.service.StartRematch(req.ChatID, req.UserID)
	}))
}

var errBadRequest = errors.New("bad request")

type mutationRequest struct {
	ChatID       int64  `json:"chat_id"`
	UserID       int64  `json:"user_id"`
	Name         string `json:"name,omitempty"`
	TimerSeconds int    `json:"timer_seconds,omitempty"`
	RoundsTotal  int    `json:"rounds_total,omitempty"`
	Choice       *int   `json:"choice,omitempty"`
}

type stateResponse struct {
	OK    bool             `json:"ok"`
	State *domain.Snapshot `json:"state,omitempty"`
	Error string           `json:"error,omitempty"`
}

func (h *Handler) mutation(apply func(req mutationRequest) (domain.Snapshot, error)) http.HandlerFunc {
	return h.mutationCtx(func(_ *http.Request, req mutationRequest) (domain.Snapshot, error) {
		return apply(req)
	})
}

func (h *Handler) mutationCtx(apply func(r *http.Request, req mutationRequest) (domain.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
			return
		}
		var req mutationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request")
			return
		}
		if req.ChatID == 0 || req.UserID == 0 {
			writeError(w, http.StatusBadRequest, "missing_params")
			return
		}
		snap, err := apply(r, req)
		if err != nil {
			status, code := errorCode(err)
			writeError(w, status, code)
			return
		}
		writeJSON(w, http.StatusOK, stateResponse{OK: true, State: &snap})
	}
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	chatID, userID, ok := identityParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing_params")
		return
	}
	snap, err := h.service.Snapshot(chatID, userID)
	if err != nil {
		status, code := errorCode(err)
		writeError(w, status, code)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{OK: true, State: &snap})
}

// handleQR renders the webapp deep link for a chat as a PNG QR code.
func (h *Handler) handleQR(w http.ResponseWriter, r *http.Request) {
	if h.webAppURL == "" {
		writeError(w, http.StatusNotFound, "webapp_not_configured")
		return
	}
	chatID, userID, ok := identityParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing_params")
		return
	}
	link := fmt.Sprintf("%s?chat_id=%d&user_id=%d", h.webAppURL, chatID, userID)
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "qr_failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func identityParams(r *http.Request) (chatID, userID int64, ok bool) {
	chatID, err := strconv.ParseInt(r.URL.Query().Get("chat_id"), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	userID, err = strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return chatID, userID, true
}

// errorCode maps the domain taxonomy onto HTTP statuses and stable wire codes.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrNoGame):
		return http.StatusNotFound, "no_game"
	case errors.Is(err, domain.ErrNoRematch):
		return http.StatusNotFound, "no_rematch"
	case errors.Is(err, domain.ErrNotModerator):
		return http.StatusForbidden, "not_moderator"
	case errors.Is(err, domain.ErrUnknownPlayer):
		return http.StatusForbidden, "not_registered"
	case errors.Is(err, domain.ErrNotInRoster):
		return http.StatusForbidden, "not_in_roster"
	case errors.Is(err, domain.ErrModeratorTaken):
		return http.StatusConflict, "moderator_taken"
	case errors.Is(err, domain.ErrLocked):
		return http.StatusConflict, "locked"
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return http.StatusConflict, "already_registered"
	case errors.Is(err, domain.ErrNotStarted):
		return http.StatusConflict, "not_started"
	case errors.Is(err, domain.ErrTimerNotConfigured):
		return http.StatusConflict, "timer_not_configured"
	case errors.Is(err, domain.ErrNoActiveRound):
		return http.StatusConflict, "no_active_round"
	case errors.Is(err, domain.ErrRoundFinished):
		return http.StatusConflict, "round_finished"
	case errors.Is(err, domain.ErrNotAccepting):
		return http.StatusConflict, "not_accepting"
	case errors.Is(err, domain.ErrAlreadyAnswered):
		return http.StatusConflict, "already_answered"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway, "upstream_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, stateResponse{OK: false, Error: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
