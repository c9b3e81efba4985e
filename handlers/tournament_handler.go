package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/swiss-system/brackets"
	"github.com/Dosada05/swiss-system/middleware"
	"github.com/Dosada05/swiss-system/models"
	"github.com/Dosada05/swiss-system/services"
	"github.com/Dosada05/swiss-system/utils"
)

type TournamentHandler struct {
	service services.TournamentService
	logger  *slog.Logger
}

func NewTournamentHandler(service services.TournamentService, logger *slog.Logger) *TournamentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TournamentHandler{service: service, logger: logger}
}

type setupRequest struct {
	ID       string   `json:"id,omitempty"`
	Names    []string `json:"names"`
	RoundMin *int     `json:"round_min,omitempty"`
	RoundMax *int     `json:"round_max,omitempty"`
}

type setPairingsRequest struct {
	Pairs [][2]string `json:"pairs"`
}

type commitRequest struct {
	// Keys are 0-based pairing indices, values any notation ParseOutcome
	// accepts.
	Results map[string]string `json:"results"`
}

func wantsText(r *http.Request) bool {
	return r.URL.Query().Get("format") == "text" || strings.HasPrefix(r.Header.Get("Accept"), "text/plain")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (h *TournamentHandler) audit(r *http.Request, action, id string) {
	subject, err := middleware.GetSubjectFromContext(r.Context())
	if err != nil {
		subject = "anonymous"
	}
	h.logger.Info("organizer action",
		slog.String("action", action),
		slog.String("tournament_id", id),
		slog.String("subject", subject))
}

func (h *TournamentHandler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.ListTournaments(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": ids}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.setup(w, r, req.ID, req, http.StatusCreated)
}

func (h *TournamentHandler) ResetupTournament(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.setup(w, r, chi.URLParam(r, "tournamentID"), req, http.StatusOK)
}

func (h *TournamentHandler) setup(w http.ResponseWriter, r *http.Request, id string, req setupRequest, status int) {
	view, err := h.service.SetupTournament(r.Context(), id, services.SetupInput{
		Names:    req.Names,
		RoundMin: req.RoundMin,
		RoundMax: req.RoundMax,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.audit(r, "setup", view.ID)

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/tournaments/%s", view.ID))
	if err := writeJSON(w, status, jsonResponse{"tournament": view}, headers); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GetTournament(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetTournament(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tournamentID")
	if err := h.service.DeleteTournament(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.audit(r, "delete", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TournamentHandler) GetPairings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tournamentID")
	pairs, err := h.service.GetCurrentPairings(r.Context(), id)
	if err != nil {
		var exhausted *brackets.PairingExhaustedError
		if errors.As(err, &exhausted) {
			pairingExhaustedResponse(w, r, exhausted, pairs)
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writePairings(w, r, id, pairs)
}

func (h *TournamentHandler) SetPairings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tournamentID")
	var req setPairingsRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pairs, err := h.service.SetPairings(r.Context(), id, req.Pairs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.audit(r, "set pairings", id)
	h.writePairings(w, r, id, pairs)
}

func (h *TournamentHandler) writePairings(w http.ResponseWriter, r *http.Request, id string, pairs []models.Pairing) {
	view, err := h.service.GetTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if wantsText(r) {
		writeText(w, http.StatusOK, utils.BuildPairingsOutput(view.Round, pairs))
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"round": view.Round, "pairings": pairs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) CommitResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tournamentID")
	var req commitRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	results := make(map[int]models.Outcome, len(req.Results))
	for key, value := range req.Results {
		idx, err := strconv.Atoi(key)
		if err != nil {
			badRequestResponse(w, r, fmt.Errorf("result key %q is not a pairing index", key))
			return
		}
		outcome, err := models.ParseOutcome(value)
		if err != nil {
			badRequestResponse(w, r, fmt.Errorf("pairing %d: %w", idx, err))
			return
		}
		results[idx] = outcome
	}

	view, err := h.service.CommitRound(r.Context(), id, results)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.audit(r, "commit round", id)
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.service.GetStandings(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if wantsText(r) {
		writeText(w, http.StatusOK, utils.BuildStandingsOutput(standings))
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
