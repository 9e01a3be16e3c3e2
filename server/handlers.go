package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
)

// openRequest is the POST /positions body. With atMarket set the entry
// price is taken from the feed and entryPrice is ignored.
type openRequest struct {
	ledger.OpenRequest
	AtMarket bool `json:"atMarket,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type sessionResponse struct {
	Running bool `json:"running"`
	Changed bool `json:"changed"`
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"running":  s.sess.Running(),
		"interval": s.sess.Interval().String(),
		"clients":  s.hub.Clients(),
	})
}

// dashboard handles GET /api/v1/dashboard
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sess.View())
}

// account handles GET /api/v1/account
func (s *Server) account(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sess.View().Account)
}

// listPositions handles GET /api/v1/positions. Optional filters: status
// (open|closed), instrument and tag.
func (s *Server) listPositions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.Filter{
		Status:     ledger.Status(strings.ToLower(q.Get("status"))),
		Instrument: q.Get("instrument"),
		Tag:        q.Get("tag"),
	}

	switch f.Status {
	case "", ledger.StatusOpen, ledger.StatusClosed:
	default:
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "status must be open or closed", Field: "status"})
		return
	}

	out := s.sess.Positions(f)
	if out == nil {
		out = []ledger.Position{}
	}
	respondJSON(w, http.StatusOK, out)
}

// getPosition handles GET /api/v1/positions/{id}
func (s *Server) getPosition(w http.ResponseWriter, r *http.Request) {
	p, err := s.sess.Position(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// openPosition handles POST /api/v1/positions
func (s *Server) openPosition(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Field errors such as an unknown direction keep their field name.
		var ve *ledger.ValidationError
		if errors.As(err, &ve) {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	var (
		p   ledger.Position
		err error
	)
	if req.AtMarket {
		p, err = s.sess.OpenAtMarket(r.Context(), req.OpenRequest)
	} else {
		p, err = s.sess.Open(r.Context(), req.OpenRequest)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// closePosition handles POST /api/v1/positions/{id}/close
func (s *Server) closePosition(w http.ResponseWriter, r *http.Request) {
	p, err := s.sess.Close(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// performance handles GET /api/v1/performance
func (s *Server) performance(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sess.View().Performance)
}

// risk handles GET /api/v1/risk
func (s *Server) risk(w http.ResponseWriter, r *http.Request) {
	v := s.sess.View()
	respondJSON(w, http.StatusOK, map[string]any{
		"risk":        v.Risk,
		"inputsFresh": v.RiskInputsFresh,
	})
}

// startSession handles POST /api/v1/session/start
func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	changed := s.sess.Start(s.base)
	respondJSON(w, http.StatusOK, sessionResponse{Running: s.sess.Running(), Changed: changed})
}

// stopSession handles POST /api/v1/session/stop
func (s *Server) stopSession(w http.ResponseWriter, r *http.Request) {
	changed := s.sess.Stop()
	respondJSON(w, http.StatusOK, sessionResponse{Running: s.sess.Running(), Changed: changed})
}

// resetSession handles POST /api/v1/session/reset
func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	s.sess.Reset(r.Context())
	respondJSON(w, http.StatusOK, s.sess.View())
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Debug("write response", slog.Int("status", status), slog.String("error", err.Error()))
	}
}

// respondError maps session and ledger errors to HTTP statuses.
func respondError(w http.ResponseWriter, err error) {
	var ve *ledger.ValidationError
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: ve.Field})
	case errors.Is(err, ledger.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrAlreadyClosed):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, market.ErrPriceUnavailable):
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
