package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/market-pricing/internal/market"
	"github.com/sells-group/market-pricing/internal/model"
	"github.com/sells-group/market-pricing/internal/store"
)

const maxBodyBytes = 1 << 20

type handler struct {
	svc Service
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"estimator": h.svc.EstimatorStatus(),
	})
}

func (h *handler) priceBand(w http.ResponseWriter, r *http.Request) {
	var req market.JobRequest
	if !decode(w, r, &req) {
		return
	}
	band, err := h.svc.PriceBand(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, band)
}

func (h *handler) offerScore(w http.ResponseWriter, r *http.Request) {
	var in model.OfferScoreInput
	if !decode(w, r, &in) {
		return
	}
	score, err := h.svc.ScoreOffer(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (h *handler) createProvider(w http.ResponseWriter, r *http.Request) {
	var req market.ProviderRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.RegisterProvider(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) createJob(w http.ResponseWriter, r *http.Request) {
	var req market.JobRequest
	if !decode(w, r, &req) {
		return
	}
	job, err := h.svc.CreateJob(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *handler) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *handler) submitOffer(w http.ResponseWriter, r *http.Request) {
	var req market.OfferRequest
	if !decode(w, r, &req) {
		return
	}
	req.JobID = chi.URLParam(r, "id")

	offer, err := h.svc.SubmitOffer(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

func (h *handler) listOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.svc.RankedOffers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offers": offers})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	var verr *market.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		zap.L().Error("api: request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}
