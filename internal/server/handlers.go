package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/agbru/dftcalc/internal/dft"
	"github.com/agbru/dftcalc/internal/logging"
	"github.com/agbru/dftcalc/internal/service"
	"github.com/agbru/dftcalc/pkg/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSONResponse(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Unix(),
		Device:    dft.HostFeatures(),
	})
}

func (s *Server) handleBackends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ids := s.service.Backends()
	resp := models.BackendsResponse{
		Backends: make([]string, len(ids)),
		Default:  string(s.service.DefaultBackend()),
	}
	for i, id := range ids {
		resp.Backends[i] = string(id)
	}
	s.writeResponse(w, r, http.StatusOK, resp)
}

// handleExtract decodes a workload, runs one backend over it within
// RequestTimeout and returns the visibilities in request order.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	req, err := decodeExtractRequest(w, r, s.securityConfig.MaxBodyBytes)
	if err != nil {
		var reqErr RequestError
		if errors.As(err, &reqErr) {
			s.writeErrorResponse(w, reqErr.StatusCode, reqErr.Message)
			return
		}
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeouts.RequestTimeout)
	defer cancel()

	res, err := s.service.Extract(ctx, service.Request{
		Backend:      req.Backend,
		ForceZeroW:   req.ForceZeroW,
		Sources:      toSources(req.Sources),
		Visibilities: toVisibilities(req.Visibilities),
	})
	if err != nil {
		s.writeExtractError(w, r, req, err)
		return
	}

	s.writeResponse(w, r, http.StatusOK, buildExtractResponse(res))
}

func (s *Server) writeExtractError(w http.ResponseWriter, r *http.Request, req models.ExtractRequest, err error) {
	var unknown *dft.UnknownBackendError
	switch {
	case errors.Is(err, service.ErrWorkloadTooLarge):
		s.writeErrorResponse(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("%d sources × %d visibilities exceeds the maximum of %s pairs.",
				len(req.Sources), len(req.Visibilities), formatWork(s.securityConfig.MaxWork)))
	case errors.As(err, &unknown):
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeErrorResponse(w, http.StatusGatewayTimeout, "extraction exceeded the request timeout")
	default:
		s.logger.Error("extraction failed", err, logging.String("backend", req.Backend))
		s.writeResponse(w, r, http.StatusInternalServerError, models.ExtractResponse{
			Backend: req.Backend,
			Error:   err.Error(),
		})
	}
}

func buildExtractResponse(res service.Result) models.ExtractResponse {
	resp := models.ExtractResponse{
		Backend:      string(res.Backend),
		Duration:     res.Duration.String(),
		DurationMS:   float64(res.Duration.Microseconds()) / 1000,
		Cached:       res.Cached,
		Visibilities: make([]models.Brightness, len(res.Output)),
	}
	for i, c := range res.Output {
		if math.IsNaN(c.Real) || math.IsNaN(c.Imaginary) {
			resp.NaNCount++
		}
		resp.Visibilities[i] = models.Brightness{Real: models.Float(c.Real), Imaginary: models.Float(c.Imaginary)}
	}
	return resp
}

func toSources(in []models.Source) []dft.Source {
	out := make([]dft.Source, len(in))
	for i, src := range in {
		out[i] = dft.Source{L: src.L, M: src.M, Intensity: src.Intensity}
	}
	return out
}

func toVisibilities(in []models.Visibility) []dft.Visibility {
	out := make([]dft.Visibility, len(in))
	for i, v := range in {
		out[i] = dft.Visibility{U: v.U, V: v.V, W: v.W}
	}
	return out
}

// writeJSONResponse writes data as JSON with statusCode.
func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", err)
	}
}

// writeErrorResponse writes an ErrorResponse as JSON.
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSONResponse(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
