package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"stemsplit/internal/logging"
	"stemsplit/internal/separation"
	"stemsplit/internal/services"
	"stemsplit/internal/session"
)

const maxRequestBody = 64 << 10

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Input = strings.TrimSpace(req.Input)
	if err := s.validate.Struct(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "validation failed",
			Fields: validationFields(err),
		})
		return
	}

	runID, err := s.ctrl.Start(sessionRequest(req))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBusy):
			s.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, services.ErrConfiguration):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, JobAccepted{RunID: runID})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, StatusResponse{Status: s.ctrl.Status()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSON(w, http.StatusOK, HistoryResponse{Enabled: false})
		return
	}
	limit := 20
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 || parsed > 1000 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = parsed
	}
	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{Enabled: true, Jobs: records})
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, ModelsResponse{
		Default: separation.DefaultModel,
		Current: s.model,
		Models:  separation.Models(),
	})
}

func sessionRequest(req JobRequest) session.Request {
	return session.Request{
		Input:     req.Input,
		OutputDir: strings.TrimSpace(req.OutputDir),
		Batch:     req.Batch,
	}
}

func validationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		if fe.Field() == "OutputDir" {
			name = "output_dir"
		}
		switch fe.Tag() {
		case "required":
			fields[name] = "is required"
		case "max":
			fields[name] = "must be at most " + fe.Param() + " characters"
		default:
			fields[name] = "failed " + fe.Tag()
		}
	}
	return fields
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
