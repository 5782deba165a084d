package server

import (
	"encoding/json"
	"net/http"

	"FretLab/config"
	"FretLab/core/peaks"
	"FretLab/logger"
	"FretLab/repository"
)

// APIHandler bundles the dependencies the HTTP and WebSocket handlers share.
type APIHandler struct {
	lessonRepo repository.LessonRepository
	lickRepo   repository.LickRepository
	logRepo    repository.PracticeLogRepository
	provider   *peaks.Provider
	cfg        *config.Config
}

func NewAPIHandler(lessonRepo repository.LessonRepository, lickRepo repository.LickRepository, logRepo repository.PracticeLogRepository, provider *peaks.Provider, cfg *config.Config) *APIHandler {
	return &APIHandler{
		lessonRepo: lessonRepo,
		lickRepo:   lickRepo,
		logRepo:    logRepo,
		provider:   provider,
		cfg:        cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response failed", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
