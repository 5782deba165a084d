package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"FretLab/logger"
	"FretLab/model"
)

// ListLicksHandler returns licks, optionally filtered to one lesson via
// ?lesson=<id>.
func (h *APIHandler) ListLicksHandler(w http.ResponseWriter, r *http.Request) {
	var (
		licks []*model.Lick
		err   error
	)
	if lessonID := r.URL.Query().Get("lesson"); lessonID != "" {
		licks, err = h.lickRepo.ListByLesson(r.Context(), lessonID)
	} else {
		licks, err = h.lickRepo.List(r.Context())
	}
	if err != nil {
		logger.Error("list licks failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to list licks")
		return
	}
	writeJSON(w, http.StatusOK, licks)
}

// GetLickHandler returns one lick by id.
func (h *APIHandler) GetLickHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	lick, err := h.lickRepo.GetByID(r.Context(), id)
	if err != nil {
		logger.Error("get lick failed", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to get lick")
		return
	}
	if lick == nil {
		writeError(w, http.StatusNotFound, "lick not found")
		return
	}
	writeJSON(w, http.StatusOK, lick)
}

// CreateLickHandler saves a region of a lesson as a named lick.
func (h *APIHandler) CreateLickHandler(w http.ResponseWriter, r *http.Request) {
	var lick model.Lick
	if err := json.NewDecoder(r.Body).Decode(&lick); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(lick.Title) == "" || lick.LessonID == "" {
		writeError(w, http.StatusBadRequest, "title and lessonId are required")
		return
	}
	if lick.End <= lick.Start || lick.Start < 0 {
		writeError(w, http.StatusBadRequest, "invalid time range")
		return
	}

	exists, err := h.lessonRepo.ExistsByID(r.Context(), lick.LessonID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create lick")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "lesson not found")
		return
	}

	lick.ID = uuid.NewString()
	if err := h.lickRepo.Create(r.Context(), &lick); err != nil {
		logger.Error("create lick failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to create lick")
		return
	}

	logger.Info("lick created",
		logger.String("id", lick.ID),
		logger.String("lessonId", lick.LessonID),
		logger.Float64("start", lick.Start),
		logger.Float64("end", lick.End))
	writeJSON(w, http.StatusCreated, lick)
}

// UpdateLickHandler rewrites a lick's metadata and range.
func (h *APIHandler) UpdateLickHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	existing, err := h.lickRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update lick")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "lick not found")
		return
	}

	var req model.Lick
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.End <= req.Start || req.Start < 0 {
		writeError(w, http.StatusBadRequest, "invalid time range")
		return
	}

	existing.Title = req.Title
	existing.Tags = req.Tags
	existing.Start = req.Start
	existing.End = req.End
	existing.Memo = req.Memo

	if err := h.lickRepo.Update(r.Context(), existing); err != nil {
		logger.Error("update lick failed", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to update lick")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// DeleteLickHandler removes one lick.
func (h *APIHandler) DeleteLickHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.lickRepo.Delete(r.Context(), id); err != nil {
		logger.Error("delete lick failed", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to delete lick")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
