package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"FretLab/logger"
	"FretLab/model"
)

// ListPracticeLogsHandler returns journal entries newest first, optionally
// bounded by ?start=YYYY-MM-DD&end=YYYY-MM-DD (inclusive).
func (h *APIHandler) ListPracticeLogsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.logRepo.List(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		logger.Error("list practice logs failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to list practice logs")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// CreatePracticeLogHandler records a new journal entry.
func (h *APIHandler) CreatePracticeLogHandler(w http.ResponseWriter, r *http.Request) {
	var entry model.PracticeLog
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validLogDate(entry.Date) {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if entry.DurationMinutes < 0 {
		writeError(w, http.StatusBadRequest, "duration must not be negative")
		return
	}
	entry.ID = 0

	if err := h.logRepo.Create(r.Context(), &entry); err != nil {
		logger.Error("create practice log failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to create practice log")
		return
	}

	logger.Info("practice log created",
		logger.String("date", entry.Date),
		logger.Int("minutes", entry.DurationMinutes))
	writeJSON(w, http.StatusCreated, entry)
}

// GetPracticeLogHandler returns one journal entry.
func (h *APIHandler) GetPracticeLogHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := practiceLogID(w, r)
	if !ok {
		return
	}
	entry, err := h.logRepo.GetByID(r.Context(), id)
	if err != nil {
		logger.Error("get practice log failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to get practice log")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "practice log not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// UpdatePracticeLogHandler replaces a journal entry's fields, keeping its
// creation time.
func (h *APIHandler) UpdatePracticeLogHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := practiceLogID(w, r)
	if !ok {
		return
	}

	current, err := h.logRepo.GetByID(r.Context(), id)
	if err != nil {
		logger.Error("get practice log failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to update practice log")
		return
	}
	if current == nil {
		writeError(w, http.StatusNotFound, "practice log not found")
		return
	}

	var entry model.PracticeLog
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validLogDate(entry.Date) {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	entry.ID = id
	entry.CreatedAt = current.CreatedAt

	if err := h.logRepo.Update(r.Context(), &entry); err != nil {
		logger.Error("update practice log failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to update practice log")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// DeletePracticeLogHandler removes a journal entry.
func (h *APIHandler) DeletePracticeLogHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := practiceLogID(w, r)
	if !ok {
		return
	}
	removed, err := h.logRepo.Delete(r.Context(), id)
	if err != nil {
		logger.Error("delete practice log failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to delete practice log")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "practice log not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PracticeStatsHandler returns the dashboard aggregate: the per-day
// heatmap plus total and current-week minutes.
func (h *APIHandler) PracticeStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.logRepo.Stats(r.Context(), time.Now())
	if err != nil {
		logger.Error("practice stats failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to compute practice stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func practiceLogID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid practice log id")
		return 0, false
	}
	return uint(id), true
}

func validLogDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
