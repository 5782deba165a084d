package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"FretLab/cache"
	"FretLab/logger"
	"FretLab/model"
	"FretLab/storage"
)

// ListLessonsHandler returns all lessons, newest first.
func (h *APIHandler) ListLessonsHandler(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.lessonRepo.List(r.Context())
	if err != nil {
		logger.Error("list lessons failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to list lessons")
		return
	}
	writeJSON(w, http.StatusOK, lessons)
}

// GetLessonHandler returns one lesson by id.
func (h *APIHandler) GetLessonHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	lesson, err := h.lessonRepo.GetByID(r.Context(), id)
	if err != nil {
		logger.Error("get lesson failed", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to get lesson")
		return
	}
	if lesson == nil {
		writeError(w, http.StatusNotFound, "lesson not found")
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

// CreateLessonHandler registers a lesson whose stems already exist in
// storage.
func (h *APIHandler) CreateLessonHandler(w http.ResponseWriter, r *http.Request) {
	var lesson model.Lesson
	if err := json.NewDecoder(r.Body).Decode(&lesson); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lesson.ID = strings.TrimSpace(lesson.ID)
	if lesson.ID == "" || strings.TrimSpace(lesson.Title) == "" {
		writeError(w, http.StatusBadRequest, "id and title are required")
		return
	}

	exists, err := h.lessonRepo.ExistsByID(r.Context(), lesson.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create lesson")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "lesson already exists")
		return
	}

	if err := h.lessonRepo.Create(r.Context(), &lesson); err != nil {
		logger.Error("create lesson failed", logger.String("id", lesson.ID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to create lesson")
		return
	}

	logger.Info("lesson created", logger.String("id", lesson.ID), logger.String("title", lesson.Title))
	writeJSON(w, http.StatusCreated, lesson)
}

// UpdateLessonMetaHandler patches review metadata (memo, transcript, tags)
// on a lesson.
func (h *APIHandler) UpdateLessonMetaHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Memo       *string       `json:"memo"`
		Transcript *string       `json:"transcript"`
		Tags       model.TagList `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lesson, err := h.lessonRepo.UpdateMeta(r.Context(), id, req.Memo, req.Transcript, req.Tags)
	if err != nil {
		logger.Error("update lesson failed", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to update lesson")
		return
	}
	if lesson == nil {
		writeError(w, http.StatusNotFound, "lesson not found")
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

// GetLessonTranscriptHandler returns the lesson's transcript text. The
// client resolves timestamps out of the text and drives the player's
// jump-to-and-play entry point from them; a lesson without a transcript
// yields an empty string, not an error.
func (h *APIHandler) GetLessonTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	lesson, err := h.lessonRepo.GetByID(r.Context(), id)
	if err != nil {
		logger.Error("get transcript failed", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to get transcript")
		return
	}
	if lesson == nil {
		writeError(w, http.StatusNotFound, "lesson not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transcript": lesson.Transcript})
}

// DeleteLessonHandler removes a lesson with its licks, stems and cached
// peaks.
func (h *APIHandler) DeleteLessonHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	lesson, err := h.lessonRepo.GetByID(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete lesson")
		return
	}
	if lesson == nil {
		writeError(w, http.StatusNotFound, "lesson not found")
		return
	}

	if err := h.lessonRepo.Delete(ctx, id); err != nil {
		logger.Error("delete lesson failed", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to delete lesson")
		return
	}

	// Storage and cache cleanup is best-effort; the row is already gone.
	if err := storage.RemoveLesson(ctx, id); err != nil {
		logger.Warn("lesson storage cleanup failed", logger.String("id", id), logger.ErrorField(err))
	}
	if err := cache.DeletePeaks(ctx, id); err != nil {
		logger.Warn("lesson cache cleanup failed", logger.String("id", id), logger.ErrorField(err))
	}

	logger.Info("lesson deleted", logger.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}
