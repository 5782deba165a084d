package server

import (
	"net/http"
	"sort"

	"FretLab/logger"
)

// ListTagsHandler returns the sorted union of every tag used across
// lessons, licks and journal entries, for tag-picker autocompletion.
func (h *APIHandler) ListTagsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	set := make(map[string]struct{})

	lessons, err := h.lessonRepo.List(ctx)
	if err != nil {
		logger.Error("list tags failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to list tags")
		return
	}
	for _, lesson := range lessons {
		for _, tag := range lesson.Tags {
			set[tag] = struct{}{}
		}
	}

	licks, err := h.lickRepo.List(ctx)
	if err != nil {
		logger.Error("list tags failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to list tags")
		return
	}
	for _, lick := range licks {
		for _, tag := range lick.Tags {
			set[tag] = struct{}{}
		}
	}

	entries, err := h.logRepo.List(ctx, "", "")
	if err != nil {
		logger.Error("list tags failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to list tags")
		return
	}
	for _, entry := range entries {
		for _, tag := range entry.Tags {
			set[tag] = struct{}{}
		}
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	writeJSON(w, http.StatusOK, tags)
}
