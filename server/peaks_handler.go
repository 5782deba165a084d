package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"FretLab/model"
)

// GetPeaksHandler returns the peak envelope for one lesson stem. A stem
// whose peaks cannot be resolved answers 204: the client falls back to
// decoding the audio itself.
func (h *APIHandler) GetPeaksHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	lessonID := vars["id"]
	track := vars["track"]

	if !model.ValidTrack(track) {
		writeError(w, http.StatusBadRequest, "unknown track")
		return
	}

	summary := h.provider.FetchPeaks(r.Context(), lessonID, track)
	if summary == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	writeJSON(w, http.StatusOK, summary)
}
