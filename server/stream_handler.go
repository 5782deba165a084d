package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"FretLab/logger"
	"FretLab/model"
	"FretLab/storage"
)

// StreamAudioHandler serves one stem straight out of object storage with
// Range support, so seeking in the client does not refetch the whole file.
// minio.Object is a ReadSeeker, which lets http.ServeContent do the range
// arithmetic.
func (h *APIHandler) StreamAudioHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	lessonID := vars["id"]
	track := vars["track"]

	if !model.ValidTrack(track) {
		writeError(w, http.StatusBadRequest, "unknown track")
		return
	}

	info, err := storage.StatAudio(r.Context(), lessonID, track)
	if err != nil {
		writeError(w, http.StatusNotFound, "audio not found")
		return
	}

	obj, err := storage.GetAudio(r.Context(), lessonID, track)
	if err != nil {
		logger.Error("audio fetch failed",
			logger.String("lessonId", lessonID),
			logger.String("track", track),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch audio")
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	http.ServeContent(w, r, track+".mp3", info.LastModified, obj)
}
