package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"FretLab/config"
	"FretLab/core/peaks"
	"FretLab/db"
	"FretLab/logger"
	"FretLab/model"
	"FretLab/repository"
	"FretLab/storage"
)

// Start wires dependencies, registers routes and runs the HTTP server until
// an interrupt.
func Start(cfg *config.Config) {
	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("minio init failed", logger.ErrorField(err))
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("database connection failed", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(&model.Lesson{}, &model.Lick{}, &model.PracticeLog{}); err != nil {
		logger.Fatal("schema migration failed", logger.ErrorField(err))
	}

	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("redis connection failed", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	lessonRepo := repository.NewGormLessonRepository(db.GormDB)
	lickRepo := repository.NewGormLickRepository(db.GormDB)
	logRepo := repository.NewGormPracticeLogRepository(db.GormDB)
	provider := peaks.NewProvider(peaks.NewGenerator(cfg))
	apiHandler := NewAPIHandler(lessonRepo, lickRepo, logRepo, provider, cfg)

	// Ingest watcher runs for the server's lifetime.
	preheatCtx, stopPreheat := context.WithCancel(context.Background())
	defer stopPreheat()
	go func() {
		if err := peaks.NewPreheater(cfg, provider).Run(preheatCtx); err != nil {
			logger.Warn("peak preheater stopped", logger.ErrorField(err))
		}
	}()

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// Lesson catalog
	router.HandleFunc("/api/lessons", apiHandler.ListLessonsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/lessons", apiHandler.CreateLessonHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/lessons/{id}", apiHandler.GetLessonHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/lessons/{id}", apiHandler.UpdateLessonMetaHandler).Methods(http.MethodPatch)
	router.HandleFunc("/api/lessons/{id}", apiHandler.DeleteLessonHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/lessons/{id}/transcript", apiHandler.GetLessonTranscriptHandler).Methods(http.MethodGet)

	// Licks
	router.HandleFunc("/api/licks", apiHandler.ListLicksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/licks", apiHandler.CreateLickHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/licks/{id}", apiHandler.GetLickHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/licks/{id}", apiHandler.UpdateLickHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/licks/{id}", apiHandler.DeleteLickHandler).Methods(http.MethodDelete)

	// Practice journal. The stats route registers before the id route so
	// "stats" never parses as an entry id.
	router.HandleFunc("/api/journal", apiHandler.ListPracticeLogsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/journal", apiHandler.CreatePracticeLogHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/journal/stats", apiHandler.PracticeStatsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/journal/{id}", apiHandler.GetPracticeLogHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/journal/{id}", apiHandler.UpdatePracticeLogHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/journal/{id}", apiHandler.DeletePracticeLogHandler).Methods(http.MethodDelete)

	// Tag autocompletion
	router.HandleFunc("/api/tags", apiHandler.ListTagsHandler).Methods(http.MethodGet)

	// Stem audio and waveform peaks
	router.HandleFunc("/api/lessons/{id}/audio/{track}", apiHandler.StreamAudioHandler).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/api/lessons/{id}/peaks/{track}", apiHandler.GetPeaksHandler).Methods(http.MethodGet)

	// Playback sessions
	router.HandleFunc("/ws/lessons/{id}/player", apiHandler.PlayerSessionHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming and websocket routes manage their own deadlines
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", logger.ErrorField(err))
	}
	logger.Info("server stopped")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
