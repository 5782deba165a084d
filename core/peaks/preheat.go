package peaks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"FretLab/config"
	"FretLab/logger"
	"FretLab/model"
	"FretLab/storage"
)

// settleDelay is how long a dropped file must stay quiet before ingestion.
// Copies into the watch directory arrive as a burst of write events.
const settleDelay = 2 * time.Second

// Preheater watches the local ingest directory for dropped stem files,
// uploads them to object storage and pre-generates their peak envelopes so
// the first session open never pays the decode cost.
//
// The expected layout is <dataDir>/<lessonID>/<track>.mp3 with track one of
// the known stem names.
type Preheater struct {
	dataDir  string
	provider *Provider
}

func NewPreheater(cfg *config.Config, provider *Provider) *Preheater {
	return &Preheater{
		dataDir:  cfg.DataDir,
		provider: provider,
	}
}

// Run watches until ctx is cancelled. An unreadable watch directory is fatal
// to the preheater but not to the caller: it returns the error and the
// server keeps serving.
func (p *Preheater) Run(ctx context.Context) error {
	if err := os.MkdirAll(p.dataDir, 0o755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(p.dataDir); err != nil {
		return err
	}
	// Watch existing lesson subdirectories too.
	entries, err := os.ReadDir(p.dataDir)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				_ = watcher.Add(filepath.Join(p.dataDir, e.Name()))
			}
		}
	}

	logger.Info("peak preheater watching", logger.String("dir", p.dataDir))

	timers := newSettleTimers(settleDelay)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = watcher.Add(ev.Name)
					continue
				}
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			name := ev.Name
			if !strings.EqualFold(filepath.Ext(name), ".mp3") {
				continue
			}
			timers.touch(name, func() { p.ingest(ctx, name) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("preheat watcher error", logger.ErrorField(err))
		}
	}
}

// settleTimers holds one timer per path still settling. Entries remove
// themselves when the timer fires, so the set stays bounded by the number
// of files currently being copied in, not by everything ever ingested.
type settleTimers struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
}

func newSettleTimers(delay time.Duration) *settleTimers {
	return &settleTimers{delay: delay, timers: make(map[string]*time.Timer)}
}

// touch schedules fn for path after the settle delay, restarting the
// countdown when the path is already settling.
func (s *settleTimers) touch(path string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, exists := s.timers[path]; exists {
		t.Reset(s.delay)
		return
	}
	s.timers[path] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.timers, path)
		s.mu.Unlock()
		fn()
	})
}

func (s *settleTimers) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ingest uploads one settled stem file and warms its peaks.
func (p *Preheater) ingest(ctx context.Context, path string) {
	lessonID := filepath.Base(filepath.Dir(path))
	track := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if !model.ValidTrack(track) {
		logger.Warn("ignoring dropped file with unknown track name",
			logger.String("path", path))
		return
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("open dropped stem failed", logger.ErrorField(err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		logger.Warn("stat dropped stem failed", logger.ErrorField(err))
		return
	}

	if err := storage.UploadAudio(ctx, lessonID, track, f, info.Size()); err != nil {
		logger.Error("stem upload failed",
			logger.String("lessonId", lessonID),
			logger.String("track", track),
			logger.ErrorField(err))
		return
	}

	if summary := p.provider.FetchPeaks(ctx, lessonID, track); summary != nil {
		logger.Info("preheated peaks",
			logger.String("lessonId", lessonID),
			logger.String("track", track),
			logger.Int("points", len(summary.Data)))
	}
}
