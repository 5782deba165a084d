package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FretLab/config"
	"FretLab/model"
	"FretLab/repository"
)

// memLessonRepo is an in-memory LessonRepository for handler tests.
type memLessonRepo struct {
	lessons map[string]*model.Lesson
}

func newMemLessonRepo() *memLessonRepo {
	return &memLessonRepo{lessons: make(map[string]*model.Lesson)}
}

func (r *memLessonRepo) Create(_ context.Context, lesson *model.Lesson) error {
	r.lessons[lesson.ID] = lesson
	return nil
}

func (r *memLessonRepo) GetByID(_ context.Context, id string) (*model.Lesson, error) {
	return r.lessons[id], nil
}

func (r *memLessonRepo) List(_ context.Context) ([]*model.Lesson, error) {
	out := make([]*model.Lesson, 0, len(r.lessons))
	for _, l := range r.lessons {
		out = append(out, l)
	}
	return out, nil
}

func (r *memLessonRepo) Update(_ context.Context, lesson *model.Lesson) error {
	r.lessons[lesson.ID] = lesson
	return nil
}

func (r *memLessonRepo) UpdateMeta(_ context.Context, id string, memo, transcript *string, tags model.TagList) (*model.Lesson, error) {
	lesson, ok := r.lessons[id]
	if !ok {
		return nil, nil
	}
	if memo != nil {
		lesson.Memo = *memo
	}
	if transcript != nil {
		lesson.Transcript = *transcript
	}
	if tags != nil {
		lesson.Tags = tags
	}
	return lesson, nil
}

func (r *memLessonRepo) Delete(_ context.Context, id string) error {
	delete(r.lessons, id)
	return nil
}

func (r *memLessonRepo) ExistsByID(_ context.Context, id string) (bool, error) {
	_, ok := r.lessons[id]
	return ok, nil
}

// memLickRepo is an in-memory LickRepository.
type memLickRepo struct {
	licks map[string]*model.Lick
}

func newMemLickRepo() *memLickRepo {
	return &memLickRepo{licks: make(map[string]*model.Lick)}
}

func (r *memLickRepo) Create(_ context.Context, lick *model.Lick) error {
	r.licks[lick.ID] = lick
	return nil
}

func (r *memLickRepo) GetByID(_ context.Context, id string) (*model.Lick, error) {
	return r.licks[id], nil
}

func (r *memLickRepo) List(_ context.Context) ([]*model.Lick, error) {
	out := make([]*model.Lick, 0, len(r.licks))
	for _, l := range r.licks {
		out = append(out, l)
	}
	return out, nil
}

func (r *memLickRepo) ListByLesson(_ context.Context, lessonID string) ([]*model.Lick, error) {
	var out []*model.Lick
	for _, l := range r.licks {
		if l.LessonID == lessonID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memLickRepo) Update(_ context.Context, lick *model.Lick) error {
	r.licks[lick.ID] = lick
	return nil
}

func (r *memLickRepo) Delete(_ context.Context, id string) error {
	delete(r.licks, id)
	return nil
}

// memPracticeLogRepo is an in-memory PracticeLogRepository.
type memPracticeLogRepo struct {
	entries map[uint]*model.PracticeLog
	nextID  uint
}

func newMemPracticeLogRepo() *memPracticeLogRepo {
	return &memPracticeLogRepo{entries: make(map[uint]*model.PracticeLog)}
}

func (r *memPracticeLogRepo) Create(_ context.Context, entry *model.PracticeLog) error {
	r.nextID++
	entry.ID = r.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.entries[entry.ID] = entry
	return nil
}

func (r *memPracticeLogRepo) GetByID(_ context.Context, id uint) (*model.PracticeLog, error) {
	return r.entries[id], nil
}

func (r *memPracticeLogRepo) List(_ context.Context, startDate, endDate string) ([]*model.PracticeLog, error) {
	out := []*model.PracticeLog{}
	for _, e := range r.entries {
		if startDate != "" && e.Date < startDate {
			continue
		}
		if endDate != "" && e.Date > endDate {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (r *memPracticeLogRepo) Update(_ context.Context, entry *model.PracticeLog) error {
	r.entries[entry.ID] = entry
	return nil
}

func (r *memPracticeLogRepo) Delete(_ context.Context, id uint) (bool, error) {
	if _, ok := r.entries[id]; !ok {
		return false, nil
	}
	delete(r.entries, id)
	return true, nil
}

func (r *memPracticeLogRepo) Stats(_ context.Context, now time.Time) (*model.PracticeStats, error) {
	byDate := make(map[string]*model.HeatmapCell)
	for _, e := range r.entries {
		cell, ok := byDate[e.Date]
		if !ok {
			cell = &model.HeatmapCell{Date: e.Date}
			byDate[e.Date] = cell
		}
		cell.Count++
		cell.Duration += e.DurationMinutes
	}

	stats := &model.PracticeStats{Heatmap: []model.HeatmapCell{}}
	for _, cell := range byDate {
		stats.Heatmap = append(stats.Heatmap, *cell)
	}
	sort.Slice(stats.Heatmap, func(i, j int) bool { return stats.Heatmap[i].Date < stats.Heatmap[j].Date })

	weekStart := repository.WeekStart(now)
	for _, cell := range stats.Heatmap {
		stats.TotalMinutes += cell.Duration
		if cell.Date >= weekStart {
			stats.WeekMinutes += cell.Duration
		}
	}
	return stats, nil
}

type testEnv struct {
	handler *APIHandler
	lessons *memLessonRepo
	licks   *memLickRepo
	logs    *memPracticeLogRepo
	router  *mux.Router
}

func newTestEnv() *testEnv {
	lessons := newMemLessonRepo()
	licks := newMemLickRepo()
	logs := newMemPracticeLogRepo()
	h := NewAPIHandler(lessons, licks, logs, nil, &config.Config{})

	router := mux.NewRouter()
	router.HandleFunc("/api/lessons", h.ListLessonsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/lessons", h.CreateLessonHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/lessons/{id}", h.GetLessonHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/lessons/{id}", h.UpdateLessonMetaHandler).Methods(http.MethodPatch)
	router.HandleFunc("/api/lessons/{id}/transcript", h.GetLessonTranscriptHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/licks", h.ListLicksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/licks", h.CreateLickHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/licks/{id}", h.GetLickHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/licks/{id}", h.UpdateLickHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/licks/{id}", h.DeleteLickHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/journal", h.ListPracticeLogsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/journal", h.CreatePracticeLogHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/journal/stats", h.PracticeStatsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/journal/{id}", h.GetPracticeLogHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/journal/{id}", h.UpdatePracticeLogHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/journal/{id}", h.DeletePracticeLogHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/tags", h.ListTagsHandler).Methods(http.MethodGet)

	return &testEnv{handler: h, lessons: lessons, licks: licks, logs: logs, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestCreateAndGetLesson(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodPost, "/api/lessons", model.Lesson{
		ID:       "2026-03-01-blues",
		Title:    "Slow blues in A",
		Tags:     model.TagList{"blues", "bends"},
		Duration: 1800,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/lessons/2026-03-01-blues", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var lesson model.Lesson
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lesson))
	assert.Equal(t, "Slow blues in A", lesson.Title)
	assert.Equal(t, model.TagList{"blues", "bends"}, lesson.Tags)
}

func TestCreateLessonValidation(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodPost, "/api/lessons", model.Lesson{Title: "no id"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/lessons", model.Lesson{ID: "x", Title: "ok"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/lessons", model.Lesson{ID: "x", Title: "duplicate"})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestGetLessonNotFound(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, http.MethodGet, "/api/lessons/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateLessonMeta(t *testing.T) {
	env := newTestEnv()
	env.lessons.lessons["l1"] = &model.Lesson{ID: "l1", Title: "Lesson"}

	rr := env.do(t, http.MethodPatch, "/api/lessons/l1", map[string]interface{}{
		"memo": "work on vibrato",
		"tags": []string{"vibrato"},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var lesson model.Lesson
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lesson))
	assert.Equal(t, "work on vibrato", lesson.Memo)
	assert.Equal(t, model.TagList{"vibrato"}, lesson.Tags)
}

func TestLickLifecycle(t *testing.T) {
	env := newTestEnv()
	env.lessons.lessons["l1"] = &model.Lesson{ID: "l1", Title: "Lesson"}

	rr := env.do(t, http.MethodPost, "/api/licks", model.Lick{
		LessonID: "l1",
		Title:    "Turnaround lick",
		Start:    754.2,
		End:      761.8,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var created model.Lick
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rr = env.do(t, http.MethodGet, "/api/licks?lesson=l1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listed []model.Lick
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	created.Title = "Turnaround lick (slow)"
	created.End = 765
	rr = env.do(t, http.MethodPut, "/api/licks/"+created.ID, created)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/licks/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/licks/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLessonTranscript(t *testing.T) {
	env := newTestEnv()
	env.lessons.lessons["l1"] = &model.Lesson{ID: "l1", Title: "Lesson"}

	// Missing transcript is an empty string, not an error.
	rr := env.do(t, http.MethodGet, "/api/lessons/l1/transcript", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "", body["transcript"])

	rr = env.do(t, http.MethodPatch, "/api/lessons/l1", map[string]interface{}{
		"transcript": "[00:12] today we work on the shuffle feel",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/lessons/l1/transcript", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "[00:12] today we work on the shuffle feel", body["transcript"])

	rr = env.do(t, http.MethodGet, "/api/lessons/ghost/transcript", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPracticeLogLifecycle(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodPost, "/api/journal", model.PracticeLog{
		Date:            "2026-03-02",
		DurationMinutes: 45,
		Notes:           "shuffle comping, slow loop over bars 9-12",
		Tags:            model.TagList{"shuffle"},
		Sentiment:       "good",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var created model.PracticeLog
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	rr = env.do(t, http.MethodGet, fmt.Sprintf("/api/journal/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	created.Notes = "shuffle comping, tempo up to 80"
	created.DurationMinutes = 60
	rr = env.do(t, http.MethodPut, fmt.Sprintf("/api/journal/%d", created.ID), created)
	require.Equal(t, http.StatusOK, rr.Code)

	var updated model.PracticeLog
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, 60, updated.DurationMinutes)

	rr = env.do(t, http.MethodDelete, fmt.Sprintf("/api/journal/%d", created.ID), nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodGet, fmt.Sprintf("/api/journal/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPracticeLogValidation(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodPost, "/api/journal", model.PracticeLog{Date: "yesterday"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/journal", model.PracticeLog{
		Date: "2026-03-02", DurationMinutes: -5,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/journal/notanumber", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPracticeLogDateFilter(t *testing.T) {
	env := newTestEnv()
	for _, date := range []string{"2026-02-27", "2026-03-01", "2026-03-05"} {
		rr := env.do(t, http.MethodPost, "/api/journal", model.PracticeLog{Date: date, DurationMinutes: 30})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := env.do(t, http.MethodGet, "/api/journal?start=2026-03-01&end=2026-03-04", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var entries []model.PracticeLog
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "2026-03-01", entries[0].Date)

	rr = env.do(t, http.MethodGet, "/api/journal?start=2026-03-01", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)
}

func TestPracticeStats(t *testing.T) {
	env := newTestEnv()
	today := time.Now().Format("2006-01-02")
	lastMonth := time.Now().AddDate(0, -1, 0).Format("2006-01-02")

	for _, entry := range []model.PracticeLog{
		{Date: lastMonth, DurationMinutes: 20},
		{Date: lastMonth, DurationMinutes: 10},
		{Date: today, DurationMinutes: 40},
	} {
		rr := env.do(t, http.MethodPost, "/api/journal", entry)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := env.do(t, http.MethodGet, "/api/journal/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var stats model.PracticeStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 70, stats.TotalMinutes)
	assert.Equal(t, 40, stats.WeekMinutes, "only the current week counts")
	require.Len(t, stats.Heatmap, 2)
	assert.Equal(t, lastMonth, stats.Heatmap[0].Date)
	assert.Equal(t, 2, stats.Heatmap[0].Count)
	assert.Equal(t, 30, stats.Heatmap[0].Duration)
}

func TestListTags(t *testing.T) {
	env := newTestEnv()
	env.lessons.lessons["l1"] = &model.Lesson{ID: "l1", Title: "Lesson", Tags: model.TagList{"blues", "shuffle"}}
	env.licks.licks["k1"] = &model.Lick{ID: "k1", LessonID: "l1", Title: "Lick", Tags: model.TagList{"turnaround"}}
	rr := env.do(t, http.MethodPost, "/api/journal", model.PracticeLog{
		Date: "2026-03-02", Tags: model.TagList{"shuffle", "timing"},
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/tags", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var tags []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tags))
	assert.Equal(t, []string{"blues", "shuffle", "timing", "turnaround"}, tags)
}

func TestCreateLickValidation(t *testing.T) {
	env := newTestEnv()
	env.lessons.lessons["l1"] = &model.Lesson{ID: "l1", Title: "Lesson"}

	// End before start.
	rr := env.do(t, http.MethodPost, "/api/licks", model.Lick{
		LessonID: "l1", Title: "bad", Start: 10, End: 5,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Unknown lesson.
	rr = env.do(t, http.MethodPost, "/api/licks", model.Lick{
		LessonID: "ghost", Title: "orphan", Start: 1, End: 2,
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
