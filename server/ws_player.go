package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"FretLab/core/player"
	"FretLab/logger"
	"FretLab/model"
	"FretLab/storage"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	presignExpiry  = 2 * time.Hour
)

// playerCommand is one client message on a player session.
type playerCommand struct {
	Cmd   string  `json:"cmd"`
	Time  float64 `json:"time,omitempty"`
	Value float64 `json:"value,omitempty"`
	Track string  `json:"track,omitempty"`
	Muted bool    `json:"muted,omitempty"`
	On    bool    `json:"on,omitempty"`
	Edge  string  `json:"edge,omitempty"`
	Start float64 `json:"start,omitempty"`
	End   float64 `json:"end,omitempty"`
}

// playerClient is one WebSocket connection driving one player facade.
type playerClient struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	facade *player.Facade

	mu     sync.Mutex
	closed bool
}

// PlayerSessionHandler opens a playback session over WebSocket. Query
// parameters:
//
//	mode=lesson|practice  (default lesson)
//	autoplay=1            start playing once ready
//	vocalsMuted=1         open with the vocal stem muted
//	start=<s>&end=<s>     inject an initial region (both required)
func (h *APIHandler) PlayerSessionHandler(w http.ResponseWriter, r *http.Request) {
	lessonID := mux.Vars(r)["id"]

	lesson, err := h.lessonRepo.GetByID(r.Context(), lessonID)
	if err != nil || lesson == nil {
		writeError(w, http.StatusNotFound, "lesson not found")
		return
	}

	opts, err := h.sessionOptions(r, lessonID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	sessionID := uuid.NewString()
	facade := player.New(opts, h.provider, player.NewFFprobeOpener(h.cfg.FFprobePath), player.SystemClock())
	client := &playerClient{
		id:     sessionID,
		conn:   conn,
		send:   make(chan []byte, 64),
		facade: facade,
	}

	facade.OnEvent(client.queueEvent)
	facade.OnSelectionChange(func(region *player.Region) {
		if region == nil {
			logger.Debug("selection cleared", logger.String("lessonId", lessonID))
		} else {
			logger.Debug("selection committed",
				logger.String("lessonId", lessonID),
				logger.Float64("start", region.Start),
				logger.Float64("end", region.End))
		}
	})

	logger.Info("player session opened",
		logger.String("sessionId", sessionID),
		logger.String("lessonId", lessonID),
		logger.String("mode", string(opts.Mode)))

	go client.writePump()
	facade.Start()
	client.readPump(lessonID)
}

// sessionOptions assembles facade options from the request, resolving
// presigned stem URLs out of object storage.
func (h *APIHandler) sessionOptions(r *http.Request, lessonID string) (player.Options, error) {
	q := r.URL.Query()

	mode := player.ModeLesson
	if q.Get("mode") == string(player.ModePractice) {
		mode = player.ModePractice
	}

	opts := player.Options{
		Mode:               mode,
		LessonID:           lessonID,
		AutoPlay:           q.Get("autoplay") == "1",
		InitialVocalsMuted: q.Get("vocalsMuted") == "1",
		TickInterval:       h.cfg.PlayerTickInterval,
		LoopDebounce:       h.cfg.PlayerLoopDebounce,
	}

	var err error
	opts.GuitarURL, err = presignAudio(r, lessonID, model.TrackGuitar)
	if err != nil {
		return opts, err
	}
	if mode == player.ModeLesson {
		opts.VocalsURL, err = presignAudio(r, lessonID, model.TrackVocals)
		if err != nil {
			return opts, err
		}
	}

	if startStr, endStr := q.Get("start"), q.Get("end"); startStr != "" && endStr != "" {
		start, err1 := strconv.ParseFloat(startStr, 64)
		end, err2 := strconv.ParseFloat(endStr, 64)
		if err1 == nil && err2 == nil && end > start && start >= 0 {
			opts.InitialRegion = &player.Region{Start: start, End: end}
		}
	}

	return opts, nil
}

func presignAudio(r *http.Request, lessonID, track string) (string, error) {
	u, err := storage.GetMinioClient().PresignedGetObject(r.Context(), storage.Bucket(),
		storage.AudioObjectName(lessonID, track), presignExpiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// queueEvent serializes a facade event onto the send channel. A slow client
// drops events rather than blocking the player core.
func (c *playerClient) queueEvent(ev player.SessionEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	c.enqueue(raw, string(ev.Type))
}

// enqueue guards the send channel so a late facade event cannot hit it
// after teardown closed it.
func (c *playerClient) enqueue(raw []byte, kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- raw:
	default:
		logger.Warn("player session send buffer full, dropping event",
			logger.String("type", kind))
	}
}

// readPump consumes commands until the connection dies, then tears the
// session down.
func (c *playerClient) readPump(lessonID string) {
	defer func() {
		c.facade.Close()
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		c.conn.Close()
		logger.Info("player session closed",
			logger.String("sessionId", c.id),
			logger.String("lessonId", lessonID))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("player session read error", logger.ErrorField(err))
			}
			return
		}

		var cmd playerCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			logger.Warn("malformed player command", logger.ErrorField(err))
			continue
		}
		c.dispatch(cmd)
	}
}

// dispatch applies one command to the facade. Unknown commands are logged
// and ignored so protocol additions stay backward compatible.
func (c *playerClient) dispatch(cmd playerCommand) {
	switch cmd.Cmd {
	case "play":
		c.facade.Play()
	case "pause":
		c.facade.Pause()
	case "seek":
		c.facade.Scrub(cmd.Time)
	case "seek_fraction":
		c.facade.ScrubFraction(cmd.Value)
	case "seek_to":
		c.facade.SeekTo(cmd.Time)
	case "rate":
		c.facade.SetRate(cmd.Value)
	case "zoom":
		c.facade.SetZoom(cmd.Value)
	case "mute":
		c.facade.SetTrackMuted(cmd.Track, cmd.Muted)
	case "loop":
		c.facade.SetLoopEnabled(cmd.On)
	case "drag_start":
		c.facade.DragStart(cmd.Time)
	case "drag_update":
		c.facade.DragUpdate(cmd.Time)
	case "drag_release":
		c.facade.DragRelease()
	case "resize":
		edge := player.EdgeStart
		if cmd.Edge == "end" {
			edge = player.EdgeEnd
		}
		c.facade.ResizeRegion(edge, cmd.Time)
	case "click":
		c.facade.ClickAt(cmd.Time)
	case "region_set":
		c.facade.SetRegion(cmd.Start, cmd.End)
	case "region_clear":
		c.facade.ClearRegion()
	case "snapshot":
		if raw, err := json.Marshal(map[string]interface{}{
			"type":  "snapshot",
			"state": c.facade.Snapshot(),
		}); err == nil {
			c.enqueue(raw, "snapshot")
		}
	default:
		logger.Warn("unknown player command", logger.String("cmd", cmd.Cmd))
	}
}

// writePump flushes queued events and keeps the connection alive with pings.
func (c *playerClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
