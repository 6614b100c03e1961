package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/realtime"
	"go.uber.org/zap"
)

const reconnectDelay = time.Second

// Watcher слушает поток событий сессии. Событие только подсказка:
// сессия каждый раз перечитывается, повторные статусы отбрасываются.
type Watcher struct {
	client *Client
	dedupe *realtime.Deduper
	logger *zap.Logger
}

func NewWatcher(c *Client, logger *zap.Logger) *Watcher {
	return &Watcher{client: c, dedupe: realtime.NewDeduper(), logger: logger}
}

// Watch вызывает onChange для каждого нового статуса до отмены ctx или терминального статуса.
// Обрыв потока приводит к переподключению с Last-Event-ID.
func (w *Watcher) Watch(ctx context.Context, sessionID string, onChange func(model.Session)) error {
	// Начальное состояние, чтобы не пропустить изменения до подписки
	done, err := w.refresh(ctx, sessionID, onChange)
	if err != nil || done {
		return err
	}

	var lastID string
	for {
		done, err := w.stream(ctx, sessionID, &lastID, onChange)
		if err != nil || done {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		w.logger.Debug("Event stream closed, reconnecting", zap.String("session_id", sessionID))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

// stream читает один HTTP поток. Ошибки соединения не фатальны.
func (w *Watcher) stream(ctx context.Context, sessionID string, lastID *string, onChange func(model.Session)) (bool, error) {
	req, err := w.client.newRequest(ctx, http.MethodGet, sessionPath(sessionID, "/events"), nil, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if *lastID != "" {
		req.Header.Set("Last-Event-ID", *lastID)
	}

	// Поток бесконечный, общий тайм-аут клиента здесь не подходит
	hc := *w.client.http
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		w.logger.Warn("Failed to open event stream", zap.String("session_id", sessionID), zap.Error(err))
		return false, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("open event stream: %w", w.client.decodeError(resp))
	}

	var frame sseFrame
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			frame.add(line)
			continue
		}
		if frame.data == "" {
			frame = sseFrame{}
			continue
		}

		if frame.id != "" {
			*lastID = frame.id
		}
		var ev realtime.Event
		if err := json.Unmarshal([]byte(frame.data), &ev); err != nil {
			w.logger.Warn("Dropping malformed event", zap.String("session_id", sessionID), zap.Error(err))
			frame = sseFrame{}
			continue
		}
		frame = sseFrame{}
		if ev.SessionID != sessionID {
			continue
		}

		done, err := w.refresh(ctx, sessionID, onChange)
		if err != nil || done {
			return done, err
		}
	}
	return false, nil
}

// refresh перечитывает сессию и сообщает о новом статусе. true когда статус терминальный.
func (w *Watcher) refresh(ctx context.Context, sessionID string, onChange func(model.Session)) (bool, error) {
	sess, err := w.client.GetSession(ctx, sessionID)
	if err != nil {
		if ctx.Err() != nil {
			return true, nil
		}
		return false, err
	}
	if !w.dedupe.Seen(sess.ID, sess.Status) {
		onChange(*sess)
	}
	return sess.Status.IsTerminal(), nil
}

type sseFrame struct {
	id    string
	event string
	data  string
}

func (f *sseFrame) add(line string) {
	if strings.HasPrefix(line, ":") {
		return
	}
	key, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")
	switch key {
	case "id":
		if _, err := strconv.ParseUint(value, 10, 64); err == nil {
			f.id = value
		}
	case "event":
		f.event = value
	case "data":
		if f.data != "" {
			f.data += "\n"
		}
		f.data += value
	}
}
