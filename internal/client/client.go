// Package client HTTP клиент сервиса консультаций для трейдера и эксперта
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/controller/api"
	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/schedule"
	"github.com/Freeeeeet/consult_sessions/internal/service"
)

// Client выполняет запросы от имени одной личности
type Client struct {
	baseURL string
	http    *http.Client
	who     model.Identity
}

type Option func(*Client)

// WithHTTPClient заменяет http.Client по умолчанию
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, who model.Identity, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		who:     who,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Identity() model.Identity {
	return c.who
}

func (c *Client) ListSlots(ctx context.Context, expertID int64, date model.Date) ([]model.Slot, error) {
	q := url.Values{}
	if !date.IsZero() {
		q.Set("date", date.String())
	}
	var slots []model.Slot
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/experts/%d/slots", expertID), q, nil, &slots); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

func (c *Client) CreateSlot(ctx context.Context, date model.Date, start, end model.Clock) (*model.Slot, error) {
	body := map[string]any{"date": date, "start_time": start, "end_time": end}
	var slot model.Slot
	if err := c.do(ctx, http.MethodPost, "/v1/slots", nil, body, &slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return &slot, nil
}

func (c *Client) UpdateSlot(ctx context.Context, id string, times model.SlotTimes) (*model.Slot, error) {
	var slot model.Slot
	if err := c.do(ctx, http.MethodPatch, "/v1/slots/"+url.PathEscape(id), nil, times, &slot); err != nil {
		return nil, fmt.Errorf("update slot: %w", err)
	}
	return &slot, nil
}

func (c *Client) DeleteSlot(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/slots/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

// ApplyWorkingSet сохраняет набор даты одной транзакцией на сервере
func (c *Client) ApplyWorkingSet(ctx context.Context, date model.Date, previous, working []model.Slot) ([]model.Slot, error) {
	path := fmt.Sprintf("/v1/experts/%d/days/%s/slots", c.who.UserID, date)
	var slots []model.Slot
	err := c.do(ctx, http.MethodPut, path, nil, api.WorkingSetRequest{Previous: previous, Working: working}, &slots)
	if err != nil {
		return nil, fmt.Errorf("apply working set: %w", err)
	}
	return slots, nil
}

func (c *Client) Calendar(ctx context.Context, expertID int64, year int, month time.Month, half schedule.Half) (*schedule.View, error) {
	// Нулевые значения оставляют выбор серверу
	q := url.Values{}
	if year != 0 {
		q.Set("year", strconv.Itoa(year))
	}
	if month != 0 {
		q.Set("month", strconv.Itoa(int(month)))
	}
	if half != 0 {
		q.Set("half", strconv.Itoa(int(half)))
	}
	var view schedule.View
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/experts/%d/calendar", expertID), q, nil, &view); err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	return &view, nil
}

func (c *Client) Book(ctx context.Context, slotID string) (*model.Session, error) {
	return c.sessionCall(ctx, http.MethodPost, "/v1/slots/"+url.PathEscape(slotID)+"/book", nil, "book slot")
}

func (c *Client) GetSession(ctx context.Context, id string) (*model.Session, error) {
	return c.sessionCall(ctx, http.MethodGet, sessionPath(id, ""), nil, "get session")
}

func (c *Client) SetStatus(ctx context.Context, id string, status model.SessionStatus) (*model.Session, error) {
	return c.sessionCall(ctx, http.MethodPut, sessionPath(id, "/status"), map[string]any{"status": status}, "set session status")
}

func (c *Client) EndCall(ctx context.Context, id string) (*model.Session, error) {
	return c.sessionCall(ctx, http.MethodPost, sessionPath(id, "/end"), nil, "end call")
}

func (c *Client) Cancel(ctx context.Context, id string) (*model.Session, error) {
	return c.sessionCall(ctx, http.MethodPost, sessionPath(id, "/cancel"), nil, "cancel session")
}

// IssueLinkCode получает одноразовый код для привязки Telegram
func (c *Client) IssueLinkCode(ctx context.Context) (*model.LinkCode, error) {
	var code model.LinkCode
	if err := c.do(ctx, http.MethodPost, "/v1/me/telegram-code", nil, nil, &code); err != nil {
		return nil, fmt.Errorf("issue link code: %w", err)
	}
	return &code, nil
}

// Join запрашивает вход у сервера. При отказе возвращает решение и WindowClosedError.
func (c *Client) Join(ctx context.Context, id string) (*service.JoinResult, error) {
	var res service.JoinResult
	err := c.do(ctx, http.MethodPost, sessionPath(id, "/join"), nil, nil, &res)

	var denied *deniedJoin
	if errors.As(err, &denied) {
		return &denied.result, denied.cause
	}
	if err != nil {
		return nil, fmt.Errorf("join session: %w", err)
	}
	return &res, nil
}

func (c *Client) sessionCall(ctx context.Context, method, path string, body any, op string) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, method, path, nil, body, &sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sess, nil
}

func sessionPath(id, suffix string) string {
	return "/v1/sessions/" + url.PathEscape(id) + suffix
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(api.HeaderUserID, strconv.FormatInt(c.who.UserID, 10))
	req.Header.Set(api.HeaderUserRole, string(c.who.Role))
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
