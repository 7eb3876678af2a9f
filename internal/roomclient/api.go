package roomclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thereayou/score-rooms/internal/handlers/dto"
)

// APIError ответ сервера с ошибкой
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

// API HTTP клиент сервера комнат
type API struct {
	baseURL string
	http    *http.Client
}

func NewAPI(baseURL string, client *http.Client) *API {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

// Snapshot читает полный снимок комнаты. Отсутствующая комната дает ErrRoomGone.
func (a *API) Snapshot(ctx context.Context, code string) (*dto.SnapshotResponse, error) {
	var snap dto.SnapshotResponse
	err := a.do(ctx, http.MethodGet, "/api/rooms/"+url.PathEscape(code), nil, &snap)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrRoomGone, code)
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (a *API) CreateRoom(ctx context.Context, name, creatorName string) (*dto.CreateRoomResponse, error) {
	var out dto.CreateRoomResponse
	if err := a.do(ctx, http.MethodPost, "/api/rooms", dto.CreateRoomRequest{Name: name, CreatorName: creatorName}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) JoinRoom(ctx context.Context, code, memberName string) (*dto.JoinRoomResponse, error) {
	var out dto.JoinRoomResponse
	if err := a.do(ctx, http.MethodPost, "/api/rooms/join", dto.JoinRoomRequest{RoomCode: code, MemberName: memberName}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) CloseRoom(ctx context.Context, code string) (*dto.RoomResponse, error) {
	var out dto.RoomResponse
	if err := a.do(ctx, http.MethodPost, "/api/rooms/"+url.PathEscape(code)+"/close", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Transfer(ctx context.Context, code string, req dto.TransferRequest) (*dto.TransferResponse, error) {
	var out dto.TransferResponse
	if err := a.do(ctx, http.MethodPost, "/api/rooms/"+url.PathEscape(code)+"/transfers", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e dto.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Kind: e.Kind, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
