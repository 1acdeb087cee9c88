package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/humanbelnik/gamenight/internal/apperr"
	"github.com/humanbelnik/gamenight/internal/model"
	"google.golang.org/grpc/codes"
)

const apiPrefix = "/api/v1"

// API is a thin typed wrapper over the HTTP surface. It never retries.
type API struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type APIOption func(*API)

func WithHTTPClient(c *http.Client) APIOption {
	return func(a *API) { a.httpClient = c }
}

func WithToken(token string) APIOption {
	return func(a *API) { a.token = token }
}

func NewAPI(baseURL string, opts ...APIOption) *API {
	a := &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WatchURL is the websocket address of the session's change stream.
func (a *API) WatchURL(sessionID string) (string, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	prefix := strings.TrimRight(u.Path, "/") + "/ws/sessions/"
	u.Path = prefix + sessionID
	u.RawPath = prefix + url.PathEscape(sessionID)
	return u.String(), nil
}

type errorBody struct {
	OK    bool `json:"ok"`
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *API) makeRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+apiPrefix+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return apperr.New(codes.Canceled, "request cancelled").With(err)
		}
		return apperr.New(codes.Unavailable, "backend unreachable").With(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.New(codes.Unavailable, "reading response").With(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Internal(fmt.Errorf("decoding %s %s: %w", method, path, err))
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Kind != "" {
		return apperr.New(apperr.KindFromName(body.Error.Kind), body.Error.Message)
	}
	switch {
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway:
		return apperr.New(codes.Unavailable, http.StatusText(status))
	case status == http.StatusGatewayTimeout:
		return apperr.New(codes.DeadlineExceeded, http.StatusText(status))
	case status == http.StatusTooManyRequests:
		return apperr.New(codes.ResourceExhausted, http.StatusText(status))
	default:
		return apperr.New(codes.Unknown, fmt.Sprintf("unexpected status %d", status))
	}
}

func sessionPath(sessionID string, suffix string) string {
	return "/sessions/" + url.PathEscape(sessionID) + suffix
}

func (a *API) CreateSession(ctx context.Context, req CreateSessionRequest) (CreateSessionResult, error) {
	var out CreateSessionResult
	err := a.makeRequest(ctx, http.MethodPost, "/sessions", req, &out)
	return out, err
}

func (a *API) Preview(ctx context.Context, sessionID string) (Preview, error) {
	var out Preview
	err := a.makeRequest(ctx, http.MethodGet, sessionPath(sessionID, "/preview"), nil, &out)
	return out, err
}

func (a *API) Claim(ctx context.Context, sessionID string, displayName string, participantID string) (ClaimResult, error) {
	in := struct {
		DisplayName   string `json:"displayName"`
		ParticipantID string `json:"participantId,omitempty"`
	}{displayName, participantID}
	var out ClaimResult
	err := a.makeRequest(ctx, http.MethodPost, sessionPath(sessionID, "/claims"), in, &out)
	return out, err
}

func (a *API) SetReady(ctx context.Context, sessionID string) error {
	return a.makeRequest(ctx, http.MethodPost, sessionPath(sessionID, "/ready"), nil, nil)
}

func (a *API) Games(ctx context.Context, sessionID string) ([]model.SharedGame, error) {
	var out struct {
		Games []model.SharedGame `json:"games"`
	}
	err := a.makeRequest(ctx, http.MethodGet, sessionPath(sessionID, "/games"), nil, &out)
	return out.Games, err
}

func (a *API) Members(ctx context.Context, sessionID string) ([]Member, error) {
	var out struct {
		Members []Member `json:"members"`
	}
	err := a.makeRequest(ctx, http.MethodGet, sessionPath(sessionID, "/members"), nil, &out)
	return out.Members, err
}

func (a *API) RemoveGuest(ctx context.Context, sessionID string, guestUID string) error {
	return a.makeRequest(ctx, http.MethodDelete, sessionPath(sessionID, "/members/"+url.PathEscape(guestUID)), nil, nil)
}

func (a *API) SubmitPreferences(ctx context.Context, sessionID string, prefs []model.PreferenceEntry, local *model.LocalUser) (int, error) {
	in := struct {
		Preferences  []model.PreferenceEntry `json:"preferences"`
		ForLocalUser *model.LocalUser        `json:"forLocalUser,omitempty"`
	}{prefs, local}
	var out struct {
		PreferencesCount int `json:"preferencesCount"`
	}
	err := a.makeRequest(ctx, http.MethodPut, sessionPath(sessionID, "/preferences"), in, &out)
	return out.PreferencesCount, err
}

func (a *API) ReadyPreferences(ctx context.Context, sessionID string) ([]ReadyParticipant, error) {
	var out struct {
		Participants []ReadyParticipant `json:"participants"`
	}
	err := a.makeRequest(ctx, http.MethodGet, sessionPath(sessionID, "/preferences/ready"), nil, &out)
	return out.Participants, err
}

func (a *API) SetSelectedGame(ctx context.Context, sessionID string, pick model.GamePick) (StatusChange, error) {
	in := struct {
		SelectedGame model.GamePick `json:"selectedGame"`
	}{pick}
	var out StatusChange
	err := a.makeRequest(ctx, http.MethodPut, sessionPath(sessionID, "/selected-game"), in, &out)
	return out, err
}

func (a *API) Close(ctx context.Context, sessionID string, result *model.GamePick) (StatusChange, error) {
	in := struct {
		Result *model.GamePick `json:"result,omitempty"`
	}{result}
	var out StatusChange
	err := a.makeRequest(ctx, http.MethodPost, sessionPath(sessionID, "/close"), in, &out)
	return out, err
}

func (a *API) DeleteSession(ctx context.Context, sessionID string) error {
	return a.makeRequest(ctx, http.MethodDelete, sessionPath(sessionID, ""), nil, nil)
}
