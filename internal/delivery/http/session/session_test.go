package http_session

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/humanbelnik/gamenight/internal/config"
	http_init "github.com/humanbelnik/gamenight/internal/delivery/http/init"
	http_auth_middleware "github.com/humanbelnik/gamenight/internal/delivery/http/middleware/auth"
	http_preference "github.com/humanbelnik/gamenight/internal/delivery/http/preference"
	ws_session "github.com/humanbelnik/gamenight/internal/delivery/ws/session"
	infra_memory_session "github.com/humanbelnik/gamenight/internal/infra/memory/session"
	service_auth_token "github.com/humanbelnik/gamenight/internal/service/auth/token"
	usecase_host "github.com/humanbelnik/gamenight/internal/usecase/host"
	usecase_preference "github.com/humanbelnik/gamenight/internal/usecase/preference"
	usecase_session "github.com/humanbelnik/gamenight/internal/usecase/session"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
)

const (
	hostUID  = "host-uid"
	guestUID = "guest-uid"
)

type resources struct {
	handler http.Handler
	tokens  *service_auth_token.Service
}

func initResources(t provider.T) *resources {
	gin.SetMode(gin.TestMode)

	store := infra_memory_session.New()
	sessionUC := usecase_session.New(store, usecase_host.New(store, true), ws_session.NewHub(nil))
	preferenceUC := usecase_preference.New(store, nil)
	tokens := service_auth_token.New("test-secret", "gamenight")
	auth := http_auth_middleware.New(tokens)

	pool := http_init.NewControllerPool(config.HTTPServer{
		Host:        "127.0.0.1",
		Port:        "0",
		CORSOrigins: []string{"*"},
	})
	pool.Add(New(sessionUC, auth))
	pool.Add(http_preference.New(preferenceUC, auth))
	pool.Register()

	return &resources{handler: pool.Handler(), tokens: tokens}
}

func (r *resources) token(t provider.T, uid string) string {
	token, err := r.tokens.Issue(uid, time.Hour)
	t.Require().NoError(err)
	return token
}

type response struct {
	code int
	body map[string]any
}

func (r *resources) do(t provider.T, method, path, uid string, body any) response {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		t.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("Authorization", "Bearer "+r.token(t, uid))
	}
	rec := httptest.NewRecorder()
	r.handler.ServeHTTP(rec, req)

	out := response{code: rec.Code}
	if rec.Body.Len() > 0 {
		t.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out.body))
	}
	return out
}

func createBody() map[string]any {
	return map[string]any{
		"title":           "Friday night",
		"scheduledFor":    time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"capacity":        4,
		"hostDisplayName": "Alice",
		"shareMode":       "detailed",
		"gameIds":         []string{"azul", "catan"},
		"games": []map[string]any{
			{"id": "azul", "name": "Azul"},
			{"id": "catan", "name": "Catan"},
		},
		"namedParticipants": []map[string]any{
			{"displayName": "Bob", "preferences": []map[string]any{{"gameId": "azul", "isTopPick": true}}},
		},
	}
}

func (r *resources) createSession(t provider.T) string {
	res := r.do(t, http.MethodPost, "/api/v1/sessions", hostUID, createBody())
	t.Require().Equal(http.StatusCreated, res.code)
	id, _ := res.body["sessionId"].(string)
	t.Require().NotEmpty(id)
	return id
}

func errorKind(res response) string {
	detail, _ := res.body["error"].(map[string]any)
	kind, _ := detail["kind"].(string)
	return kind
}

type HTTPSessionSuite struct {
	suite.Suite
}

func TestHTTPSessionSuite(t *testing.T) {
	suite.RunSuite(t, new(HTTPSessionSuite))
}

func (s *HTTPSessionSuite) TestFullFlow(t provider.T) {
	t.Parallel()
	r := initResources(t)

	create := r.do(t, http.MethodPost, "/api/v1/sessions", hostUID, createBody())
	t.Require().Equal(http.StatusCreated, create.code)
	t.Assert().Equal(true, create.body["ok"])
	t.Assert().EqualValues(2, create.body["gamesUploaded"])
	id := create.body["sessionId"].(string)
	base := "/api/v1/sessions/" + id

	preview := r.do(t, http.MethodGet, base+"/preview", "", nil)
	t.Require().Equal(http.StatusOK, preview.code)
	t.Assert().Equal("Friday night", preview.body["title"])
	t.Assert().Equal("open", preview.body["status"])
	t.Assert().EqualValues(1, preview.body["claimedCount"])
	t.Assert().NotContains(preview.body, "callerRole")

	claim := r.do(t, http.MethodPost, base+"/claims", guestUID, map[string]any{"displayName": "Bob"})
	t.Require().Equal(http.StatusOK, claim.code)
	t.Assert().Equal("named-1", claim.body["participantId"])
	t.Assert().Equal(true, claim.body["hasSharedPreferences"])

	guestPreview := r.do(t, http.MethodGet, base+"/preview", guestUID, nil)
	t.Require().Equal(http.StatusOK, guestPreview.code)
	t.Assert().Equal("guest", guestPreview.body["callerRole"])
	t.Assert().Equal(false, guestPreview.body["callerReady"])

	submit := r.do(t, http.MethodPut, base+"/preferences", guestUID, map[string]any{
		"preferences": []map[string]any{{"gameId": "catan", "isTopPick": true}},
	})
	t.Require().Equal(http.StatusOK, submit.code)
	t.Assert().EqualValues(1, submit.body["preferencesCount"])

	t.Require().Equal(http.StatusOK, r.do(t, http.MethodPost, base+"/ready", guestUID, nil).code)

	ready := r.do(t, http.MethodGet, base+"/preferences/ready", hostUID, nil)
	t.Require().Equal(http.StatusOK, ready.code)
	participants, _ := ready.body["participants"].([]any)
	t.Require().NotEmpty(participants)
	first := participants[0].(map[string]any)
	t.Assert().Equal("named-1", first["participantId"])

	games := r.do(t, http.MethodGet, base+"/games", guestUID, nil)
	t.Require().Equal(http.StatusOK, games.code)
	t.Assert().Len(games.body["games"], 2)

	members := r.do(t, http.MethodGet, base+"/members", hostUID, nil)
	t.Require().Equal(http.StatusOK, members.code)
	t.Assert().Len(members.body["members"], 2)

	selected := r.do(t, http.MethodPut, base+"/selected-game", hostUID, map[string]any{
		"selectedGame": map[string]any{"gameId": "catan", "name": "Catan"},
	})
	t.Require().Equal(http.StatusOK, selected.code)
	t.Assert().Equal("open", selected.body["status"])
	t.Assert().Contains(selected.body, "selectedAt")

	closed := r.do(t, http.MethodPost, base+"/close", hostUID, nil)
	t.Require().Equal(http.StatusOK, closed.code)
	t.Assert().Equal("closed", closed.body["status"])
	t.Assert().Contains(closed.body, "closedAt")

	deleted := r.do(t, http.MethodDelete, base, hostUID, nil)
	t.Require().Equal(http.StatusOK, deleted.code)
	t.Assert().Equal(id, deleted.body["sessionId"])

	t.Assert().Equal(http.StatusNotFound, r.do(t, http.MethodGet, base+"/preview", "", nil).code)
}

func (s *HTTPSessionSuite) TestErrors(t provider.T) {
	t.Parallel()
	r := initResources(t)
	id := r.createSession(t)
	base := "/api/v1/sessions/" + id

	badCapacity := createBody()
	badCapacity["capacity"] = 40

	testCases := []struct {
		name   string
		method string
		path   string
		uid    string
		body   any
		code   int
		kind   string
	}{
		{name: "create without token", method: http.MethodPost, path: "/api/v1/sessions", body: createBody(), code: http.StatusUnauthorized, kind: "Unauthenticated"},
		{name: "malformed body", method: http.MethodPost, path: "/api/v1/sessions", uid: hostUID, body: "{", code: http.StatusBadRequest, kind: "InvalidArgument"},
		{name: "capacity out of range", method: http.MethodPost, path: "/api/v1/sessions", uid: hostUID, body: badCapacity, code: http.StatusBadRequest, kind: "InvalidArgument"},
		{name: "unknown session", method: http.MethodGet, path: "/api/v1/sessions/nope/preview", code: http.StatusNotFound, kind: "NotFound"},
		{name: "members for non host", method: http.MethodGet, path: base + "/members", uid: guestUID, code: http.StatusForbidden, kind: "PermissionDenied"},
		{name: "games for non member", method: http.MethodGet, path: base + "/games", uid: guestUID, code: http.StatusForbidden, kind: "PermissionDenied"},
		{name: "remove host", method: http.MethodDelete, path: base + "/members/" + hostUID, uid: hostUID, code: http.StatusBadRequest, kind: "InvalidArgument"},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nothing", code: http.StatusNotFound, kind: "NotFound"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			res := r.do(t, tc.method, tc.path, tc.uid, tc.body)
			t.Assert().Equal(tc.code, res.code)
			t.Assert().Equal(false, res.body["ok"])
			t.Assert().Equal(tc.kind, errorKind(res))
		})
	}
}

func (s *HTTPSessionSuite) TestTokenHeaderAndInvalidToken(t provider.T) {
	t.Parallel()
	r := initResources(t)
	id := r.createSession(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/claims", bytes.NewReader([]byte(`{"displayName":"Carol"}`)))
	req.Header.Set("X-user-token", r.token(t, guestUID))
	rec := httptest.NewRecorder()
	r.handler.ServeHTTP(rec, req)
	t.Assert().Equal(http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/preview", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	r.handler.ServeHTTP(rec, req)
	t.Assert().Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HTTPSessionSuite) TestDoubleJoinConflicts(t provider.T) {
	t.Parallel()
	r := initResources(t)
	id := r.createSession(t)
	path := "/api/v1/sessions/" + id + "/claims"

	t.Require().Equal(http.StatusOK, r.do(t, http.MethodPost, path, guestUID, map[string]any{"displayName": "Carol"}).code)
	again := r.do(t, http.MethodPost, path, guestUID, map[string]any{"displayName": "Carol"})
	t.Assert().Equal(http.StatusConflict, again.code)
	t.Assert().Equal("AlreadyExists", errorKind(again))
}

func (s *HTTPSessionSuite) TestHealth(t provider.T) {
	t.Parallel()
	r := initResources(t)

	rec := httptest.NewRecorder()
	r.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	t.Assert().Equal(http.StatusOK, rec.Code)
	t.Assert().JSONEq(`{"ok":true}`, rec.Body.String())
}
