package router

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"example.com/amadvs/internal/core"
	"example.com/amadvs/internal/http/api"
	"example.com/amadvs/internal/platform/jwt"
	"example.com/amadvs/internal/platform/metrics"
	"example.com/amadvs/internal/platform/revoke"
	"example.com/amadvs/internal/registration"
	"example.com/amadvs/internal/repo"
	"example.com/amadvs/internal/session"
)

type tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type sessionBody struct {
	SessionID string           `json:"sessionId"`
	Session   session.Snapshot `json:"session"`
	Tokens    *tokens          `json:"tokens"`
}

type submitBody struct {
	Outcome registration.Outcome `json:"outcome"`
	Session session.Snapshot     `json:"session"`
	Tokens  *tokens              `json:"tokens"`
	Error   string               `json:"error"`
}

type testServer struct {
	*httptest.Server
	t *testing.T
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	users := repo.NewUserMem()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	mgr := session.NewManager(func() *session.Store {
		return session.NewStore(users, users,
			session.WithLatency(session.FixedLatency(0)),
			session.WithMetrics(m),
		)
	}, zap.NewNop(), m)
	jwtv := jwt.NewHS256([]byte("test-secret"), time.Minute, time.Hour)
	svc := api.NewService(mgr, users, jwtv, revoke.NewMem(), registration.NewMemPhotos(1<<20), zap.NewNop())

	srv := httptest.NewServer(Build(svc, jwtv, reg, zap.NewNop()))
	t.Cleanup(func() {
		srv.Close()
		mgr.Close()
	})
	return &testServer{Server: srv, t: t}
}

func (s *testServer) do(method, path string, body any, token string, out any) int {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	require.NoError(s.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *testServer) newSession() string {
	s.t.Helper()
	var out sessionBody
	require.Equal(s.t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/sessions", nil, "", &out))
	require.NotEmpty(s.t, out.SessionID)
	assert.Equal(s.t, session.Anonymous, out.Session.State)
	return out.SessionID
}

func (s *testServer) login(sid, email, pass string) (int, sessionBody) {
	s.t.Helper()
	var out sessionBody
	code := s.do(http.MethodPost, "/api/v1/sessions/"+sid+"/login", map[string]string{"email": email, "password": pass}, "", &out)
	return code, out
}

const pngBytes = "\x89PNG\r\n\x1a\n fake pixels"

func (s *testServer) uploadPhoto(sid string) int {
	s.t.Helper()
	return s.upload(sid, "image/png", []byte(pngBytes))
}

func (s *testServer) upload(sid, contentType string, data []byte) int {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photo"; filename="me.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(s.t, err)
	part.Write(data)
	require.NoError(s.t, mw.Close())

	resp, err := s.Client().Post(s.URL+"/api/v1/sessions/"+sid+"/registration/photo", mw.FormDataContentType(), &buf)
	require.NoError(s.t, err)
	resp.Body.Close()
	return resp.StatusCode
}

// uploadInProcess skips the network so oversized bodies are not cut off
// mid-write by the server closing the connection.
func (s *testServer) uploadInProcess(sid string, data []byte, withLength bool) int {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", "big.png")
	require.NoError(s.t, err)
	part.Write(data)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sid+"/registration/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if !withLength {
		req.ContentLength = -1
	}
	rec := httptest.NewRecorder()
	s.Config.Handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	var health map[string]string
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", nil, "", &health))
	assert.Equal(t, "ok", health["status"])

	s.newSession()
	resp, err := s.Client().Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "amadvs_sessions_active 1")
}

func TestUnknownSession(t *testing.T) {
	s := newTestServer(t)
	var out map[string]string
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/sessions/nope", nil, "", &out))
	assert.Equal(t, "session_not_found", out["error"])
}

func TestLoginMeLogout(t *testing.T) {
	s := newTestServer(t)
	sid := s.newSession()

	code, out := s.login(sid, "Dansax2016@gmail.com", "0000")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, out.Session.IsAuthenticated)
	assert.False(t, out.Session.IsLoading)
	assert.Empty(t, out.Session.Error)
	require.NotNil(t, out.Session.User)
	assert.Equal(t, core.RoleDirector, out.Session.User.Role)
	require.NotNil(t, out.Tokens)

	var me core.User
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/me", nil, out.Tokens.Access, &me))
	assert.Equal(t, "Daniel de Oliveira", me.Name)

	var after sessionBody
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/sessions/"+sid+"/logout", map[string]string{"refresh": out.Tokens.Refresh}, "", &after))
	assert.False(t, after.Session.IsAuthenticated)
	assert.Nil(t, after.Session.User)
	assert.Equal(t, session.Anonymous, after.Session.State)

	var refreshed map[string]string
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/refresh", map[string]string{"refresh": out.Tokens.Refresh}, "", &refreshed))
	assert.Equal(t, "token_revoked", refreshed["error"])

	// a second logout changes nothing
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/sessions/"+sid+"/logout", nil, "", &after))
	assert.False(t, after.Session.IsAuthenticated)
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)
	sid := s.newSession()

	code, out := s.login(sid, "Dansax2016@gmail.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, session.MsgInvalidCredentials, out.Session.Error)
	assert.Equal(t, session.AuthError, out.Session.State)
	assert.Nil(t, out.Tokens)

	code, out = s.login(sid, "nobody@example.com", "0000")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, session.MsgInvalidCredentials, out.Session.Error)

	// emails match without regard to case
	code, out = s.login(sid, "dansax2016@GMAIL.com", "0000")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, out.Session.IsAuthenticated)
}

func TestRefreshRotation(t *testing.T) {
	s := newTestServer(t)
	sid := s.newSession()
	_, out := s.login(sid, "jonathas@example.com", "0000")
	require.NotNil(t, out.Tokens)

	var next tokens
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/refresh", map[string]string{"refresh": out.Tokens.Refresh}, "", &next))
	assert.NotEmpty(t, next.Access)
	assert.NotEqual(t, out.Tokens.Refresh, next.Refresh)

	var again map[string]string
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/refresh", map[string]string{"refresh": out.Tokens.Refresh}, "", &again))

	// access tokens are not refresh tokens
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/refresh", map[string]string{"refresh": next.Access}, "", &again))
}

func TestStudentRegistrationNeedsApproval(t *testing.T) {
	s := newTestServer(t)
	sid := s.newSession()
	base := "/api/v1/sessions/" + sid + "/registration"

	var view registration.View
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, base, nil, "", &view))
	assert.Equal(t, core.RoleStudent, view.Role)
	assert.Equal(t, registration.StepStudentKind, view.Step)

	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, base, map[string]any{"studentKind": "new"}, "", &view))
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, base+"/next", nil, "", &view))
	assert.Equal(t, registration.StepPersonal, view.Step)

	var incomplete struct {
		Error   string   `json:"error"`
		Missing []string `json:"missing"`
	}
	require.Equal(t, http.StatusUnprocessableEntity, s.do(http.MethodPost, base+"/next", nil, "", &incomplete))
	assert.Equal(t, "step_incomplete", incomplete.Error)
	assert.Contains(t, incomplete.Missing, registration.FieldPhoto)

	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, base, map[string]any{"fields": map[string]string{
		"name":         "Ana Souza",
		"birthDate":    "2008-04-02",
		"email":        "ana@example.com",
		"phone":        "11999990000",
		"congregation": "Vila Nova",
		"instrument":   "violin",
	}}, "", &view))
	require.Equal(t, http.StatusOK, s.uploadPhoto(sid))
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, base, nil, "", &view))
	photo := view.Fields[registration.FieldPhoto]
	require.True(t, strings.HasPrefix(photo, registration.PhotoPathPrefix))

	resp, err := s.Client().Get(s.URL + photo)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "inline", resp.Header.Get("Content-Disposition"))

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, base+"/next", nil, "", &view))
	assert.Equal(t, registration.StepPassword, view.Step)

	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, base, map[string]any{"fields": map[string]string{
		"password": "segredo1", "confirmPassword": "segredo2",
	}}, "", &view))
	var failed submitBody
	require.Equal(t, http.StatusUnprocessableEntity, s.do(http.MethodPost, base+"/submit", nil, "", &failed))
	assert.Equal(t, registration.MsgPasswordMismatch, failed.Error)

	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, base, map[string]any{"fields": map[string]string{
		"confirmPassword": "segredo1",
	}}, "", &view))
	var done submitBody
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, base+"/submit", nil, "", &done))
	assert.Equal(t, registration.MsgStudentDone, done.Outcome.Message)
	assert.Equal(t, registration.RedirectStudentDone, done.Outcome.Redirect)
	assert.False(t, done.Session.IsAuthenticated)
	assert.Nil(t, done.Tokens)
	studentID := done.Outcome.User.ID
	require.NotEmpty(t, studentID)

	// the draft is gone once submitted
	var gone map[string]string
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, base, nil, "", &gone))

	code, out := s.login(sid, "ana@example.com", "segredo1")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, session.MsgPendingApproval, out.Session.Error)

	staff := s.newSession()
	_, director := s.login(staff, "Dansax2016@gmail.com", "0000")
	require.NotNil(t, director.Tokens)

	var pending []core.User
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/admin/pending", nil, director.Tokens.Access, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, studentID, pending[0].ID)
	require.NotNil(t, pending[0].Student)
	assert.Equal(t, "violin", pending[0].Student.Instrument)

	var approved core.User
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/admin/users/"+studentID+"/approve", nil, director.Tokens.Access, &approved))
	assert.True(t, approved.Approved)

	code, out = s.login(sid, "ana@example.com", "segredo1")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, out.Session.IsAuthenticated)

	var denied map[string]string
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/admin/pending", nil, out.Tokens.Access, &denied))
}

func maestroFields(email string) map[string]string {
	return map[string]string{
		"name":              "Paulo Lima",
		"birthDate":         "1979-09-12",
		"church":            "ADVS Norte",
		"pastorName":        "Pastor Marcos",
		"sundayServiceTime": "evening",
		"email":             email,
		"phone":             "11988887777",
		"password":          "regente",
		"confirmPassword":   "regente",
	}
}

func TestMaestroRegistrationLogsIn(t *testing.T) {
	s := newTestServer(t)
	sid := s.newSession()
	base := "/api/v1/sessions/" + sid + "/registration"

	var view registration.View
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, base+"?role=maestro", nil, "", &view))
	assert.Equal(t, []registration.Step{registration.StepMaestroForm}, view.Steps)

	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, base, map[string]any{"fields": maestroFields("paulo@example.com")}, "", &view))
	assert.True(t, view.CanSubmit)
	assert.NotContains(t, view.Fields, registration.FieldPassword)

	var done submitBody
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, base+"/submit", nil, "", &done))
	assert.Equal(t, registration.MsgOtherDone, done.Outcome.Message)
	assert.Equal(t, registration.RedirectOtherDone, done.Outcome.Redirect)
	assert.True(t, done.Session.IsAuthenticated)
	require.NotNil(t, done.Session.User)
	assert.Equal(t, core.RoleMaestro, done.Session.User.Role)
	require.NotNil(t, done.Session.User.Maestro)
	assert.Equal(t, core.ServiceTime("evening"), done.Session.User.Maestro.SundayServiceTime)
	require.NotNil(t, done.Tokens)
}

func TestSelfRegisteredMaestroCannotApprove(t *testing.T) {
	s := newTestServer(t)
	sid := s.newSession()
	base := "/api/v1/sessions/" + sid + "/registration"

	var view registration.View
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, base+"?role=maestro", nil, "", &view))
	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, base, map[string]any{"fields": maestroFields("intruso@example.com")}, "", &view))
	var done submitBody
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, base+"/submit", nil, "", &done))
	require.NotNil(t, done.Tokens)

	var denied map[string]string
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/admin/pending", nil, done.Tokens.Access, &denied))
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/v1/admin/users/1/approve", nil, done.Tokens.Access, &denied))
	assert.Equal(t, "forbidden", denied["error"])

	// seeded maestros are not approvers either
	staff := s.newSession()
	_, maestro := s.login(staff, "jonathas@example.com", "0000")
	require.NotNil(t, maestro.Tokens)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/admin/pending", nil, maestro.Tokens.Access, &denied))
}

func TestRegistrationRejects(t *testing.T) {
	s := newTestServer(t)
	sid := s.newSession()
	base := "/api/v1/sessions/" + sid + "/registration"

	var errBody map[string]any
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, base+"?role=director", nil, "", &errBody))
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, base+"?role=janitor", nil, "", &errBody))

	var view registration.View
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, base+"?role=pastor", nil, "", &view))
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, base, map[string]any{"fields": map[string]string{"shoeSize": "42"}}, "", &errBody))
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, base+"/back", nil, "", &errBody))

	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, base, map[string]any{"fields": map[string]string{
		"name":            "Pastor Repetido",
		"church":          "ADVS Sul",
		"email":           "DANSAX2016@gmail.com",
		"phone":           "11900000000",
		"password":        "x",
		"confirmPassword": "x",
	}}, "", &view))

	var failed submitBody
	require.Equal(t, http.StatusConflict, s.do(http.MethodPost, base+"/submit", nil, "", &failed))
	assert.Equal(t, session.MsgEmailTaken, failed.Error)
	assert.False(t, failed.Session.IsAuthenticated)

	// the draft survives a failed submit
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, base, nil, "", &view))
	assert.Equal(t, "Pastor Repetido", view.Fields["name"])
}

func TestAdminNeedsToken(t *testing.T) {
	s := newTestServer(t)
	var out map[string]string
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/admin/pending", nil, "", &out))
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/me", nil, "garbage", &out))
}

func TestWatchSession(t *testing.T) {
	s := newTestServer(t)
	sid := s.newSession()

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/sessions/" + sid
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg api.Message
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, api.SnapshotMessage, msg.Type)
	assert.Equal(t, session.Anonymous, msg.Data.State)

	code, _ := s.login(sid, "jonathas@example.com", "0000")
	require.Equal(t, http.StatusOK, code)

	for msg.Data.State != session.Authenticated {
		require.NoError(t, conn.ReadJSON(&msg))
	}
	require.NotNil(t, msg.Data.User)
	assert.Equal(t, "Jonathas Teles", msg.Data.User.Name)

	require.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/sessions/"+sid, nil, "", nil))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
			break
		}
	}
}

func TestPhotoUploadRejects(t *testing.T) {
	s := newTestServer(t)
	sid := s.newSession()
	var view registration.View
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/sessions/"+sid+"/registration", nil, "", &view))

	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(document.cookie)</script></svg>`)
	assert.Equal(t, http.StatusUnsupportedMediaType, s.upload(sid, "image/svg+xml", svg))
	// a declared image type does not help markup through
	assert.Equal(t, http.StatusUnsupportedMediaType, s.upload(sid, "image/png", svg))

	big := append([]byte(pngBytes), make([]byte, 7<<20)...)
	assert.Equal(t, http.StatusRequestEntityTooLarge, s.uploadInProcess(sid, big, true))
	// without a declared length the body limit trips while parsing
	assert.Equal(t, http.StatusRequestEntityTooLarge, s.uploadInProcess(sid, big, false))

	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/sessions/"+sid+"/registration", nil, "", &view))
	assert.Empty(t, view.Fields[registration.FieldPhoto])
}

func TestLongPasswordIsAValidationError(t *testing.T) {
	s := newTestServer(t)
	sid := s.newSession()
	base := "/api/v1/sessions/" + sid + "/registration"

	long := strings.Repeat("p", 73)
	fields := maestroFields("longpw@example.com")
	fields["password"], fields["confirmPassword"] = long, long

	var view registration.View
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, base+"?role=maestro", nil, "", &view))
	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, base, map[string]any{"fields": fields}, "", &view))
	assert.False(t, view.CanSubmit)

	var failed struct {
		Error   string   `json:"error"`
		Invalid []string `json:"invalid"`
	}
	require.Equal(t, http.StatusUnprocessableEntity, s.do(http.MethodPost, base+"/submit", nil, "", &failed))
	assert.Equal(t, "step_incomplete", failed.Error)
	assert.Equal(t, []string{registration.FieldPassword}, failed.Invalid)

	var out sessionBody
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/sessions/"+sid, nil, "", &out))
	assert.Empty(t, out.Session.Error)
}
