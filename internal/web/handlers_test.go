package web

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prayagsingh/bookings/internal/auth"
	"github.com/prayagsingh/bookings/internal/live"
	"github.com/prayagsingh/bookings/internal/prompt"
	"github.com/prayagsingh/bookings/internal/rooms"
)

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	repo   *rooms.MemoryRepo
	auth   *auth.Store
	hub    *live.Hub

	csrfToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()

	env := &testEnv{
		repo: rooms.NewMemoryRepo(),
		auth: auth.NewStore(auth.NewMemoryUsers(), securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32), false),
		hub: live.NewHub(
			live.WithLogger(logger),
			live.WithRegisterer(reg),
			live.WithPromptOptions(prompt.WithMetrics(prompt.NewMetrics(reg))),
		),
	}
	s := &Server{Auth: env.auth, Rooms: env.repo, Hub: env.hub, Logger: logger, Gatherer: reg}
	env.srv = httptest.NewServer(s.Routes())
	t.Cleanup(env.srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client = env.srv.Client()
	env.client.Jar = jar
	return env
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

var csrfRe = regexp.MustCompile(`<meta name="csrf-token" content="([^"]+)">`)

// token returns the CSRF token the site hands this client, loading a page
// the first time to get the cookie set.
func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	if e.csrfToken == "" {
		_, body := e.get(t, "/about")
		m := csrfRe.FindStringSubmatch(body)
		require.Len(t, m, 2, "csrf token missing")
		e.csrfToken = html.UnescapeString(m[1])
	}
	return e.csrfToken
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	withToken := url.Values{"csrf_token": {e.token(t)}}
	for k, v := range form {
		withToken[k] = v
	}
	resp, err := e.client.PostForm(e.srv.URL+path, withToken)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

var pageIDRe = regexp.MustCompile(`data-page="([0-9a-f]+)"`)

func pageID(t *testing.T, body string) string {
	t.Helper()
	m := pageIDRe.FindStringSubmatch(body)
	require.Len(t, m, 2, "page id missing")
	return m[1]
}

func TestStaticPages(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", body)

	resp, body = env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "General&#39;s Quarters")
	assert.Contains(t, body, `href="/rooms/majors-suite"`)

	resp, body = env.get(t, "/rooms/generals-quarters")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `data-live-event="check-availability"`)
	assert.Contains(t, body, `data-room-id="1"`)

	resp, _ = env.get(t, "/rooms/penthouse")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.get(t, "/static/js/live.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "new WebSocket")

	resp, body = env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "bookings_live_connections 0")
}

func TestSearchAvailabilityFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post(t, "/search-availability", url.Values{"start": {"2050-01-01"}, "end": {"2050-01-04"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Available from 2050-01-01 to 2050-01-04")
	assert.Contains(t, body, `href="/choose-room/2"`)

	resp, body = env.get(t, "/choose-room/2")
	assert.Equal(t, "/make-reservation", resp.Request.URL.Path)
	assert.Contains(t, body, "Room: Major&#39;s Suite")
	assert.Contains(t, body, "Arrival: 2050-01-01")

	resp, body = env.post(t, "/make-reservation", url.Values{"first_name": {"Jo"}, "last_name": {"Smith"}, "email": {"bad"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "This field must be at least 3 characters long")
	assert.Contains(t, body, "Invalid email address")
	assert.Contains(t, body, `value="Smith"`)

	resp, body = env.post(t, "/make-reservation", url.Values{
		"first_name": {"John"}, "last_name": {"Smith"}, "email": {"john@example.com"}, "phone": {"555-1234"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/reservation-summary", resp.Request.URL.Path)
	assert.Contains(t, body, "John Smith")
	assert.Contains(t, body, "Major&#39;s Suite")

	list, err := env.repo.ListReservations(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].RoomID)

	ok, err := env.repo.SearchAvailabilityByDatesByRoomID(context.Background(), list[0].StartDate, list[0].EndDate, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	// The draft is consumed by the summary page.
	resp, _ = env.get(t, "/reservation-summary")
	assert.Equal(t, "/", resp.Request.URL.Path)
}

func TestSearchAvailabilityRejectsBadRange(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post(t, "/search-availability", url.Values{"start": {"2050-01-04"}, "end": {"2050-01-01"}})
	assert.Equal(t, "/search-availability", resp.Request.URL.Path)

	srvURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws?page=" + pageID(t, body)
	ws, _, err := websocket.DefaultDialer.Dial(srvURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f struct {
		Type    string         `json:"type"`
		Options prompt.Options `json:"options"`
	}
	require.NoError(t, ws.ReadJSON(&f))
	assert.Equal(t, "show", f.Type)
	assert.Equal(t, prompt.ErrorTitle, f.Options.Title)
	assert.Equal(t, rooms.ErrInvalidRange.Error(), f.Options.Text)
	assert.Equal(t, prompt.IconError, f.Options.Icon)
}

func TestSearchAvailabilityNoRooms(t *testing.T) {
	env := newTestEnv(t)
	s, e := mustRange(t, "2050-05-01", "2050-05-03")
	env.repo.Block(1, s, e)
	env.repo.Block(2, s, e)

	resp, _ := env.post(t, "/search-availability", url.Values{"start": {"2050-05-01"}, "end": {"2050-05-03"}})
	assert.Equal(t, "/search-availability", resp.Request.URL.Path)
	assert.Equal(t, 1, env.hub.Sweep(time.Now().Add(time.Hour)), "flash staged for the next page")
}

func TestSearchAvailabilityJSON(t *testing.T) {
	env := newTestEnv(t)
	s, e := mustRange(t, "2050-07-01", "2050-07-05")
	env.repo.Block(1, s, e)

	tests := []struct {
		name   string
		form   url.Values
		status int
		ok     bool
		msg    string
	}{
		{"available", url.Values{"room_id": {"2"}, "start": {"2050-07-01"}, "end": {"2050-07-02"}}, http.StatusOK, true, ""},
		{"taken", url.Values{"room_id": {"1"}, "start": {"2050-07-02"}, "end": {"2050-07-03"}}, http.StatusOK, false, "No availability"},
		{"bad room", url.Values{"room_id": {"x"}, "start": {"2050-07-02"}, "end": {"2050-07-03"}}, http.StatusBadRequest, false, "Invalid room"},
		{"bad dates", url.Values{"room_id": {"1"}, "start": {"07/02/2050"}, "end": {"2050-07-03"}}, http.StatusBadRequest, false, `invalid date "07/02/2050"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := env.post(t, "/search-availability-json", tc.form)
			assert.Equal(t, tc.status, resp.StatusCode)
			var got availabilityResponse
			require.NoError(t, json.Unmarshal([]byte(body), &got))
			assert.Equal(t, tc.ok, got.OK)
			assert.Equal(t, tc.msg, got.Message)
			assert.Equal(t, tc.form.Get("room_id"), got.RoomID)
		})
	}
}

func TestBookRoom(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, bookURL(1, "2050-08-01", "2050-08-03"))
	assert.Equal(t, "/make-reservation", resp.Request.URL.Path)
	assert.Contains(t, body, "Room: General&#39;s Quarters")
	assert.Contains(t, body, "Departure: 2050-08-03")

	resp, _ = env.get(t, bookURL(9, "2050-08-01", "2050-08-03"))
	assert.Equal(t, "/", resp.Request.URL.Path)

	resp, _ = env.get(t, bookURL(1, "2050-08-03", "2050-08-01"))
	assert.Equal(t, "/", resp.Request.URL.Path)
}

func TestMakeReservationWithoutDraft(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.get(t, "/make-reservation")
	assert.Equal(t, "/", resp.Request.URL.Path)

	resp, _ = env.get(t, "/choose-room/1")
	assert.Equal(t, "/search-availability", resp.Request.URL.Path)
}

func TestMakeReservationLosesRace(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, bookURL(1, "2050-09-01", "2050-09-03"))

	s, e := mustRange(t, "2050-09-02", "2050-09-04")
	env.repo.Block(1, s, e)

	resp, _ := env.post(t, "/make-reservation", url.Values{
		"first_name": {"John"}, "last_name": {"Smith"}, "email": {"john@example.com"},
	})
	assert.Equal(t, "/search-availability", resp.Request.URL.Path)

	list, err := env.repo.ListReservations(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAdminRequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.auth.CreateUser(context.Background(), "admin", "password")
	require.NoError(t, err)

	resp, body := env.get(t, "/admin/reservations")
	assert.Equal(t, "/login", resp.Request.URL.Path)
	assert.Contains(t, body, `href="/login"`)

	resp, _ = env.post(t, "/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, "/login", resp.Request.URL.Path)

	resp, body = env.post(t, "/login", url.Values{"username": {"admin"}, "password": {"password"}})
	assert.Equal(t, "/admin/reservations", resp.Request.URL.Path)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No reservations yet.")
	assert.Contains(t, body, `href="/logout"`)

	resp, _ = env.get(t, "/logout")
	assert.Equal(t, "/login", resp.Request.URL.Path)
	resp, _ = env.get(t, "/admin/reservations")
	assert.Equal(t, "/login", resp.Request.URL.Path)
}

func TestPostWithoutCSRFTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.auth.CreateUser(context.Background(), "admin", "password")
	require.NoError(t, err)
	env.token(t)

	for _, path := range []string{"/login", "/search-availability", "/make-reservation", "/search-availability-json"} {
		req, err := http.NewRequest(http.MethodPost, env.srv.URL+path,
			strings.NewReader(url.Values{"username": {"admin"}, "password": {"password"}}.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Origin", "https://elsewhere.example")

		resp, err := env.client.Do(req)
		require.NoError(t, err)
		readBody(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}

	resp, _ := env.get(t, "/admin/reservations")
	assert.Equal(t, "/login", resp.Request.URL.Path, "no session was issued")

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/search-availability-json",
		strings.NewReader(url.Values{"room_id": {"1"}, "start": {"2050-07-01"}, "end": {"2050-07-02"}}.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-Token", env.token(t))
	resp, err = env.client.Do(req)
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "token accepted from header")
}

func TestWebsocketOrigin(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		host    string
		origin  string
		want    bool
	}{
		{"no origin", "https://bookings.example", "bookings.example", "", true},
		{"matches base url", "https://bookings.example", "10.0.0.4:8080", "https://Bookings.example", true},
		{"wrong scheme", "https://bookings.example", "bookings.example", "http://bookings.example", false},
		{"other site", "https://bookings.example", "bookings.example", "https://elsewhere.example", false},
		{"garbage origin", "https://bookings.example", "bookings.example", "://", false},
		{"no base url matches host", "", "localhost:8080", "http://localhost:8080", true},
		{"no base url other host", "", "localhost:8080", "http://elsewhere.example", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.Host = tc.host
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			assert.Equal(t, tc.want, AllowOrigin(tc.baseURL)(r))
		})
	}

	hub := live.NewHub(live.WithCheckOrigin(AllowOrigin("https://bookings.example")))
	srv := httptest.NewServer(hub)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://elsewhere.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://bookings.example"}})
	require.NoError(t, err)
	ws.Close()
}

func TestTemplatesCachedInProduction(t *testing.T) {
	dev := &Server{}
	a, err := dev.parsed("templates/about.html")
	require.NoError(t, err)
	b, err := dev.parsed("templates/about.html")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Empty(t, dev.templates)

	prod := &Server{InProduction: true}
	a, err = prod.parsed("templates/about.html")
	require.NoError(t, err)
	b, err = prod.parsed("templates/about.html")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = prod.parsed("templates/missing.html")
	assert.Error(t, err)
	assert.Len(t, prod.templates, 1)
}

func mustRange(t *testing.T, start, end string) (time.Time, time.Time) {
	t.Helper()
	s, e, err := rooms.ParseRange(start, end)
	require.NoError(t, err)
	return s, e
}
