package web

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/hex"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/justinas/nosurf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prayagsingh/bookings/internal/auth"
	"github.com/prayagsingh/bookings/internal/live"
	"github.com/prayagsingh/bookings/internal/prompt"
	"github.com/prayagsingh/bookings/internal/rooms"
)

//go:embed templates/*.html static
var files embed.FS

type Server struct {
	Auth  *auth.Store
	Rooms rooms.Repository
	Hub   *live.Hub

	Logger   *slog.Logger
	Gatherer prometheus.Gatherer

	// InProduction marks the CSRF cookie Secure and keeps parsed templates
	// for the life of the process.
	InProduction bool

	mu        sync.Mutex
	templates map[string]*template.Template
}

type tmplData struct {
	Title     string
	User      int64
	PageID    string
	CSRFToken string

	Rooms        []rooms.Room
	Room         rooms.Room
	Reservation  rooms.Reservation
	Reservations []rooms.Reservation
	Errors       rooms.FieldErrors
	Start, End   string
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger()))
	r.Use(middleware.Recoverer)
	r.Use(s.csrf)

	static, _ := fs.Sub(files, "static")
	r.Handle("/static/*", http.StripPrefix("/static", http.FileServer(http.FS(static))))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	if s.Hub != nil {
		r.Handle("/ws", s.Hub)
		s.Hub.Handle("check-availability", func(ctx context.Context, c *live.Conn, ev live.Event) {
			s.checkAvailability(ctx, c, ev)
		})
	}

	r.Get("/", s.handleHome)
	r.Get("/about", s.handleAbout)
	r.Get("/rooms", s.handleRooms)
	r.Get("/rooms/{slug}", s.handleRoom)

	r.Get("/search-availability", s.handleSearch)
	r.Post("/search-availability", s.handlePostSearch)
	r.Post("/search-availability-json", s.handleSearchJSON)
	r.Get("/choose-room/{id}", s.handleChooseRoom)
	r.Get("/book-room", s.handleBookRoom)

	r.Get("/make-reservation", s.handleReservationForm)
	r.Post("/make-reservation", s.handlePostReservation)
	r.Get("/reservation-summary", s.handleSummary)

	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.RequireAuth)
		r.Get("/admin/reservations", s.handleAdminReservations)
	})

	return r
}

// csrf rejects unsafe requests that do not echo the token from the
// csrf_token cookie, either as a form field or an X-CSRF-Token header.
func (s *Server) csrf(next http.Handler) http.Handler {
	h := nosurf.New(next)
	h.SetBaseCookie(http.Cookie{
		Path:     "/",
		HttpOnly: true,
		Secure:   s.InProduction,
		SameSite: http.SameSiteLaxMode,
	})
	h.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger().Warn("csrf check failed", "method", r.Method, "path", r.URL.Path, "reason", nosurf.Reason(r))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
	}))
	return h
}

// AllowOrigin returns a websocket origin check that accepts pages served from
// baseURL. Requests without an Origin header come from non-browser clients
// and pass. An empty baseURL falls back to matching the request host.
func AllowOrigin(baseURL string) func(r *http.Request) bool {
	want, err := url.Parse(baseURL)
	if baseURL == "" || err != nil || want.Host == "" {
		want = nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if want == nil {
			return strings.EqualFold(u.Host, r.Host)
		}
		return strings.EqualFold(u.Scheme, want.Scheme) && strings.EqualFold(u.Host, want.Host)
	}
}

var funcs = template.FuncMap{
	"date": rooms.FormatDate,
}

// parsed returns name parsed inside base.html. Outside production every call
// reparses so template edits show up without a restart.
func (s *Server) parsed(name string) (*template.Template, error) {
	if !s.InProduction {
		return template.New("").Funcs(funcs).ParseFS(files, "templates/base.html", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.templates[name]; ok {
		return t, nil
	}
	t, err := template.New("").Funcs(funcs).ParseFS(files, "templates/base.html", name)
	if err != nil {
		return nil, err
	}
	if s.templates == nil {
		s.templates = make(map[string]*template.Template)
	}
	s.templates[name] = t
	return t, nil
}

// render executes the page inside base.html. A pending flash is staged on the
// hub and shown once the page's live connection comes up.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data tmplData) {
	t, err := s.parsed(name)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	data.PageID = newPageID()
	data.CSRFToken = nosurf.Token(r)
	if sess, ok := s.Auth.GetSession(r); ok {
		data.User = sess.UserID
	}
	if f, ok := s.Auth.PopFlash(w, r); ok && s.Hub != nil {
		s.Hub.Stage(data.PageID, func(c *live.Conn) { showFlash(c.Prompt(), f) })
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		s.logger().Error("render failed", "template", name, "error", err)
	}
}

func showFlash(p *prompt.Prompt, f auth.Flash) {
	switch f.Kind {
	case auth.FlashError:
		p.Error(prompt.ErrorRequest{Message: f.Message})
	case auth.FlashWarning:
		p.Toast(prompt.ToastRequest{Message: f.Message, Icon: prompt.IconWarning})
	default:
		p.Toast(prompt.ToastRequest{Message: f.Message})
	}
}

func newPageID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func requestLogger(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			l.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func Start(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
