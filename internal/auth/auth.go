package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	sessionCookie = "bookings_session"
	draftCookie   = "bookings_draft"
	flashCookie   = "bookings_flash"

	sessionTTL = 14 * 24 * time.Hour
	draftTTL   = 2 * time.Hour
)

type Store struct {
	sc     *securecookie.SecureCookie
	users  Users
	secure bool
}

type ctxKey string

const userIDKey ctxKey = "userID"

// NewStore builds a cookie store. secure marks every cookie Secure regardless
// of the request scheme.
func NewStore(users Users, hashKey, blockKey []byte, secure bool) *Store {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionTTL.Seconds()))
	return &Store{sc: sc, users: users, secure: secure}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func (s *Store) CreateUser(ctx context.Context, username, password string) (int64, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}
	return s.users.Create(ctx, username, hash)
}

func (s *Store) Authenticate(ctx context.Context, username, password string) (int64, error) {
	if s.users == nil {
		return 0, ErrInvalidCredentials
	}
	id, hash, err := s.users.Lookup(ctx, username)
	if err != nil {
		return 0, err
	}
	if !CheckPassword(hash, password) {
		return 0, ErrInvalidCredentials
	}
	return id, nil
}

type Session struct {
	UserID   int64
	IssuedAt int64
}

func (s *Store) SetSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	return s.write(w, r, sessionCookie, Session{UserID: userID, IssuedAt: time.Now().Unix()}, sessionTTL)
}

func (s *Store) ClearSession(w http.ResponseWriter) {
	clearCookie(w, sessionCookie)
}

func (s *Store) GetSession(r *http.Request) (Session, bool) {
	var sess Session
	if !s.read(r, sessionCookie, &sess) || sess.UserID <= 0 {
		return Session{}, false
	}
	// A session older than its TTL is refused even if the browser kept it.
	if time.Since(time.Unix(sess.IssuedAt, 0)) > sessionTTL {
		return Session{}, false
	}
	return sess, true
}

func (s *Store) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.GetSession(r)
		if !ok {
			s.SetFlash(w, r, Flash{Kind: FlashError, Message: "Log in first!"})
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, sess.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(userIDKey).(int64)
	return uid, ok
}

func (s *Store) write(w http.ResponseWriter, r *http.Request, name string, v any, ttl time.Duration) error {
	encoded, err := s.sc.Encode(name, v)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure || r.TLS != nil,
		MaxAge:   int(ttl.Seconds()),
	})
	return nil
}

func (s *Store) read(r *http.Request, name string, v any) bool {
	c, err := r.Cookie(name)
	if err != nil {
		return false
	}
	return s.sc.Decode(name, c.Value, v) == nil
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
