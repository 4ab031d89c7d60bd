package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prayagsingh/bookings/internal/db"
)

var ErrUserExists = errors.New("user already exists")

// Users stores staff accounts by username.
type Users interface {
	Create(ctx context.Context, username, passwordHash string) (int64, error)
	Lookup(ctx context.Context, username string) (id int64, passwordHash string, err error)
}

type PostgresUsers struct{ db *db.DB }

func NewPostgresUsers(d *db.DB) *PostgresUsers { return &PostgresUsers{db: d} }

func (u *PostgresUsers) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	var id int64
	err := u.db.QueryRow(ctx, `INSERT INTO users(username, password_bcrypt) VALUES ($1,$2) RETURNING id`,
		strings.TrimSpace(username), passwordHash).Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return 0, ErrUserExists
	}
	return id, err
}

func (u *PostgresUsers) Lookup(ctx context.Context, username string) (int64, string, error) {
	var id int64
	var hash string
	err := u.db.QueryRow(ctx, `SELECT id, password_bcrypt FROM users WHERE username=$1`, strings.TrimSpace(username)).Scan(&id, &hash)
	if db.IsNotFound(err) {
		return 0, "", ErrInvalidCredentials
	}
	return id, hash, err
}

// MemoryUsers keeps accounts in process.
type MemoryUsers struct {
	mu    sync.Mutex
	users map[string]memoryUser
}

type memoryUser struct {
	id   int64
	hash string
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: map[string]memoryUser{}}
}

func (m *MemoryUsers) Create(_ context.Context, username, passwordHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	username = strings.TrimSpace(username)
	if _, ok := m.users[username]; ok {
		return 0, ErrUserExists
	}
	id := int64(len(m.users) + 1)
	m.users[username] = memoryUser{id: id, hash: passwordHash}
	return id, nil
}

func (m *MemoryUsers) Lookup(_ context.Context, username string) (int64, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[strings.TrimSpace(username)]
	if !ok {
		return 0, "", ErrInvalidCredentials
	}
	return u.id, u.hash, nil
}
