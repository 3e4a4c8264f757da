package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"salonbooking/internal/db"
)

type AdminAuthRepository interface {
	GetByUsername(ctx context.Context, username string) (*db.Admin, error)
	CreateNewUser(ctx context.Context, username, password string) error
}

type adminAuthRepository struct {
	db *sql.DB
}

func NewAdminAuthRepository(db *sql.DB) AdminAuthRepository {
	return &adminAuthRepository{db: db}
}

// GetByUsername returns nil, nil when the admin does not exist.
func (r *adminAuthRepository) GetByUsername(ctx context.Context, username string) (*db.Admin, error) {
	var admin db.Admin
	err := r.db.QueryRowContext(ctx, "SELECT id, username, password_hash FROM admins WHERE username = $1", username).
		Scan(&admin.ID, &admin.Username, &admin.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

func (r *adminAuthRepository) CreateNewUser(ctx context.Context, username, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	query := "INSERT INTO admins (username, password_hash) VALUES ($1, $2) ON CONFLICT (username) DO NOTHING"
	_, err = r.db.ExecContext(ctx, query, username, string(hashedPassword))
	return err
}

type memoryAdminAuthRepository struct {
	mu     sync.RWMutex
	admins map[string]db.Admin
}

func NewMemoryAdminAuthRepository() AdminAuthRepository {
	return &memoryAdminAuthRepository{admins: make(map[string]db.Admin)}
}

func (r *memoryAdminAuthRepository) GetByUsername(_ context.Context, username string) (*db.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	admin, ok := r.admins[username]
	if !ok {
		return nil, nil
	}
	return &admin, nil
}

func (r *memoryAdminAuthRepository) CreateNewUser(_ context.Context, username, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.admins[username]; ok {
		return nil
	}
	r.admins[username] = db.Admin{ID: len(r.admins) + 1, Username: username, PasswordHash: string(hashedPassword)}
	return nil
}
