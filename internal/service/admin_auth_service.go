package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	apperr "salonbooking/internal/errors"
	"salonbooking/internal/repository"
)

const tokenTTL = time.Hour

var ErrInvalidCredentials = apperr.ErrUnauthorized("invalid credentials")

type AdminAuthService interface {
	Login(ctx context.Context, username, password string) (string, error)
	CreateAdmin(ctx context.Context, username, password string) error
	ParseToken(token string) (string, error)
}

type adminAuthService struct {
	repo   repository.AdminAuthRepository
	secret []byte
	clock  Clock
}

func NewAdminAuthService(repo repository.AdminAuthRepository, secret string, clock Clock) AdminAuthService {
	return &adminAuthService{repo: repo, secret: []byte(secret), clock: clock}
}

func (s *adminAuthService) Login(ctx context.Context, username, password string) (string, error) {
	admin, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if admin == nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"admin_id": admin.ID,
		"username": admin.Username,
		"exp":      s.clock.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *adminAuthService) CreateAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return apperr.Validation("username", "username and password cannot be empty")
	}
	return s.repo.CreateNewUser(ctx, username, password)
}

// ParseToken validates an HS256 token and returns the admin username in it.
func (s *adminAuthService) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", apperr.ErrUnauthorized("invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected token claims")
	}
	username, _ := claims["username"].(string)
	if username == "" {
		return "", apperr.ErrUnauthorized("token has no username")
	}
	return username, nil
}
