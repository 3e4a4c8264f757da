package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticParser map[string]string

func (p staticParser) ParseToken(token string) (string, error) {
	if u, ok := p[token]; ok {
		return u, nil
	}
	return "", errors.New("bad token")
}

func TestAdminAuthMiddleware(t *testing.T) {
	var seen string
	h := AdminAuthMiddleware(staticParser{"good": "admin"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AdminFrom(r.Context())
	}))

	cases := map[string]int{
		"":             http.StatusUnauthorized,
		"Bearer ":      http.StatusUnauthorized,
		"Basic good":   http.StatusUnauthorized,
		"Bearer wrong": http.StatusUnauthorized,
		"Bearer good":  http.StatusOK,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, header)
	}
	assert.Equal(t, "admin", seen)
}
