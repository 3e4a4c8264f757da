package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("reserve: %w", &BookingError{Kind: KindSlotUnavailable, Message: "2025-01-02 10:00"})

	assert.True(t, stderrors.Is(err, ErrSlotUnavailable))
	assert.False(t, stderrors.Is(err, ErrCouponNotFound))
	assert.Equal(t, KindSlotUnavailable, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(stderrors.New("boom")))
}

func TestValidationCarriesField(t *testing.T) {
	err := Validation("customerName", "is required")

	assert.True(t, stderrors.Is(err, ErrValidation))
	assert.Equal(t, "customerName", FieldOf(err))
	assert.Contains(t, err.Error(), "customerName")
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		Validation("date", "bad"):       http.StatusUnprocessableEntity,
		ErrCouponNotFound:               http.StatusUnprocessableEntity,
		ErrCouponAlreadyRedeemed:        http.StatusUnprocessableEntity,
		ErrSlotUnavailable:              http.StatusConflict,
		NotFound("appointment %s", "x"): http.StatusNotFound,
		ErrNotFound:                     http.StatusNotFound,
		Consistency("release", nil):     http.StatusInternalServerError,
		ErrUnauthorized("nope"):         http.StatusUnauthorized,
		stderrors.New("db down"):        http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusFor(err), err.Error())
	}
}
