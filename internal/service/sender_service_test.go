package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"salonbooking/internal/db"
)

type fakeChannels struct {
	mu     sync.Mutex
	emails []string
	sms    map[string]string
	fail   bool
}

func (f *fakeChannels) SendEmail(toEmail, _, subject, _, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, toEmail+"|"+subject+"|"+html)
	return nil
}

func (f *fakeChannels) SendSMS(toNumber, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("carrier down")
	}
	f.sms[toNumber] = body
	return nil
}

func TestSender_AppointmentConfirmed(t *testing.T) {
	ch := &fakeChannels{sms: make(map[string]string)}
	sender, err := NewSenderService(ch, ch, "owner@example.com", "+1", time.UTC, zap.NewNop())
	require.NoError(t, err)

	sender.AppointmentConfirmed(db.Appointment{
		ID: "a1", Date: "2025-03-03", Time: "10:00", CustomerName: "Ana", CustomerPhone: "(555) 010-2030",
		AppliedCouponCode: "ABCD2345", DiscountApplied: true, DiscountType: db.DiscountTypePercentage, DiscountValue: decimal.NewFromInt(10),
		IssuedCouponCode: "NEXT2345",
	})
	sender.Wait()

	require.Contains(t, ch.sms, "+15550102030")
	assert.Contains(t, ch.sms["+15550102030"], "NEXT2345")
	assert.Contains(t, ch.sms["+15550102030"], "10% off")
	require.Len(t, ch.emails, 1)
	assert.Contains(t, ch.emails[0], "owner@example.com|New appointment: Mon 03 Mar 2025 10:00 - Ana")
	assert.Contains(t, ch.emails[0], "Reward coupon issued: NEXT2345")
}

func TestSender_FailuresAndMissingChannels(t *testing.T) {
	ch := &fakeChannels{sms: make(map[string]string), fail: true}
	sender, err := NewSenderService(nil, ch, "", "", nil, zap.NewNop())
	require.NoError(t, err)

	sender.AppointmentConfirmed(db.Appointment{ID: "a1", Date: "2025-03-03", Time: "10:00", CustomerPhone: "+15550102030"})
	sender.Wait()
	assert.Empty(t, ch.sms)
	assert.Empty(t, ch.emails)
}
