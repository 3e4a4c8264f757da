package service

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"
	"time"

	"go.uber.org/zap"

	"salonbooking/internal/db"
	"salonbooking/internal/entities"
	"salonbooking/internal/templates"
	"salonbooking/internal/utils"
)

// SenderService implements Notifier. Each message goes out on its own
// goroutine; failures are logged and never reach the booking.
type SenderService struct {
	mailer        EmailSender
	sms           SMSSender
	adminEmail    string
	countryPrefix string
	location      *time.Location
	emailTmpl     *template.Template
	logger        *zap.Logger

	wg sync.WaitGroup
}

func NewSenderService(mailer EmailSender, sms SMSSender, adminEmail, countryPrefix string, location *time.Location, logger *zap.Logger) (*SenderService, error) {
	tmpl, err := template.ParseFS(templates.FS, "appointment_email.html")
	if err != nil {
		return nil, fmt.Errorf("parse email template: %w", err)
	}
	if location == nil {
		location = time.Local
	}
	return &SenderService{
		mailer:        mailer,
		sms:           sms,
		adminEmail:    adminEmail,
		countryPrefix: countryPrefix,
		location:      location,
		emailTmpl:     tmpl,
		logger:        logger,
	}, nil
}

func (s *SenderService) AppointmentConfirmed(a db.Appointment) {
	data := s.notificationData(a)
	if s.sms != nil {
		s.async(func() error { return s.sms.SendSMS(utils.ToE164(a.CustomerPhone, s.countryPrefix), confirmationSMS(data)) }, "sms", a.ID)
	}
	if s.mailer != nil && s.adminEmail != "" {
		subject, plain, html, err := s.adminEmailContent(data)
		if err != nil {
			s.logger.Error("Could not render admin email", zap.String("appointment_id", a.ID), zap.Error(err))
			return
		}
		s.async(func() error { return s.mailer.SendEmail(s.adminEmail, "Salon admin", subject, plain, html) }, "email", a.ID)
	}
}

// Wait blocks until in-flight notifications are done. Used on shutdown.
func (s *SenderService) Wait() {
	s.wg.Wait()
}

func (s *SenderService) async(send func() error, channel, appointmentID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := send(); err != nil {
			s.logger.Warn("Notification failed", zap.String("channel", channel), zap.String("appointment_id", appointmentID), zap.Error(err))
		}
	}()
}

func (s *SenderService) notificationData(a db.Appointment) entities.AppointmentNotification {
	data := entities.AppointmentNotification{
		AppointmentID:    a.ID,
		CustomerName:     a.CustomerName,
		CustomerPhone:    a.CustomerPhone,
		DateFormatted:    a.Date,
		Time:             a.Time,
		AppliedCoupon:    a.AppliedCouponCode,
		IssuedCouponCode: a.IssuedCouponCode,
		CurrentYear:      time.Now().In(s.location).Year(),
	}
	if day, err := time.Parse(db.DateLayout, a.Date); err == nil {
		data.DateFormatted = day.Format("Mon 02 Jan 2006")
	}
	if a.DiscountApplied {
		data.Discount = describeDiscount(db.DiscountSpec{Type: a.DiscountType, Value: a.DiscountValue})
	}
	return data
}

func (s *SenderService) adminEmailContent(data entities.AppointmentNotification) (string, string, string, error) {
	subject := fmt.Sprintf("New appointment: %s %s - %s", data.DateFormatted, data.Time, data.CustomerName)
	plain := fmt.Sprintf("%s booked %s at %s.\nPhone: %s\nAppointment: %s\n",
		data.CustomerName, data.DateFormatted, data.Time, data.CustomerPhone, data.AppointmentID)
	if data.AppliedCoupon != "" {
		plain += fmt.Sprintf("Coupon redeemed: %s (%s)\n", data.AppliedCoupon, data.Discount)
	}
	if data.IssuedCouponCode != "" {
		plain += fmt.Sprintf("Reward coupon issued: %s\n", data.IssuedCouponCode)
	}

	var html bytes.Buffer
	if err := s.emailTmpl.Execute(&html, data); err != nil {
		return "", "", "", err
	}
	return subject, plain, html.String(), nil
}

func confirmationSMS(data entities.AppointmentNotification) string {
	msg := fmt.Sprintf("Hi %s, your appointment on %s at %s is confirmed.", data.CustomerName, data.DateFormatted, data.Time)
	if data.Discount != "" {
		msg += " Discount applied: " + data.Discount + "."
	}
	if data.IssuedCouponCode != "" {
		msg += " Your coupon for next time: " + data.IssuedCouponCode
	}
	return msg
}

func describeDiscount(d db.DiscountSpec) string {
	if d.Type == db.DiscountTypePercentage {
		return d.Value.String() + "% off"
	}
	return d.Value.StringFixed(2) + " off"
}
