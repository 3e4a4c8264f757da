package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"salonbooking/internal/db"
	"salonbooking/internal/utils"
)

type IssuePolicy string

const (
	// IssueAlways gives every confirmed booking a fresh coupon, including
	// bookings that redeemed one (chained rewards).
	IssueAlways IssuePolicy = "always"
	// IssueUnredeemed gives a coupon only to bookings that did not redeem one.
	IssueUnredeemed IssuePolicy = "unredeemed"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	CORSOrigins []string

	JWTSecret     string
	AdminUsername string
	AdminPassword string

	BookingTimeout time.Duration
	Location       *time.Location

	CouponCodeLength  int
	CouponMaxAttempts int
	Discount          db.DiscountSpec
	IssuePolicy       IssuePolicy

	SlotTimes    []string
	SlotSeedDays int
	SlotWeekdays []time.Weekday
	SeedCron     string
	FinishCron   string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	AdminNotifyEmail  string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	SMSCountryPrefix string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can feed a map.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:              get("PORT", "8080"),
		Environment:       get("ENV", "development"),
		DatabaseURL:       get("DATABASE_URL", ""),
		JWTSecret:         get("JWT_SECRET", ""),
		AdminUsername:     get("ADMIN_USERNAME", "admin"),
		AdminPassword:     get("ADMIN_PASSWORD", ""),
		IssuePolicy:       IssuePolicy(get("COUPON_ISSUE_POLICY", string(IssueAlways))),
		SeedCron:          get("SEED_CRON", "0 3 * * *"),
		FinishCron:        get("FINISH_CRON", "*/30 * * * *"),
		SendGridAPIKey:    get("SENDGRID_API_KEY", ""),
		SendGridFromEmail: get("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  get("SENDGRID_FROM_NAME", "Salon Booking"),
		AdminNotifyEmail:  get("ADMIN_NOTIFY_EMAIL", ""),
		TwilioAccountSID:  get("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   get("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:  get("TWILIO_FROM_NUMBER", ""),
		SMSCountryPrefix:  get("SMS_COUNTRY_PREFIX", ""),
	}

	for _, origin := range strings.Split(get("CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	var err error
	if cfg.BookingTimeout, err = time.ParseDuration(get("BOOKING_TIMEOUT", "5s")); err != nil {
		return nil, fmt.Errorf("BOOKING_TIMEOUT: %w", err)
	}
	if cfg.Location, err = time.LoadLocation(get("SERVICE_TIMEZONE", "Local")); err != nil {
		return nil, fmt.Errorf("SERVICE_TIMEZONE: %w", err)
	}
	if cfg.CouponCodeLength, err = strconv.Atoi(get("COUPON_CODE_LENGTH", "8")); err != nil || cfg.CouponCodeLength < 6 {
		return nil, fmt.Errorf("COUPON_CODE_LENGTH must be an integer >= 6")
	}
	if cfg.CouponMaxAttempts, err = strconv.Atoi(get("COUPON_MAX_ATTEMPTS", "5")); err != nil || cfg.CouponMaxAttempts < 1 {
		return nil, fmt.Errorf("COUPON_MAX_ATTEMPTS must be a positive integer")
	}
	if cfg.SlotSeedDays, err = strconv.Atoi(get("SLOT_SEED_DAYS", "14")); err != nil || cfg.SlotSeedDays < 0 {
		return nil, fmt.Errorf("SLOT_SEED_DAYS must be a non-negative integer")
	}

	cfg.Discount.Type = db.DiscountType(get("COUPON_DISCOUNT_TYPE", string(db.DiscountTypePercentage)))
	if cfg.Discount.Type != db.DiscountTypePercentage && cfg.Discount.Type != db.DiscountTypeFlat {
		return nil, fmt.Errorf("COUPON_DISCOUNT_TYPE must be %q or %q", db.DiscountTypePercentage, db.DiscountTypeFlat)
	}
	if cfg.Discount.Value, err = decimal.NewFromString(get("COUPON_DISCOUNT_VALUE", "10")); err != nil {
		return nil, fmt.Errorf("COUPON_DISCOUNT_VALUE: %w", err)
	}
	if !cfg.Discount.Value.IsPositive() {
		return nil, fmt.Errorf("COUPON_DISCOUNT_VALUE must be positive")
	}
	if cfg.Discount.Type == db.DiscountTypePercentage && cfg.Discount.Value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("COUPON_DISCOUNT_VALUE cannot exceed 100 for percentage discounts")
	}

	if cfg.IssuePolicy != IssueAlways && cfg.IssuePolicy != IssueUnredeemed {
		return nil, fmt.Errorf("COUPON_ISSUE_POLICY must be %q or %q", IssueAlways, IssueUnredeemed)
	}

	if cfg.SlotTimes, err = utils.ParseTimeLabels(get("SLOT_TIMES", "09:00,10:00,11:00,13:00,14:00,15:00")); err != nil {
		return nil, fmt.Errorf("SLOT_TIMES: %w", err)
	}
	if cfg.SlotWeekdays, err = parseWeekdays(get("SLOT_WEEKDAYS", "1-6")); err != nil {
		return nil, fmt.Errorf("SLOT_WEEKDAYS: %w", err)
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "development-secret"
	}
	if cfg.AdminPassword == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("ADMIN_PASSWORD is required in production")
		}
		cfg.AdminPassword = "admin123"
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// parseWeekdays accepts "1-6" or "1,2,3" with 0 = Sunday.
func parseWeekdays(spec string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi := part, part
		if i := strings.Index(part, "-"); i > 0 {
			lo, hi = part[:i], part[i+1:]
		}
		from, err := strconv.Atoi(lo)
		if err != nil {
			return nil, err
		}
		to, err := strconv.Atoi(hi)
		if err != nil {
			return nil, err
		}
		if from < 0 || to > 6 || from > to {
			return nil, fmt.Errorf("weekday range %q out of bounds", part)
		}
		for d := from; d <= to; d++ {
			days = append(days, time.Weekday(d))
		}
	}
	return days, nil
}
