package utils

import (
	"fmt"
	"strings"
	"time"
)

// NormalizeTimeLabel accepts "10:00", "9:00", "9:00 AM" or "3:00 PM" and
// returns the zero padded 24h label used as slot key ("09:00", "15:00").
func NormalizeTimeLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	for _, layout := range []string{"15:04", "3:04 PM", "3:04PM", "03:04 PM"} {
		if t, err := time.Parse(layout, strings.ToUpper(label)); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("invalid time label %q", label)
}

// NormalizeDate checks a calendar day in "2006-01-02" form.
func NormalizeDate(date string) (string, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return "", fmt.Errorf("invalid date %q", date)
	}
	return t.Format("2006-01-02"), nil
}

// ParseTimeLabels splits a comma separated list such as the SLOT_TIMES
// setting into normalized, de-duplicated labels.
func ParseTimeLabels(csv string) ([]string, error) {
	seen := make(map[string]bool)
	var labels []string
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		label, err := NormalizeTimeLabel(part)
		if err != nil {
			return nil, err
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels, nil
}

// MonthRange returns the first and last day of a "2006-01" month.
func MonthRange(month string) (string, string, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return "", "", fmt.Errorf("invalid month %q", month)
	}
	end := start.AddDate(0, 1, -1)
	return start.Format("2006-01-02"), end.Format("2006-01-02"), nil
}
