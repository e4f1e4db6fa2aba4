package parse

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"lab-reservation-backend/internal/apperr"
	"lab-reservation-backend/internal/model"
)

var (
	// zoneRe matches an explicit UTC offset or Z suffix.
	zoneRe = regexp.MustCompile(`(?i)(z|[+-]\d{2}:?\d{2})$`)

	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04:05-0700",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// ParseInstant parses an ISO-8601 timestamp. Values without a zone are read in loc
// (UTC when loc is nil). The result is always in UTC.
func ParseInstant(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, apperr.Validation("timestamp is required")
	}
	if loc == nil {
		loc = time.UTC
	}

	if zoneRe.MatchString(s) && len(s) > len("2006-01-02") {
		for _, layout := range zonedLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
	} else {
		for _, layout := range localLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t.UTC(), nil
			}
		}
	}
	return time.Time{}, apperr.Validation("invalid timestamp %q: use ISO-8601, e.g. 2025-02-10T09:00:00Z", raw)
}

// ParseInterval parses a [start, end) pair and checks that end is after start.
func ParseInterval(startRaw, endRaw string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := ParseInstant(startRaw, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	end, err := ParseInstant(endRaw, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, apperr.Validation("end %s must be after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return start, end, nil
}

// ParseStatus normalizes a status string ("approved", " APPROVED ") and
// rejects unknown values with apperr.ErrInvalidStatus.
func ParseStatus(raw string) (model.ReservationStatus, error) {
	status := model.ReservationStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", apperr.ErrInvalidStatus, raw)
	}
	return status, nil
}
