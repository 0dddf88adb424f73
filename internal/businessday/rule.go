package businessday

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	apperrors "github.com/aidosgk/kaspi-orders-backend/pkg/errors"
)

// Mode selects how raw timestamps are attributed to business days.
type Mode string

const (
	// ModeShift buckets a timestamp by subtracting the cutoff offset, so a
	// business day runs from cutoff to cutoff.
	ModeShift Mode = "shift"

	// ModeCutoff keeps the calendar date for anything at or before the
	// cutoff and rolls later orders forward to the next day.
	ModeCutoff Mode = "cutoff"
)

var cutoffRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// Rule describes how order timestamps map onto business-day buckets.
type Rule struct {
	Cutoff       time.Duration
	LookbackDays int
	Location     *time.Location
}

// NewRule builds a Rule from raw settings values.
func NewRule(cutoff string, lookbackDays int, timezone string) (Rule, error) {
	offset, err := ParseCutoff(cutoff)
	if err != nil {
		return Rule{}, err
	}
	if lookbackDays < 0 {
		return Rule{}, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("lookback days must be >= 0, got %d", lookbackDays))
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Rule{}, apperrors.Wrap(apperrors.CodeValidation, err, fmt.Sprintf("unknown timezone %q", timezone))
	}
	return Rule{Cutoff: offset, LookbackDays: lookbackDays, Location: loc}, nil
}

// ParseCutoff parses an "HH:MM" cutoff into an offset from midnight.
func ParseCutoff(value string) (time.Duration, error) {
	m := cutoffRe.FindStringSubmatch(value)
	if m == nil {
		return 0, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("cutoff %q must be HH:MM", value))
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	if hours > 23 || minutes > 59 {
		return 0, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("cutoff %q is out of range", value))
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
}

func (r Rule) loc() *time.Location {
	if r.Location != nil {
		return r.Location
	}
	return time.UTC
}

// Bucket attributes a timestamp to a business day under the given mode. The
// returned time is midnight of the bucket date in the rule's location.
func (r Rule) Bucket(t time.Time, mode Mode) time.Time {
	if mode == ModeCutoff {
		return r.cutoffBucket(t)
	}
	return r.shiftBucket(t)
}

// shiftBucket moves the whole day window back by the cutoff offset, so an
// order at 01:30 with a 20:00 cutoff still belongs to the previous date.
func (r Rule) shiftBucket(t time.Time) time.Time {
	local := t.In(r.loc()).Add(-r.Cutoff)
	return midnight(local)
}

// cutoffBucket keeps the calendar date when the local time is at or before
// the cutoff, and rolls anything later forward to the next day.
func (r Rule) cutoffBucket(t time.Time) time.Time {
	local := t.In(r.loc())
	day := midnight(local)
	if local.Sub(day) <= r.Cutoff {
		return day
	}
	return day.AddDate(0, 0, 1)
}

// QueryWindow returns the inclusive instant range to request from the
// upstream API so that every order bucketed into [start, end] is covered.
// The window is deliberately wide; callers re-filter by bucket.
func (r Rule) QueryWindow(start, end time.Time, mode Mode) (time.Time, time.Time, error) {
	startDay := midnight(start.In(r.loc()))
	endDay := midnight(end.In(r.loc()))
	if endDay.Before(startDay) {
		return time.Time{}, time.Time{}, apperrors.New(apperrors.CodeInvalidRange,
			fmt.Sprintf("range end %s is before start %s", endDay.Format(DateLayout), startDay.Format(DateLayout)))
	}

	if mode == ModeCutoff {
		from := startDay.AddDate(0, 0, -(r.LookbackDays + 1)).Add(r.Cutoff)
		to := endDay.Add(r.Cutoff)
		return from, to, nil
	}

	from := startDay.Add(r.Cutoff)
	to := endDay.AddDate(0, 0, 1).Add(r.Cutoff)
	return from, to, nil
}

// DateLayout is the wire format for business-day dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date as midnight in the rule's location.
func (r Rule) ParseDate(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(DateLayout, value, r.loc())
	if err != nil {
		return time.Time{}, apperrors.Wrap(apperrors.CodeValidation, err, fmt.Sprintf("date %q must be YYYY-MM-DD", value))
	}
	return parsed, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
