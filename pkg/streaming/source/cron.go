package source

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts standard five-field expressions, an optional leading
// seconds field and descriptors such as "@every 1s" or "@hourly".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateCron reports whether expr is a valid cron expression.
func ValidateCron(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Cron yields the activation time of each firing of expr, n times. A
// non-positive n never ends.
func Cron(expr string, n int) (Source[time.Time], error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return FromSchedule(schedule, n), nil
}

// FromSchedule is Cron with an already parsed schedule.
func FromSchedule(schedule cron.Schedule, n int) Source[time.Time] {
	left := n
	if left <= 0 {
		left = -1
	}
	return &cronSource{schedule: schedule, left: left, now: time.Now}
}

type cronSource struct {
	schedule cron.Schedule
	left     int
	now      func() time.Time
}

func (s *cronSource) Next(ctx context.Context) (time.Time, bool, error) {
	if s.left == 0 {
		return time.Time{}, false, nil
	}

	now := s.now()
	next := s.schedule.Next(now)
	if next.IsZero() {
		// The schedule will never fire again.
		return time.Time{}, false, nil
	}
	if err := sleep(ctx, next.Sub(now)); err != nil {
		return time.Time{}, false, err
	}

	if s.left > 0 {
		s.left--
	}
	return next, true, nil
}

func (s *cronSource) Close() error {
	return nil
}
