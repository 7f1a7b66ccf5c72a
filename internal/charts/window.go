package charts

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrBadWindow is returned for a window value that is neither "week",
// "month", nor a non-negative integer day count.
var ErrBadWindow = errors.New("invalid window")

// WindowStart resolves a chart window to its starting instant.
//
// "week" starts at midnight of (day-of-month minus weekday, with Sunday
// counted as 7). "month" starts at midnight of the first day of the previous
// calendar month, not a rolling 30 days. Any other value is an integer day
// count back from now.
func WindowStart(window string, now time.Time) (time.Time, error) {
	switch window {
	case "week":
		offset := int(now.Weekday())
		if offset == 0 {
			offset = 7
		}
		y, m, d := now.AddDate(0, 0, -offset).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	case "month":
		y, m, _ := now.Date()
		return time.Date(y, m-1, 1, 0, 0, 0, 0, now.Location()), nil
	default:
		days, err := strconv.Atoi(window)
		if err != nil || days < 0 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrBadWindow, window)
		}
		return now.AddDate(0, 0, -days), nil
	}
}
