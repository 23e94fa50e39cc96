package wizard

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ParseClock returns minutes since midnight for "HH:MM" (seconds, if present, are ignored).
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes as zero-padded HH:MM. Values past 24:00 are not wrapped.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// EndTime adds a duration in minutes to an HH:MM start.
// A booking that runs past midnight yields hours >= 24 ("23:30" + 45 = "24:15").
func EndTime(start string, durationMinutes int) (string, error) {
	m, err := ParseClock(start)
	if err != nil {
		return "", err
	}
	return FormatClock(m + durationMinutes), nil
}

// Slot is a selectable start time: Value is "HH:MM", Label is "3:04 PM" style.
type Slot struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// TimeSlots lists every step minutes from `from` through `to` inclusive.
func TimeSlots(from, to, step int) []Slot {
	if step <= 0 || to < from {
		return nil
	}
	slots := make([]Slot, 0, (to-from)/step+1)
	for m := from; m <= to; m += step {
		slots = append(slots, Slot{Value: FormatClock(m), Label: clockLabel(m)})
	}
	return slots
}

// BookingSlots is the booking grid: 10:00 to 17:00 every 15 minutes.
func BookingSlots() []Slot {
	return TimeSlots(10*60, 17*60, 15)
}

// IsBookingSlot reports whether start ("HH:MM") is one of BookingSlots.
func IsBookingSlot(start string) bool {
	return slices.ContainsFunc(BookingSlots(), func(sl Slot) bool { return sl.Value == start })
}

func clockLabel(minutes int) string {
	return time.Date(2000, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format("3:04 PM")
}
