// Package notify announces newly opened slots: a GitHub issue for the
// paper trail and web push for subscribed browsers.
package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"slotwatch-backend/internal/model"
)

// IssueTitle builds the notification issue title from the batch of new
// slots.
func IssueTitle(slots []model.Slot) string {
	earliest := slots[0].Date
	for _, s := range slots[1:] {
		if s.Date < earliest {
			earliest = s.Date
		}
	}
	return fmt.Sprintf("%d New Appointment Slot(s) Available - %s", len(slots), earliest)
}

// IssueBody renders the new slots as markdown, grouped by date and
// sorted by time within each date. bookingURL, when set, is appended
// as a quick link.
func IssueBody(slots []model.Slot, detectedAt time.Time, bookingURL string) string {
	lines := []string{
		"## New Appointment Slots Detected",
		"",
		fmt.Sprintf("**Detected at:** %s UTC", detectedAt.UTC().Format("2006-01-02 15:04:05")),
		"",
		"### Available Slots",
		"",
	}

	byDate := make(map[string][]model.Slot)
	for _, s := range slots {
		byDate[s.Date] = append(byDate[s.Date], s)
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	for _, d := range dates {
		lines = append(lines, "#### "+d)
		daySlots := byDate[d]
		sort.SliceStable(daySlots, func(i, j int) bool { return daySlots[i].Time < daySlots[j].Time })
		for _, s := range daySlots {
			details := []string{fmt.Sprintf("**%s**", s.Time)}
			if s.Provider != nil && *s.Provider != "" {
				details = append(details, "Provider: "+*s.Provider)
			}
			if s.Department != nil && *s.Department != "" {
				details = append(details, "Dept: "+*s.Department)
			}
			lines = append(lines, "- "+strings.Join(details, " | "))
		}
		lines = append(lines, "")
	}

	if bookingURL != "" {
		lines = append(lines,
			"---",
			"",
			"### Quick Links",
			"",
			fmt.Sprintf("[Book Appointment](%s)", bookingURL),
			"",
		)
	}
	lines = append(lines,
		"---",
		"*This issue was automatically created by the slot watcher.*",
	)

	return strings.Join(lines, "\n")
}

// PushMessage is the short text sent to web push subscribers.
func PushMessage(slots []model.Slot) string {
	if len(slots) == 1 {
		return "New appointment slot: " + slots[0].DisplayString()
	}
	return fmt.Sprintf("%d new appointment slots, earliest %s", len(slots), earliestDisplay(slots))
}

func earliestDisplay(slots []model.Slot) string {
	best := slots[0]
	for _, s := range slots[1:] {
		if s.Date < best.Date || (s.Date == best.Date && s.Time < best.Time) {
			best = s
		}
	}
	return best.Date + " at " + best.Time
}
