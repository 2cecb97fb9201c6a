package overstay

import (
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/gatex/internal/database"
)

// AlertSubject is the subject line of every overstay alert.
const AlertSubject = "Gatex Visitor Alert !"

// FormatAlert renders the alert for one session.
func FormatAlert(s *database.VisitorSession, loc database.Location, threshold time.Duration, zone *time.Location) (subject, body string) {
	var b strings.Builder
	b.WriteString(AlertSubject + "\n\n")
	fmt.Fprintf(&b, "A person is inside of Batch ID: %s\n", s.BatchID)
	fmt.Fprintf(&b, "Project Name: %s,\n", loc.ProjectName)
	fmt.Fprintf(&b, "Building Name: %s\n", loc.BuildingName)
	fmt.Fprintf(&b, "Entered at: %s\n\n", s.EntryTime.In(zone).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "for more than %s.\n", humanDuration(threshold))
	return AlertSubject, b.String()
}

// humanDuration renders whole hours and minutes, e.g. "2 hours" or "90 minutes".
func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	m := int(d.Round(time.Minute) / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
