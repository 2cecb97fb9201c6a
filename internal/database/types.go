package database

import (
	"time"
)

// Slot is the session column a camera role writes.
type Slot string

const (
	SlotIdentityText  Slot = "identity_text"
	SlotPlateText     Slot = "plate_text"
	SlotFaceThumbnail Slot = "face_thumbnail"
)

// Valid reports whether s names a writable slot column.
func (s Slot) Valid() bool {
	switch s {
	case SlotIdentityText, SlotPlateText, SlotFaceThumbnail:
		return true
	}
	return false
}

// VisitorSession is one physical visit, keyed by batch ID.
type VisitorSession struct {
	DeviceID      string
	BatchID       string
	Date          string // YYYY-MM-DD of EntryTime
	DayOfWeek     string // e.g. "Tuesday"
	EntryTime     time.Time
	ExitTime      *time.Time // nil while the visitor is inside
	IdentityText  *string
	PlateText     *string
	FaceThumbnail []byte // nil when no face was captured
	AlertSent     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Open reports whether the visitor has not exited yet.
func (s *VisitorSession) Open() bool {
	return s.ExitTime == nil
}

// SlotUpdate carries one camera's contribution to a session. EntryTime is
// only used when the update creates the session.
type SlotUpdate struct {
	DeviceID  string
	BatchID   string
	Slot      Slot
	Text      *string // identity_text / plate_text value
	Thumbnail []byte  // face_thumbnail value
	EntryTime time.Time
}

// SlotAssignment returns the SQL expression assigning incoming to a slot
// column on conflict. Text slots are last-writer-wins; the face slot keeps
// current when the incoming crop is NULL.
func SlotAssignment(slot Slot, incoming, current string) string {
	if slot == SlotFaceThumbnail {
		return "COALESCE(" + incoming + ", " + current + ")"
	}
	return incoming
}

// Value returns the column value of the update for its slot.
func (u SlotUpdate) Value() any {
	if u.Slot == SlotFaceThumbnail {
		if u.Thumbnail == nil {
			return nil
		}
		return u.Thumbnail
	}
	if u.Text == nil {
		return nil
	}
	return *u.Text
}

// EntryDate returns the date and weekday columns derived from an entry time.
func EntryDate(entry time.Time) (date, dayOfWeek string) {
	return entry.Format("2006-01-02"), entry.Weekday().String()
}

// Customer is a row of the customer directory.
type Customer struct {
	CustomerID   string
	ContactEmail string
	DeviceIDs    []string
}

// Location is a row of the location directory.
type Location struct {
	ProjectName  string
	BuildingName string
	DeviceIDs    []string
}

// UnknownLocation is substituted when no location lists a device.
var UnknownLocation = Location{ProjectName: "Unknown", BuildingName: "Unknown"}
