// Package fact parses the identifiers that capture devices give to uploaded
// images and resolves which role the capturing camera plays at the gate.
package fact

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DeviceIDWidth is the fixed width of a device identifier.
const DeviceIDWidth = 6

// ErrMalformedIdentifier is matched by every identifier parse failure. A
// malformed identifier is a producer-side bug and must not be retried.
var ErrMalformedIdentifier = errors.New("malformed identifier")

// MalformedIdentifierError describes an identifier that does not match the
// <device>batch<n>camera<n>_YYYY_MM_DD_HH_MM_SS grammar.
type MalformedIdentifierError struct {
	Input  string
	Reason string
}

func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("malformed identifier %q: %s", e.Input, e.Reason)
}

func (e *MalformedIdentifierError) Is(target error) bool {
	return target == ErrMalformedIdentifier
}

var identifierRe = regexp.MustCompile(
	`^(\d{6})batch(\d+)camera(\d+)_(\d{4})_(\d{2})_(\d{2})_(\d{2})_(\d{2})_(\d{2})(?:\.(?i:jpe?g|png))?$`,
)

// Identifier is the structured form of an image identifier.
type Identifier struct {
	DeviceID string
	BatchID  string
	Camera   int
	Year     int
	Month    int
	Day      int
	Hour     int
	Minute   int
	Second   int
}

// Parse parses an image identifier. A leading directory prefix (object key
// path) is ignored.
func Parse(identifier string) (Identifier, error) {
	base := path.Base(strings.TrimSpace(identifier))
	m := identifierRe.FindStringSubmatch(base)
	if m == nil {
		return Identifier{}, &MalformedIdentifierError{Input: identifier, Reason: "does not match <device>batch<n>camera<n>_<timestamp>"}
	}

	nums := make([]int, 0, 7)
	for _, s := range m[3:] {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Identifier{}, &MalformedIdentifierError{Input: identifier, Reason: "number out of range"}
		}
		nums = append(nums, n)
	}

	batch := strings.TrimLeft(m[2], "0")
	if batch == "" {
		batch = "0"
	}

	id := Identifier{
		DeviceID: m[1],
		BatchID:  batch,
		Camera:   nums[0],
		Year:     nums[1],
		Month:    nums[2],
		Day:      nums[3],
		Hour:     nums[4],
		Minute:   nums[5],
		Second:   nums[6],
	}

	// time.Date normalizes overflowing fields, so a round-trip comparison
	// catches dates such as February 30th.
	t := id.CaptureTime(time.UTC)
	if t.Year() != id.Year || int(t.Month()) != id.Month || t.Day() != id.Day ||
		t.Hour() != id.Hour || t.Minute() != id.Minute || t.Second() != id.Second {
		return Identifier{}, &MalformedIdentifierError{Input: identifier, Reason: "timestamp is not a valid calendar time"}
	}

	return id, nil
}

// CaptureTime returns the capture timestamp as wall-clock time in loc.
func (id Identifier) CaptureTime(loc *time.Location) time.Time {
	return time.Date(id.Year, time.Month(id.Month), id.Day, id.Hour, id.Minute, id.Second, 0, loc)
}

// String renders the identifier in canonical form, without extension.
func (id Identifier) String() string {
	return fmt.Sprintf("%sbatch%scamera%d_%04d_%02d_%02d_%02d_%02d_%02d",
		id.DeviceID, id.BatchID, id.Camera, id.Year, id.Month, id.Day, id.Hour, id.Minute, id.Second)
}

// Format builds the object key a capture device uploads for one camera shot.
func Format(deviceID, batchID string, camera int, t time.Time) string {
	return fmt.Sprintf("%sbatch%scamera%d_%s.jpeg", PadDeviceID(deviceID), batchID, camera, t.Format("2006_01_02_15_04_05"))
}

// PadDeviceID zero-pads a numeric device id to DeviceIDWidth. Non-numeric
// ids are returned trimmed but otherwise unchanged.
func PadDeviceID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return id
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return id
		}
	}
	if len(id) >= DeviceIDWidth {
		return id
	}
	return strings.Repeat("0", DeviceIDWidth-len(id)) + id
}
