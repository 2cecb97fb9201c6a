package database

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kozaktomas/gatex/internal/fact"
)

// Directory is a read-only snapshot of the device -> customer contact and
// device -> location mappings, loaded once per overstay sweep.
type Directory struct {
	contacts  map[string]string
	locations []Location
}

// NewDirectory indexes customers by their (zero-padded) device IDs. When a
// device is listed by several customers the first one wins.
func NewDirectory(customers []Customer, locations []Location) *Directory {
	d := &Directory{contacts: make(map[string]string)}
	for _, c := range customers {
		for _, dev := range c.DeviceIDs {
			key := fact.PadDeviceID(dev)
			if _, exists := d.contacts[key]; !exists && c.ContactEmail != "" {
				d.contacts[key] = c.ContactEmail
			}
		}
	}
	for _, l := range locations {
		padded := make([]string, len(l.DeviceIDs))
		for i, dev := range l.DeviceIDs {
			padded[i] = fact.PadDeviceID(dev)
		}
		d.locations = append(d.locations, Location{ProjectName: l.ProjectName, BuildingName: l.BuildingName, DeviceIDs: padded})
	}
	return d
}

// Contact returns the customer contact email for a device.
func (d *Directory) Contact(deviceID string) (string, bool) {
	email, ok := d.contacts[fact.PadDeviceID(deviceID)]
	return email, ok
}

// Location returns the first location whose device list contains deviceID.
func (d *Directory) Location(deviceID string) (Location, bool) {
	key := fact.PadDeviceID(deviceID)
	for _, l := range d.locations {
		for _, dev := range l.DeviceIDs {
			if dev == key {
				return l, true
			}
		}
	}
	return UnknownLocation, false
}

// ParseDeviceList decodes a JSON device list column. Entries may be strings
// or numbers, e.g. ["000111", 112].
func ParseDeviceList(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode device list: %w", err)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(item, &n); err != nil {
			return nil, fmt.Errorf("decode device list entry %s: %w", string(item), err)
		}
		if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
			return nil, fmt.Errorf("device list entry %s is not an integer", n.String())
		}
		out = append(out, n.String())
	}
	return out, nil
}
