package fact

import (
	"errors"
	"fmt"
)

// Role is what a camera slot contributes to a visitor session.
type Role string

const (
	RoleID    Role = "id"    // ID-card text; also the exit camera
	RoleFace  Role = "face"  // cropped face thumbnail
	RolePlate Role = "plate" // vehicle plate text
)

// ErrUnknownCamera is returned for camera numbers absent from the role table.
var ErrUnknownCamera = errors.New("unknown camera")

// CameraRoles maps camera numbers to roles. Camera roles vary by site, so the
// table comes from configuration.
type CameraRoles map[int]Role

// NewCameraRoles converts a configured number->role table.
func NewCameraRoles(table map[int]string) CameraRoles {
	roles := make(CameraRoles, len(table))
	for num, role := range table {
		roles[num] = Role(role)
	}
	return roles
}

// RoleOf returns the role of the camera that produced id.
func (c CameraRoles) RoleOf(id Identifier) (Role, error) {
	role, ok := c[id.Camera]
	if !ok {
		return "", fmt.Errorf("%w: camera %d on device %s", ErrUnknownCamera, id.Camera, id.DeviceID)
	}
	return role, nil
}
