// Package capture defines the external collaborators that feed media and text
// into a collection: camera, OCR, speech transcription and audio recording.
// Implementations live outside the core; the types here are the contract plus
// small deterministic helpers and file-backed stand-ins.
package capture

import (
	"errors"
	"fmt"
)

// Device names a capture facility guarded by an OS permission.
type Device string

const (
	DeviceCamera     Device = "camera"
	DeviceMicrophone Device = "microphone"
	DeviceSpeech     Device = "speech"
)

// Permission is the authorisation state reported for a device.
type Permission int

const (
	PermissionUndetermined Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "undetermined"
	}
}

// Usable reports whether the collaborator may be invoked.
func (p Permission) Usable() bool { return p == PermissionGranted }

// ErrPermissionDenied is returned when a device is not authorised.
var ErrPermissionDenied = errors.New("permission denied")

// Permissions reports the authorisation state of each device.
type Permissions interface {
	Status(Device) Permission
}

// StaticPermissions answers from a fixed map; missing devices are undetermined.
type StaticPermissions map[Device]Permission

// Status implements Permissions.
func (s StaticPermissions) Status(d Device) Permission { return s[d] }

// Require returns nil when d is usable under p.
func Require(p Permissions, d Device) error {
	if p == nil {
		return nil
	}
	if st := p.Status(d); !st.Usable() {
		return fmt.Errorf("%s: %w (%s)", d, ErrPermissionDenied, st)
	}
	return nil
}
