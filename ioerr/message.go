package ioerr

import (
	"errors"
	"fmt"
)

// UserMessage turns err into text suitable for showing to a person.
// It is presentation only; control flow must use KindOf or errors.Is.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Sprintf("An error occurred: %v", err)
	}
	switch e.Kind {
	case KindPermissionDenied:
		if errors.Is(e, ErrReadOnly) {
			return "The volume is mounted read-only. Remount it read-write to make changes."
		}
		return "Permission denied. Please grant Full Disk Access in System Settings."
	case KindDeviceNotFound:
		if e.Path != "" {
			return fmt.Sprintf("Device '%s' not found. Is it connected?", e.Path)
		}
		return "Device not found. Is it connected?"
	case KindFlushFailed:
		return "Changes could not be saved to the disk. Do not remove the device until it has been ejected."
	default:
		return fmt.Sprintf("An error occurred: %v", e)
	}
}
