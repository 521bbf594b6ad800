//go:build !darwin

package exportfs

import "time"

// Creation time is not settable through the standard file API here.
func setFileCreationTime(string, time.Time) error { return nil }
