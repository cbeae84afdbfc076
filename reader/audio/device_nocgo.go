//go:build nocgo

package audio

import "time"

// OpenDevice always fails in builds without cgo.
func OpenDevice(sampleRate int, buffer time.Duration) (Device, error) {
	return nil, ErrNoDevice
}
