package reader

import (
	"errors"
	"fmt"
	"time"
)

// Common errors of the reader.
var (
	// Navigation errors
	ErrNothingToPlay  = errors.New("chapter has no playable bubbles")
	ErrUnknownBubble  = errors.New("unknown bubble")
	ErrPageOutOfRange = errors.New("page index out of range")
	ErrInvalidSpeed   = errors.New("invalid playback speed")

	// Channel errors
	ErrNoAudio           = errors.New("bubble has no audio")
	ErrNoAudioOutput     = errors.New("audio output is not available")
	ErrSpeechUnavailable = errors.New("speech synthesis is not available")
	ErrEmptyText         = errors.New("bubble has no text to speak")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrorKind classifies errors recorded in the playback state.
type ErrorKind int

const (
	// KindNetwork is a failed chapter fetch. The next poll retries.
	KindNetwork ErrorKind = iota
	// KindAudio is a native audio failure that fell back to speech.
	KindAudio
	// KindSpeech is a speech failure. Playback of the bubble stopped.
	KindSpeech
	// KindState is an inconsistent selection resolved by snapping.
	KindState
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAudio:
		return "audio"
	case KindSpeech:
		return "speech"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// PlaybackError is an entry of the user visible error list.
type PlaybackError struct {
	Kind     ErrorKind
	BubbleID string
	Err      error
	Fatal    bool // playback of the bubble stopped
	Time     time.Time
}

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.BubbleID != "" {
		return fmt.Sprintf("%s: bubble %s: %s", e.Kind, e.BubbleID, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying error.
func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// NewPlaybackError creates a playback error stamped with the current time.
func NewPlaybackError(kind ErrorKind, bubbleID string, err error) *PlaybackError {
	return &PlaybackError{
		Kind:     kind,
		BubbleID: bubbleID,
		Err:      err,
		Fatal:    kind == KindSpeech,
		Time:     time.Now(),
	}
}

// IsFatal reports whether err stopped playback of a bubble.
func IsFatal(err error) bool {
	var pe *PlaybackError
	if errors.As(err, &pe) {
		return pe.Fatal
	}
	return false
}
