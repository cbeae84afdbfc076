package reader

import "slices"

// Status represents the derived playback status of the engine.
type Status int

const (
	// StatusIdle indicates nothing is selected.
	StatusIdle Status = iota
	// StatusReady indicates a bubble is selected and playback is stopped.
	StatusReady
	// StatusPlaying indicates a channel is active or an advance is pending.
	StatusPlaying
	// StatusPaused indicates playback was stopped by the user.
	StatusPaused
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusReady:
		return "ready"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// ChannelKind tells which kind of channel is producing sound.
type ChannelKind int

const (
	ChannelNone ChannelKind = iota
	ChannelAudio
	ChannelSpeech
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelAudio:
		return "audio"
	case ChannelSpeech:
		return "speech"
	default:
		return "none"
	}
}

// PlaybackState is a snapshot of the engine state.
type PlaybackState struct {
	Page     int
	BubbleID string // empty when nothing is selected
	Playing  bool
	Speed    float64
	Errors   []*PlaybackError
	Status   Status
	Channel  ChannelKind
}

// CanPause returns true if playback can be paused.
func (s PlaybackState) CanPause() bool {
	return s.Playing
}

// StateMachine validates status transitions of the engine.
type StateMachine struct {
	current     Status
	transitions map[Status][]Status
}

// NewStateMachine creates a new state machine with valid transitions.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StatusIdle,
		transitions: map[Status][]Status{
			StatusIdle:    {StatusReady, StatusPlaying},
			StatusReady:   {StatusPlaying, StatusIdle},
			StatusPlaying: {StatusPaused, StatusReady, StatusIdle},
			StatusPaused:  {StatusPlaying, StatusReady, StatusIdle},
		},
	}
}

// Transition attempts to move to the given status. Moving to the current
// status is a no-op that succeeds.
func (sm *StateMachine) Transition(to Status) bool {
	if to == sm.current {
		return true
	}
	if !slices.Contains(sm.transitions[sm.current], to) {
		return false
	}
	sm.current = to
	return true
}

// Current returns the current status.
func (sm *StateMachine) Current() Status {
	return sm.current
}
