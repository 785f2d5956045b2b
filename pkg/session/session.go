// Package session models the live set owned by the host: tracks, clip slots,
// devices, scenes and transport state.
//
// Mutating methods must only be called from the host loop (workers reach them
// through the scheduler). Read methods may be called from any goroutine; they
// take the read lock so an observation is always a state that existed at some
// instant, even while a mutation is in flight on the host loop.
package session

import (
	"sync"

	"github.com/soundctl/livebridge/pkg/protocol"
)

// TrackKind distinguishes MIDI from audio tracks.
type TrackKind string

const (
	TrackMIDI  TrackKind = "midi"
	TrackAudio TrackKind = "audio"
)

// Note is a single MIDI note inside a clip. Times are in beats.
type Note struct {
	Pitch    int     `json:"pitch"`
	Start    float64 `json:"start_time"`
	Duration float64 `json:"duration"`
	Velocity int     `json:"velocity"`
	Mute     bool    `json:"mute"`
}

// Clip is a MIDI clip living in a session-view slot.
type Clip struct {
	Name    string
	Length  float64
	Looping bool
	Playing bool
	Notes   []Note
}

// ClipSlot holds at most one clip. Slot count always equals the scene count.
type ClipSlot struct {
	Clip *Clip
}

// Device is an instrument or effect loaded on a track.
type Device struct {
	Name      string
	ClassName string
	Kind      string
	Enabled   bool
}

// Scene is a horizontal row of clip slots across all tracks.
type Scene struct {
	Name string
}

// Track is a single track in the set.
type Track struct {
	Name    string
	Kind    TrackKind
	Mute    bool
	Solo    bool
	Arm     bool
	Volume  float64
	Panning float64
	Slots   []*ClipSlot
	Devices []*Device
}

// Session is the live set. It is the single mutation target of the bridge.
type Session struct {
	mu sync.RWMutex

	tempo     float64
	sigNum    int
	sigDen    int
	tracks    []*Track
	returns   []*Track
	master    *Track
	scenes    []*Scene
	playing   bool
	record    bool
	metronome bool
	songTime  float64
	browser   *Browser
}

const defaultSceneCount = 8

// New creates an empty set: 120 BPM, 4/4, eight scenes, no tracks.
func New() *Session {
	s := &Session{
		tempo:   120.0,
		sigNum:  4,
		sigDen:  4,
		master:  &Track{Name: "Master", Volume: 0.85},
		browser: defaultBrowser(),
	}
	for i := 0; i < defaultSceneCount; i++ {
		s.scenes = append(s.scenes, &Scene{})
	}
	return s
}

func outOfRange(what string) *protocol.Error {
	return &protocol.Error{Code: protocol.CodeOutOfRange, Message: what + " index out of range"}
}

// trackAt returns the track at index. Caller must hold the lock.
func (s *Session) trackAt(index int) (*Track, error) {
	if index < 0 || index >= len(s.tracks) {
		return nil, outOfRange("Track")
	}
	return s.tracks[index], nil
}

// slotAt returns a track's clip slot. Caller must hold the lock.
func (s *Session) slotAt(trackIndex, clipIndex int) (*ClipSlot, error) {
	track, err := s.trackAt(trackIndex)
	if err != nil {
		return nil, err
	}
	if clipIndex < 0 || clipIndex >= len(track.Slots) {
		return nil, outOfRange("Clip")
	}
	return track.Slots[clipIndex], nil
}

func newTrack(name string, kind TrackKind, sceneCount int) *Track {
	t := &Track{Name: name, Kind: kind, Volume: 0.85}
	for i := 0; i < sceneCount; i++ {
		t.Slots = append(t.Slots, &ClipSlot{})
	}
	return t
}
