package session

import (
	"fmt"

	"github.com/soundctl/livebridge/pkg/protocol"
)

// Results returned by mutating operations. Field names mirror the wire
// vocabulary the bridge has always used.

// TrackCreated is the result of creating a track.
type TrackCreated struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// ClipCreated is the result of creating or duplicating a clip.
type ClipCreated struct {
	TrackIndex int     `json:"track_index"`
	ClipIndex  int     `json:"clip_index"`
	Name       string  `json:"name"`
	Length     float64 `json:"length"`
}

// CreateMIDITrack inserts a MIDI track at index; -1 appends.
func (s *Session) CreateMIDITrack(index int) (*TrackCreated, error) {
	return s.createTrack(index, TrackMIDI)
}

// CreateAudioTrack inserts an audio track at index; -1 appends.
func (s *Session) CreateAudioTrack(index int) (*TrackCreated, error) {
	return s.createTrack(index, TrackAudio)
}

func (s *Session) createTrack(index int, kind TrackKind) (*TrackCreated, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index == -1 {
		index = len(s.tracks)
	}
	if index < 0 || index > len(s.tracks) {
		return nil, outOfRange("Track")
	}

	label := "MIDI"
	if kind == TrackAudio {
		label = "Audio"
	}
	track := newTrack(fmt.Sprintf("%d %s", index+1, label), kind, len(s.scenes))
	s.tracks = append(s.tracks, nil)
	copy(s.tracks[index+1:], s.tracks[index:])
	s.tracks[index] = track

	return &TrackCreated{Index: index, Name: track.Name}, nil
}

// DeleteTrack removes the track at index.
func (s *Session) DeleteTrack(index int) (*TrackCreated, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, err := s.trackAt(index)
	if err != nil {
		return nil, err
	}
	s.tracks = append(s.tracks[:index], s.tracks[index+1:]...)
	return &TrackCreated{Index: index, Name: track.Name}, nil
}

// SetTrackName renames a track and returns the applied name.
func (s *Session) SetTrackName(index int, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, err := s.trackAt(index)
	if err != nil {
		return "", err
	}
	track.Name = name
	return track.Name, nil
}

// SetTrackVolume sets a track's mixer volume (0.0 to 1.0).
func (s *Session) SetTrackVolume(index int, volume float64) (float64, error) {
	if volume < 0 || volume > 1 {
		return 0, protocol.Errorf(protocol.CodeInvalidArgument, "volume %v out of range 0.0-1.0", volume)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	track, err := s.trackAt(index)
	if err != nil {
		return 0, err
	}
	track.Volume = volume
	return track.Volume, nil
}

// SetTrackPanning sets a track's pan position (-1.0 to 1.0).
func (s *Session) SetTrackPanning(index int, panning float64) (float64, error) {
	if panning < -1 || panning > 1 {
		return 0, protocol.Errorf(protocol.CodeInvalidArgument, "panning %v out of range -1.0-1.0", panning)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	track, err := s.trackAt(index)
	if err != nil {
		return 0, err
	}
	track.Panning = panning
	return track.Panning, nil
}

// SetTrackMute sets a track's mute switch.
func (s *Session) SetTrackMute(index int, mute bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, err := s.trackAt(index)
	if err != nil {
		return false, err
	}
	track.Mute = mute
	return track.Mute, nil
}

// SetTrackSolo sets a track's solo switch.
func (s *Session) SetTrackSolo(index int, solo bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, err := s.trackAt(index)
	if err != nil {
		return false, err
	}
	track.Solo = solo
	return track.Solo, nil
}

// SetTrackArm sets a track's record-arm switch.
func (s *Session) SetTrackArm(index int, arm bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, err := s.trackAt(index)
	if err != nil {
		return false, err
	}
	track.Arm = arm
	return track.Arm, nil
}

// SetTempo sets the set tempo in BPM.
func (s *Session) SetTempo(tempo float64) (float64, error) {
	if tempo < 20 || tempo > 999 {
		return 0, protocol.Errorf(protocol.CodeInvalidArgument, "tempo %v out of range 20-999 BPM", tempo)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempo = tempo
	return s.tempo, nil
}

// CreateClip creates an empty MIDI clip in a slot. The slot must be empty.
func (s *Session) CreateClip(trackIndex, clipIndex int, length float64) (*ClipCreated, error) {
	if length <= 0 {
		return nil, protocol.Errorf(protocol.CodeInvalidArgument, "clip length must be positive, got %v", length)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, err := s.slotAt(trackIndex, clipIndex)
	if err != nil {
		return nil, err
	}
	if slot.Clip != nil {
		return nil, protocol.Errorf(protocol.CodePreconditionFailed, "Clip slot already has a clip")
	}
	slot.Clip = &Clip{Length: length, Looping: true}
	return &ClipCreated{TrackIndex: trackIndex, ClipIndex: clipIndex, Name: slot.Clip.Name, Length: length}, nil
}

// SetClipName renames a clip. The slot must hold a clip.
func (s *Session) SetClipName(trackIndex, clipIndex int, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, err := s.clipAt(trackIndex, clipIndex)
	if err != nil {
		return "", err
	}
	clip.Name = name
	return clip.Name, nil
}

// AddNotesToClip appends notes to a clip and returns the number added.
func (s *Session) AddNotesToClip(trackIndex, clipIndex int, notes []Note) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, err := s.clipAt(trackIndex, clipIndex)
	if err != nil {
		return 0, err
	}
	for _, n := range notes {
		if n.Pitch < 0 || n.Pitch > 127 {
			return 0, protocol.Errorf(protocol.CodeInvalidArgument, "note pitch %d out of range 0-127", n.Pitch)
		}
	}
	clip.Notes = append(clip.Notes, notes...)
	return len(notes), nil
}

// SetClipLoop sets a clip's loop switch.
func (s *Session) SetClipLoop(trackIndex, clipIndex int, looping bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, err := s.clipAt(trackIndex, clipIndex)
	if err != nil {
		return false, err
	}
	clip.Looping = looping
	return clip.Looping, nil
}

// DuplicateClip copies a clip into a target slot on the same track;
// targetIndex -1 picks the first empty slot.
func (s *Session) DuplicateClip(trackIndex, clipIndex, targetIndex int) (*ClipCreated, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, err := s.clipAt(trackIndex, clipIndex)
	if err != nil {
		return nil, err
	}
	track := s.tracks[trackIndex]

	if targetIndex == -1 {
		for i, slot := range track.Slots {
			if slot.Clip == nil {
				targetIndex = i
				break
			}
		}
		if targetIndex == -1 {
			return nil, protocol.Errorf(protocol.CodePreconditionFailed, "no empty clip slot on track %d", trackIndex)
		}
	}
	if targetIndex < 0 || targetIndex >= len(track.Slots) {
		return nil, outOfRange("Clip")
	}
	target := track.Slots[targetIndex]
	if target.Clip != nil {
		return nil, protocol.Errorf(protocol.CodePreconditionFailed, "Clip slot already has a clip")
	}

	dup := &Clip{Name: clip.Name, Length: clip.Length, Looping: clip.Looping}
	dup.Notes = append(dup.Notes, clip.Notes...)
	target.Clip = dup
	return &ClipCreated{TrackIndex: trackIndex, ClipIndex: targetIndex, Name: dup.Name, Length: dup.Length}, nil
}

// DeleteClip removes the clip from a slot. The slot must hold a clip.
func (s *Session) DeleteClip(trackIndex, clipIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.clipAt(trackIndex, clipIndex); err != nil {
		return err
	}
	s.tracks[trackIndex].Slots[clipIndex].Clip = nil
	return nil
}

// FireClip starts a clip playing. Any other playing clip on the same track
// stops, matching the one-clip-per-track rule of the host.
func (s *Session) FireClip(trackIndex, clipIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, err := s.clipAt(trackIndex, clipIndex)
	if err != nil {
		return err
	}
	for _, slot := range s.tracks[trackIndex].Slots {
		if slot.Clip != nil {
			slot.Clip.Playing = false
		}
	}
	clip.Playing = true
	s.playing = true
	return nil
}

// StopClip stops the clip in a slot. An empty slot is not an error.
func (s *Session) StopClip(trackIndex, clipIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, err := s.slotAt(trackIndex, clipIndex)
	if err != nil {
		return err
	}
	if slot.Clip != nil {
		slot.Clip.Playing = false
	}
	return nil
}

// CreateScene inserts a scene at index (-1 appends) and grows every track by
// one slot at the same position.
func (s *Session) CreateScene(index int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index == -1 {
		index = len(s.scenes)
	}
	if index < 0 || index > len(s.scenes) {
		return 0, outOfRange("Scene")
	}

	s.scenes = append(s.scenes, nil)
	copy(s.scenes[index+1:], s.scenes[index:])
	s.scenes[index] = &Scene{}

	for _, track := range s.tracks {
		track.Slots = append(track.Slots, nil)
		copy(track.Slots[index+1:], track.Slots[index:])
		track.Slots[index] = &ClipSlot{}
	}
	return index, nil
}

// FireScene fires every populated slot in the scene's row.
func (s *Session) FireScene(index int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.scenes) {
		return 0, outOfRange("Scene")
	}
	fired := 0
	for _, track := range s.tracks {
		for _, slot := range track.Slots {
			if slot.Clip != nil {
				slot.Clip.Playing = false
			}
		}
		if slot := track.Slots[index]; slot.Clip != nil {
			slot.Clip.Playing = true
			fired++
		}
	}
	if fired > 0 {
		s.playing = true
	}
	return fired, nil
}

// DeleteScene removes a scene and the matching slot row from every track.
func (s *Session) DeleteScene(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.scenes) {
		return outOfRange("Scene")
	}
	s.scenes = append(s.scenes[:index], s.scenes[index+1:]...)
	for _, track := range s.tracks {
		track.Slots = append(track.Slots[:index], track.Slots[index+1:]...)
	}
	return nil
}

// StartPlayback starts transport playback.
func (s *Session) StartPlayback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
	return s.playing
}

// StopPlayback stops transport playback and all playing clips.
func (s *Session) StopPlayback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	for _, track := range s.tracks {
		for _, slot := range track.Slots {
			if slot.Clip != nil {
				slot.Clip.Playing = false
			}
		}
	}
	return s.playing
}

// SetSongTime moves the playhead to a beat position. Playback is paused for
// the seek and resumed if it was running, as the host requires.
func (s *Session) SetSongTime(beats float64) (float64, bool, error) {
	if beats < 0 {
		return 0, false, protocol.Errorf(protocol.CodeInvalidArgument, "song time must not be negative, got %v", beats)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	wasPlaying := s.playing
	s.playing = false
	s.songTime = beats
	s.playing = wasPlaying
	return s.songTime, wasPlaying, nil
}

// SetMetronome sets the metronome switch.
func (s *Session) SetMetronome(on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metronome = on
	return s.metronome
}

// SetRecordMode sets the session record switch.
func (s *Session) SetRecordMode(on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = on
	return s.record
}

// clipAt returns the clip in a slot, failing if the slot is empty. Caller
// must hold the lock.
func (s *Session) clipAt(trackIndex, clipIndex int) (*Clip, error) {
	slot, err := s.slotAt(trackIndex, clipIndex)
	if err != nil {
		return nil, err
	}
	if slot.Clip == nil {
		return nil, protocol.Errorf(protocol.CodePreconditionFailed, "No clip in slot")
	}
	return slot.Clip, nil
}
