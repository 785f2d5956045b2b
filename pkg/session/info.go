package session

import "sort"

// MixerInfo describes a track's mixer position.
type MixerInfo struct {
	Name    string  `json:"name"`
	Volume  float64 `json:"volume"`
	Panning float64 `json:"panning"`
}

// Info is the top-level snapshot of the set.
type Info struct {
	Tempo                float64   `json:"tempo"`
	SignatureNumerator   int       `json:"signature_numerator"`
	SignatureDenominator int       `json:"signature_denominator"`
	TrackCount           int       `json:"track_count"`
	ReturnTrackCount     int       `json:"return_track_count"`
	SceneCount           int       `json:"scene_count"`
	Playing              bool      `json:"playing"`
	RecordMode           bool      `json:"record_mode"`
	MetronomeOn          bool      `json:"metronome_on"`
	SongTime             float64   `json:"song_time"`
	MasterTrack          MixerInfo `json:"master_track"`
}

// ClipInfo describes a clip inside a slot.
type ClipInfo struct {
	Name      string  `json:"name"`
	Length    float64 `json:"length"`
	Looping   bool    `json:"looping"`
	IsPlaying bool    `json:"is_playing"`
	NoteCount int     `json:"note_count"`
}

// ClipSlotInfo describes one slot of a track.
type ClipSlotInfo struct {
	Index   int       `json:"index"`
	HasClip bool      `json:"has_clip"`
	Clip    *ClipInfo `json:"clip"`
}

// DeviceInfo describes a device on a track.
type DeviceInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
	Type      string `json:"type"`
	Enabled   bool   `json:"enabled"`
}

// TrackInfo is the detailed snapshot of one track.
type TrackInfo struct {
	Index        int            `json:"index"`
	Name         string         `json:"name"`
	IsAudioTrack bool           `json:"is_audio_track"`
	IsMIDITrack  bool           `json:"is_midi_track"`
	Mute         bool           `json:"mute"`
	Solo         bool           `json:"solo"`
	Arm          bool           `json:"arm"`
	Volume       float64        `json:"volume"`
	Panning      float64        `json:"panning"`
	ClipSlots    []ClipSlotInfo `json:"clip_slots"`
	Devices      []DeviceInfo   `json:"devices"`
}

// NotePosition is a note annotated with its bar/beat position in the set.
type NotePosition struct {
	Bar      int     `json:"bar"`
	Beat     float64 `json:"beat"`
	Time     float64 `json:"time"`
	Pitch    int     `json:"pitch"`
	Duration float64 `json:"duration"`
	Velocity int     `json:"velocity"`
	ClipName string  `json:"clip"`
}

// TrackNotes is the result of listing a track's notes.
type TrackNotes struct {
	TrackIndex  int            `json:"track_index"`
	TrackName   string         `json:"track_name"`
	BeatsPerBar int            `json:"beats_per_bar"`
	Notes       []NotePosition `json:"notes"`
}

// FirstNote is the result of searching a track for its earliest note.
type FirstNote struct {
	Found      bool          `json:"found"`
	TrackIndex int           `json:"track_index"`
	TrackName  string        `json:"track_name"`
	BarNumber  int           `json:"bar_number,omitempty"`
	BeatInBar  float64       `json:"beat_in_bar,omitempty"`
	NoteTime   float64       `json:"note_time,omitempty"`
	Note       *NotePosition `json:"note_details,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// Info returns the top-level snapshot of the set.
func (s *Session) Info() *Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Info{
		Tempo:                s.tempo,
		SignatureNumerator:   s.sigNum,
		SignatureDenominator: s.sigDen,
		TrackCount:           len(s.tracks),
		ReturnTrackCount:     len(s.returns),
		SceneCount:           len(s.scenes),
		Playing:              s.playing,
		RecordMode:           s.record,
		MetronomeOn:          s.metronome,
		SongTime:             s.songTime,
		MasterTrack: MixerInfo{
			Name:    s.master.Name,
			Volume:  s.master.Volume,
			Panning: s.master.Panning,
		},
	}
}

// TrackCount returns the number of regular tracks.
func (s *Session) TrackCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

// SceneCount returns the number of scenes.
func (s *Session) SceneCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scenes)
}

// Tempo returns the current tempo in BPM.
func (s *Session) Tempo() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tempo
}

// TrackInfo returns the detailed snapshot of one track.
func (s *Session) TrackInfo(index int) (*TrackInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	track, err := s.trackAt(index)
	if err != nil {
		return nil, err
	}

	info := &TrackInfo{
		Index:        index,
		Name:         track.Name,
		IsAudioTrack: track.Kind == TrackAudio,
		IsMIDITrack:  track.Kind == TrackMIDI,
		Mute:         track.Mute,
		Solo:         track.Solo,
		Arm:          track.Arm,
		Volume:       track.Volume,
		Panning:      track.Panning,
		ClipSlots:    make([]ClipSlotInfo, 0, len(track.Slots)),
		Devices:      make([]DeviceInfo, 0, len(track.Devices)),
	}

	for i, slot := range track.Slots {
		entry := ClipSlotInfo{Index: i, HasClip: slot.Clip != nil}
		if slot.Clip != nil {
			entry.Clip = &ClipInfo{
				Name:      slot.Clip.Name,
				Length:    slot.Clip.Length,
				Looping:   slot.Clip.Looping,
				IsPlaying: slot.Clip.Playing,
				NoteCount: len(slot.Clip.Notes),
			}
		}
		info.ClipSlots = append(info.ClipSlots, entry)
	}
	for i, device := range track.Devices {
		info.Devices = append(info.Devices, DeviceInfo{
			Index:     i,
			Name:      device.Name,
			ClassName: device.ClassName,
			Type:      device.Kind,
			Enabled:   device.Enabled,
		})
	}
	return info, nil
}

// TrackNotes returns up to maxNotes notes across a track's clips, sorted by
// time with bar/beat annotations.
func (s *Session) TrackNotes(index, maxNotes int) (*TrackNotes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	track, err := s.trackAt(index)
	if err != nil {
		return nil, err
	}

	beatsPerBar := s.sigNum
	result := &TrackNotes{
		TrackIndex:  index,
		TrackName:   track.Name,
		BeatsPerBar: beatsPerBar,
		Notes:       []NotePosition{},
	}

	for _, slot := range track.Slots {
		if slot.Clip == nil {
			continue
		}
		for _, note := range slot.Clip.Notes {
			result.Notes = append(result.Notes, notePosition(note, slot.Clip.Name, beatsPerBar))
		}
	}

	sort.Slice(result.Notes, func(i, j int) bool { return result.Notes[i].Time < result.Notes[j].Time })
	if maxNotes > 0 && len(result.Notes) > maxNotes {
		result.Notes = result.Notes[:maxNotes]
	}
	return result, nil
}

// FirstNote finds the earliest note across a track's clips.
func (s *Session) FirstNote(index int) (*FirstNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	track, err := s.trackAt(index)
	if err != nil {
		return nil, err
	}

	result := &FirstNote{TrackIndex: index, TrackName: track.Name}
	var earliest *NotePosition
	for _, slot := range track.Slots {
		if slot.Clip == nil {
			continue
		}
		for _, note := range slot.Clip.Notes {
			pos := notePosition(note, slot.Clip.Name, s.sigNum)
			if earliest == nil || pos.Time < earliest.Time {
				p := pos
				earliest = &p
			}
		}
	}

	if earliest == nil {
		result.Message = "No notes found in track"
		return result, nil
	}
	result.Found = true
	result.BarNumber = earliest.Bar
	result.BeatInBar = earliest.Beat
	result.NoteTime = earliest.Time
	result.Note = earliest
	return result, nil
}

func notePosition(note Note, clipName string, beatsPerBar int) NotePosition {
	bar := int(note.Start/float64(beatsPerBar)) + 1
	beat := note.Start - float64(bar-1)*float64(beatsPerBar) + 1
	return NotePosition{
		Bar:      bar,
		Beat:     beat,
		Time:     note.Start,
		Pitch:    note.Pitch,
		Duration: note.Duration,
		Velocity: note.Velocity,
		ClipName: clipName,
	}
}
