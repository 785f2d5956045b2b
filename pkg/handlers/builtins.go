// Package handlers implements the builtin command handlers bound by name
// from the command definition file. Handlers never touch the transport; they
// receive host state and a validated parameter bag and return a result or a
// structured error.
package handlers

import (
	"github.com/soundctl/livebridge/pkg/registry"
	"github.com/soundctl/livebridge/pkg/session"
)

// Builtins returns the handler table the registry binds definitions against.
// Adding a handler here makes it available to definition files; exposing it
// as a command only requires a definition file edit, not a restart.
func Builtins() map[string]registry.HandlerFunc {
	return map[string]registry.HandlerFunc{
		"get_session_info":          getSessionInfo,
		"get_track_info":            getTrackInfo,
		"get_track_notes":           getTrackNotes,
		"search_track_notes":        searchTrackNotes,
		"get_browser_tree":          getBrowserTree,
		"get_browser_items_at_path": getBrowserItemsAtPath,

		"create_midi_track":  createMIDITrack,
		"create_audio_track": createAudioTrack,
		"delete_track":       deleteTrack,
		"set_track_name":     setTrackName,
		"set_track_volume":   setTrackVolume,
		"set_track_panning":  setTrackPanning,
		"set_track_mute":     setTrackMute,
		"set_track_solo":     setTrackSolo,
		"set_track_arm":      setTrackArm,
		"set_tempo":          setTempo,
		"create_clip":        createClip,
		"set_clip_name":      setClipName,
		"add_notes_to_clip":  addNotesToClip,
		"set_clip_loop":      setClipLoop,
		"duplicate_clip":     duplicateClip,
		"delete_clip":        deleteClip,
		"fire_clip":          fireClip,
		"stop_clip":          stopClip,
		"create_scene":       createScene,
		"fire_scene":         fireScene,
		"delete_scene":       deleteScene,
		"start_playback":     startPlayback,
		"stop_playback":      stopPlayback,
		"set_song_time":      setSongTime,
		"set_metronome":      setMetronome,
		"set_record_mode":    setRecordMode,
		"load_browser_item":  loadBrowserItem,
	}
}

// --- read-only -----------------------------------------------------------

func getSessionInfo(s *session.Session, _ registry.Params) (interface{}, error) {
	return s.Info(), nil
}

func getTrackInfo(s *session.Session, p registry.Params) (interface{}, error) {
	return s.TrackInfo(p.Int("track_index"))
}

func getTrackNotes(s *session.Session, p registry.Params) (interface{}, error) {
	return s.TrackNotes(p.Int("track_index"), p.Int("max_notes"))
}

func searchTrackNotes(s *session.Session, p registry.Params) (interface{}, error) {
	return s.FirstNote(p.Int("track_index"))
}

func getBrowserTree(s *session.Session, p registry.Params) (interface{}, error) {
	category := p.String("category_type")
	tree := s.BrowserTree(category)
	return map[string]interface{}{"type": category, "categories": tree}, nil
}

func getBrowserItemsAtPath(s *session.Session, p registry.Params) (interface{}, error) {
	return s.BrowserItemsAtPath(p.String("path"))
}

// --- mutating ------------------------------------------------------------

func createMIDITrack(s *session.Session, p registry.Params) (interface{}, error) {
	return s.CreateMIDITrack(p.Int("index"))
}

func createAudioTrack(s *session.Session, p registry.Params) (interface{}, error) {
	return s.CreateAudioTrack(p.Int("index"))
}

func deleteTrack(s *session.Session, p registry.Params) (interface{}, error) {
	return s.DeleteTrack(p.Int("track_index"))
}

func setTrackName(s *session.Session, p registry.Params) (interface{}, error) {
	name, err := s.SetTrackName(p.Int("track_index"), p.String("name"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"name": name}, nil
}

func setTrackVolume(s *session.Session, p registry.Params) (interface{}, error) {
	volume, err := s.SetTrackVolume(p.Int("track_index"), p.Float("volume"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"track_index": p.Int("track_index"), "volume": volume}, nil
}

func setTrackPanning(s *session.Session, p registry.Params) (interface{}, error) {
	panning, err := s.SetTrackPanning(p.Int("track_index"), p.Float("panning"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"track_index": p.Int("track_index"), "panning": panning}, nil
}

func setTrackMute(s *session.Session, p registry.Params) (interface{}, error) {
	mute, err := s.SetTrackMute(p.Int("track_index"), p.Bool("mute"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"mute": mute}, nil
}

func setTrackSolo(s *session.Session, p registry.Params) (interface{}, error) {
	solo, err := s.SetTrackSolo(p.Int("track_index"), p.Bool("solo"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"solo": solo}, nil
}

func setTrackArm(s *session.Session, p registry.Params) (interface{}, error) {
	arm, err := s.SetTrackArm(p.Int("track_index"), p.Bool("arm"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"arm": arm}, nil
}

func setTempo(s *session.Session, p registry.Params) (interface{}, error) {
	tempo, err := s.SetTempo(p.Float("tempo"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"tempo": tempo}, nil
}

func createClip(s *session.Session, p registry.Params) (interface{}, error) {
	return s.CreateClip(p.Int("track_index"), p.Int("clip_index"), p.Float("length"))
}

func setClipName(s *session.Session, p registry.Params) (interface{}, error) {
	name, err := s.SetClipName(p.Int("track_index"), p.Int("clip_index"), p.String("name"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"name": name}, nil
}

func addNotesToClip(s *session.Session, p registry.Params) (interface{}, error) {
	var body struct {
		Notes []session.Note `json:"notes"`
	}
	if err := p.Unmarshal(&body); err != nil {
		return nil, err
	}
	count, err := s.AddNotesToClip(p.Int("track_index"), p.Int("clip_index"), body.Notes)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"note_count": count}, nil
}

func setClipLoop(s *session.Session, p registry.Params) (interface{}, error) {
	looping, err := s.SetClipLoop(p.Int("track_index"), p.Int("clip_index"), p.Bool("looping"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"looping": looping}, nil
}

func duplicateClip(s *session.Session, p registry.Params) (interface{}, error) {
	return s.DuplicateClip(p.Int("track_index"), p.Int("clip_index"), p.Int("target_index"))
}

func deleteClip(s *session.Session, p registry.Params) (interface{}, error) {
	if err := s.DeleteClip(p.Int("track_index"), p.Int("clip_index")); err != nil {
		return nil, err
	}
	return map[string]interface{}{"deleted": true}, nil
}

func fireClip(s *session.Session, p registry.Params) (interface{}, error) {
	if err := s.FireClip(p.Int("track_index"), p.Int("clip_index")); err != nil {
		return nil, err
	}
	return map[string]interface{}{"fired": true}, nil
}

func stopClip(s *session.Session, p registry.Params) (interface{}, error) {
	if err := s.StopClip(p.Int("track_index"), p.Int("clip_index")); err != nil {
		return nil, err
	}
	return map[string]interface{}{"stopped": true}, nil
}

func createScene(s *session.Session, p registry.Params) (interface{}, error) {
	index, err := s.CreateScene(p.Int("index"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"index": index, "scene_count": s.SceneCount()}, nil
}

func fireScene(s *session.Session, p registry.Params) (interface{}, error) {
	fired, err := s.FireScene(p.Int("scene_index"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"fired_clips": fired}, nil
}

func deleteScene(s *session.Session, p registry.Params) (interface{}, error) {
	if err := s.DeleteScene(p.Int("scene_index")); err != nil {
		return nil, err
	}
	return map[string]interface{}{"deleted": true, "scene_count": s.SceneCount()}, nil
}

func startPlayback(s *session.Session, _ registry.Params) (interface{}, error) {
	return map[string]interface{}{"playing": s.StartPlayback()}, nil
}

func stopPlayback(s *session.Session, _ registry.Params) (interface{}, error) {
	return map[string]interface{}{"playing": s.StopPlayback()}, nil
}

func setSongTime(s *session.Session, p registry.Params) (interface{}, error) {
	beats, wasPlaying, err := s.SetSongTime(p.Float("time"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"song_time_set": beats, "was_playing": wasPlaying}, nil
}

func setMetronome(s *session.Session, p registry.Params) (interface{}, error) {
	return map[string]interface{}{"metronome_on": s.SetMetronome(p.Bool("enabled"))}, nil
}

func setRecordMode(s *session.Session, p registry.Params) (interface{}, error) {
	return map[string]interface{}{"record_mode": s.SetRecordMode(p.Bool("enabled"))}, nil
}

func loadBrowserItem(s *session.Session, p registry.Params) (interface{}, error) {
	return s.LoadBrowserItem(p.Int("track_index"), p.String("item_uri"))
}
