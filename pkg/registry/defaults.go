package registry

// DefaultDefinition returns the embedded fallback command definition, used
// when no definition file is configured or readable. It mirrors
// config/commands.json; edits to the file take effect without a restart,
// edits here require a rebuild.
func DefaultDefinition() *Definition {
	trackIndex := ParamSpec{Name: "track_index", Type: TypeInt, Default: 0}
	clipIndex := ParamSpec{Name: "clip_index", Type: TypeInt, Default: 0}

	return &Definition{
		Name:    "livebridge-commands",
		Version: "1.0.0",
		Commands: map[string]CommandDef{
			// Read-only commands run on the calling worker.
			"get_session_info": {Handler: "get_session_info"},
			"get_track_info":   {Handler: "get_track_info", Params: []ParamSpec{trackIndex}},
			"get_track_notes": {Handler: "get_track_notes", Params: []ParamSpec{
				trackIndex,
				{Name: "max_notes", Type: TypeInt, Default: 50},
			}},
			"search_track_notes": {Handler: "search_track_notes", Params: []ParamSpec{trackIndex}},
			"get_browser_tree": {Handler: "get_browser_tree", Params: []ParamSpec{
				{Name: "category_type", Type: TypeString, Default: "all"},
			}},
			"get_browser_items_at_path": {Handler: "get_browser_items_at_path", Params: []ParamSpec{
				{Name: "path", Type: TypeString, Required: true},
			}},

			// Mutating commands are serialized onto the host loop.
			"create_midi_track": {Handler: "create_midi_track", Mutating: true, Params: []ParamSpec{
				{Name: "index", Type: TypeInt, Default: -1},
			}},
			"create_audio_track": {Handler: "create_audio_track", Mutating: true, Params: []ParamSpec{
				{Name: "index", Type: TypeInt, Default: -1},
			}},
			"delete_track": {Handler: "delete_track", Mutating: true, Params: []ParamSpec{
				{Name: "track_index", Type: TypeInt, Required: true},
			}},
			"set_track_name": {Handler: "set_track_name", Mutating: true, Params: []ParamSpec{
				trackIndex,
				{Name: "name", Type: TypeString, Default: ""},
			}},
			"set_track_volume": {Handler: "set_track_volume", Mutating: true, Params: []ParamSpec{
				trackIndex,
				{Name: "volume", Type: TypeFloat, Required: true},
			}},
			"set_track_panning": {Handler: "set_track_panning", Mutating: true, Params: []ParamSpec{
				trackIndex,
				{Name: "panning", Type: TypeFloat, Required: true},
			}},
			"set_track_mute": {Handler: "set_track_mute", Mutating: true, Params: []ParamSpec{
				trackIndex,
				{Name: "mute", Type: TypeBool, Required: true},
			}},
			"set_track_solo": {Handler: "set_track_solo", Mutating: true, Params: []ParamSpec{
				trackIndex,
				{Name: "solo", Type: TypeBool, Required: true},
			}},
			"set_track_arm": {Handler: "set_track_arm", Mutating: true, Params: []ParamSpec{
				trackIndex,
				{Name: "arm", Type: TypeBool, Required: true},
			}},
			"set_tempo": {Handler: "set_tempo", Mutating: true, Params: []ParamSpec{
				{Name: "tempo", Type: TypeFloat, Default: 120.0},
			}},
			"create_clip": {Handler: "create_clip", Mutating: true, Params: []ParamSpec{
				trackIndex, clipIndex,
				{Name: "length", Type: TypeFloat, Default: 4.0},
			}},
			"set_clip_name": {Handler: "set_clip_name", Mutating: true, Params: []ParamSpec{
				trackIndex, clipIndex,
				{Name: "name", Type: TypeString, Default: ""},
			}},
			"add_notes_to_clip": {Handler: "add_notes_to_clip", Mutating: true, Params: []ParamSpec{
				trackIndex, clipIndex,
				{Name: "notes", Type: TypeArray, Default: []interface{}{}},
			}},
			"set_clip_loop": {Handler: "set_clip_loop", Mutating: true, Params: []ParamSpec{
				trackIndex, clipIndex,
				{Name: "looping", Type: TypeBool, Required: true},
			}},
			"duplicate_clip": {Handler: "duplicate_clip", Mutating: true, Params: []ParamSpec{
				trackIndex, clipIndex,
				{Name: "target_index", Type: TypeInt, Default: -1},
			}},
			"delete_clip": {Handler: "delete_clip", Mutating: true, Params: []ParamSpec{trackIndex, clipIndex}},
			"fire_clip":   {Handler: "fire_clip", Mutating: true, Params: []ParamSpec{trackIndex, clipIndex}},
			"stop_clip":   {Handler: "stop_clip", Mutating: true, Params: []ParamSpec{trackIndex, clipIndex}},
			"create_scene": {Handler: "create_scene", Mutating: true, Params: []ParamSpec{
				{Name: "index", Type: TypeInt, Default: -1},
			}},
			"fire_scene": {Handler: "fire_scene", Mutating: true, Params: []ParamSpec{
				{Name: "scene_index", Type: TypeInt, Required: true},
			}},
			"delete_scene": {Handler: "delete_scene", Mutating: true, Params: []ParamSpec{
				{Name: "scene_index", Type: TypeInt, Required: true},
			}},
			"start_playback": {Handler: "start_playback", Mutating: true},
			"stop_playback":  {Handler: "stop_playback", Mutating: true},
			"set_song_time": {Handler: "set_song_time", Mutating: true, Params: []ParamSpec{
				{Name: "time", Type: TypeFloat, Default: 0.0},
			}},
			"set_metronome": {Handler: "set_metronome", Mutating: true, Params: []ParamSpec{
				{Name: "enabled", Type: TypeBool, Required: true},
			}},
			"set_record_mode": {Handler: "set_record_mode", Mutating: true, Params: []ParamSpec{
				{Name: "enabled", Type: TypeBool, Required: true},
			}},
			"load_browser_item": {Handler: "load_browser_item", Mutating: true, Params: []ParamSpec{
				trackIndex,
				{Name: "item_uri", Type: TypeString, Required: true},
			}},
		},
	}
}
