// Package events defines event types and publisher interfaces for session
// change events.
package events

// SessionChangedEvent is emitted after a mutating command is applied to the
// host session.
type SessionChangedEvent struct {
	Command    string  `json:"command"`
	Status     string  `json:"status"`
	TrackCount int     `json:"trackCount"`
	SceneCount int     `json:"sceneCount"`
	Tempo      float64 `json:"tempo"`
	Timestamp  string  `json:"timestamp"`
}
