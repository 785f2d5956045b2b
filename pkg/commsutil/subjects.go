package commsutil

import "fmt"

// Default COMMS subjects.
const (
	SubjectChangeEvent = "livebridge.changed"
)

// BuildChangeSubject builds the granular change event subject for a command.
func BuildChangeSubject(command string) string {
	return fmt.Sprintf("livebridge.changed.%s", command)
}
