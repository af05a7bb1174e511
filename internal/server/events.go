package server

import "github.com/ironsheep/screen-text-watch/internal/monitor"

// eventMessage is the wire form of a monitor event. Type discriminates the
// variant; unused fields are omitted.
type eventMessage struct {
	Type    string   `json:"type"`
	Text    string   `json:"text,omitempty"`
	Old     string   `json:"old,omitempty"`
	New     string   `json:"new,omitempty"`
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	Message string   `json:"message,omitempty"`
}

func encodeEvent(ev monitor.Event) eventMessage {
	switch e := ev.(type) {
	case monitor.NewText:
		return eventMessage{Type: string(monitor.KindNew), Text: e.Text}
	case monitor.TextChanged:
		return eventMessage{Type: string(monitor.KindChanged), Old: e.Old, New: e.New}
	case monitor.TextCleared:
		return eventMessage{Type: string(monitor.KindCleared), Text: e.Old}
	case monitor.DiffDetected:
		return eventMessage{Type: string(monitor.KindDiff), Added: e.Added, Removed: e.Removed}
	case monitor.Error:
		return eventMessage{Type: string(monitor.KindError), Message: e.Message}
	default:
		return eventMessage{Type: string(ev.Kind())}
	}
}
