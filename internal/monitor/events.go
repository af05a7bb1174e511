package monitor

// EventKind names the variant of a change event on the wire.
type EventKind string

const (
	KindNew     EventKind = "new"
	KindChanged EventKind = "changed"
	KindCleared EventKind = "cleared"
	KindDiff    EventKind = "diff"
	KindError   EventKind = "error"
)

// Event is the closed set of notifications a Monitor emits. The only
// implementations live in this package; consumers switch on the concrete
// type or on Kind().
type Event interface {
	Kind() EventKind
}

// NewText reports text appearing where there was none before.
type NewText struct {
	Text string
}

func (NewText) Kind() EventKind { return KindNew }

// TextChanged reports non-empty text replaced by different non-empty text.
type TextChanged struct {
	Old string
	New string
}

func (TextChanged) Kind() EventKind { return KindChanged }

// TextCleared reports previously seen text vanishing entirely.
type TextCleared struct {
	Old string
}

func (TextCleared) Kind() EventKind { return KindCleared }

// DiffDetected carries the line-level delta of a TextChanged, filtered to
// the configured minimum line length. Emitted before its TextChanged, and
// only when at least one line survived the filter.
type DiffDetected struct {
	Added   []string
	Removed []string
}

func (DiffDetected) Kind() EventKind { return KindDiff }

// Error reports a failed tick stage. The loop keeps running at its fixed
// cadence after emitting one.
type Error struct {
	Message string
}

func (Error) Kind() EventKind { return KindError }
