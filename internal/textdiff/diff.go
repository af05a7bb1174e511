// Package textdiff classifies changes between successive text snapshots.
//
// The diff is a pure function of its inputs: line membership only, no
// ordering, no positional alignment. Moving lines around without adding or
// removing any yields a Changed result with empty Added and Removed sets.
package textdiff

import "strings"

// Kind classifies the relationship between two snapshots.
type Kind int

const (
	// None means nothing changed (including the empty-to-empty case).
	None Kind = iota
	// New means text appeared where there was none before.
	New
	// Changed means both snapshots are non-empty and differ.
	Changed
	// Cleared means previous text vanished entirely.
	Cleared
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case New:
		return "new"
	case Changed:
		return "changed"
	case Cleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// DefaultMinLen is the minimum line length used when none is configured.
const DefaultMinLen = 1

// Result describes one comparison. Added and Removed are only populated for
// Changed and list lines in current-snapshot and previous-snapshot order
// respectively, each filtered to lines of at least the configured length.
type Result struct {
	Kind    Kind
	Added   []string
	Removed []string
}

// Diff compares the previous snapshot (nil when no text has been seen yet)
// against the current one. minLen filters short lines out of Added/Removed;
// values below 1 fall back to DefaultMinLen. Line length is measured in
// bytes.
func Diff(previous *string, current string, minLen int) Result {
	if minLen < 1 {
		minLen = DefaultMinLen
	}

	if previous == nil {
		if current == "" {
			return Result{Kind: None}
		}
		return Result{Kind: New}
	}
	if *previous == current {
		return Result{Kind: None}
	}
	if current == "" {
		return Result{Kind: Cleared}
	}

	added, removed := lineSetDiff(*previous, current, minLen)
	return Result{Kind: Changed, Added: added, Removed: removed}
}

// lineSetDiff returns the lines of current absent from previous and the
// lines of previous absent from current, by exact set membership.
func lineSetDiff(previous, current string, minLen int) (added, removed []string) {
	prevLines := strings.Split(previous, "\n")
	currLines := strings.Split(current, "\n")

	prevSet := make(map[string]struct{}, len(prevLines))
	for _, line := range prevLines {
		prevSet[line] = struct{}{}
	}
	currSet := make(map[string]struct{}, len(currLines))
	for _, line := range currLines {
		currSet[line] = struct{}{}
	}

	seen := make(map[string]struct{})
	for _, line := range currLines {
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		if _, ok := prevSet[line]; !ok && len(line) >= minLen {
			added = append(added, line)
		}
	}
	seen = make(map[string]struct{})
	for _, line := range prevLines {
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		if _, ok := currSet[line]; !ok && len(line) >= minLen {
			removed = append(removed, line)
		}
	}
	return added, removed
}
