package ocr

import "strings"

// Normalize canonicalizes engine output: each line is trimmed of
// surrounding whitespace, empty lines are dropped, and the survivors are
// rejoined with single newlines. Engines pad output with trailing newlines
// and stray blank lines; without this step identical text would diff as
// changed.
func Normalize(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// voteLines reconciles two or more recognition results line by line. For
// each line index the most frequent non-empty trimmed candidate wins, with
// ties broken by first appearance. Winners are joined by newlines; indexes
// where every result is empty contribute nothing.
//
// Lines are matched purely by index. A result that drops or gains a line
// shifts its remaining lines against the others, which can dilute the vote;
// with three attempts over the same frame this is rare enough to live with.
func voteLines(results []string) string {
	split := make([][]string, len(results))
	maxLines := 0
	for i, r := range results {
		split[i] = strings.Split(r, "\n")
		if len(split[i]) > maxLines {
			maxLines = len(split[i])
		}
	}

	var winners []string
	for idx := 0; idx < maxLines; idx++ {
		counts := make(map[string]int)
		var order []string
		for _, lines := range split {
			if idx >= len(lines) {
				continue
			}
			line := strings.TrimSpace(lines[idx])
			if line == "" {
				continue
			}
			if counts[line] == 0 {
				order = append(order, line)
			}
			counts[line]++
		}

		best, bestCount := "", 0
		for _, line := range order {
			if counts[line] > bestCount {
				best, bestCount = line, counts[line]
			}
		}
		if best != "" {
			winners = append(winners, best)
		}
	}
	return strings.Join(winners, "\n")
}
