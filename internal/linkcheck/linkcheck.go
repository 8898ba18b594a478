// Package linkcheck implements the "links/shortcuts" whole-tree check
// named in spec §4.5's fixed dispatch order: a walker-driven check
// (grouped with duplicates, integrity, temporary, and confidential in
// §4.5's walker-driven dispatch shape) that classifies every symlink
// entry the walker yields as resolving or broken. Grounded on the
// walker's existing KindSymlink classification (internal/walker) —
// this package only adds the target-resolution step the walker itself
// doesn't perform, the same layering the confidential and integrity
// checks use on top of the walker's bare Entry stream.
package linkcheck

import "os"

// Outcome is the result of resolving one symlink's target.
type Outcome int

const (
	// OutcomeResolved means the symlink's target exists.
	OutcomeResolved Outcome = iota
	// OutcomeBroken means the symlink's target does not exist.
	OutcomeBroken
)

// Resolve reports whether the symlink at absPath points at an existing
// target. Any error other than "target missing" is folded into Broken
// — a link this check cannot follow is treated the same as a dangling
// one, since both mean the file the link promises is not actually
// reachable.
func Resolve(absPath string) Outcome {
	if _, err := os.Stat(absPath); err != nil {
		return OutcomeBroken
	}
	return OutcomeResolved
}
