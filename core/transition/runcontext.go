package transition

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/emenda-labs/hookup/core/config"
)

const (
	// EmptyTree is git's well-known empty tree object (SHA-1).
	EmptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	// EmptyTreeSHA256 is the empty tree in SHA-256 repositories.
	EmptyTreeSHA256 = "6ef19b41225c5369f1c104d45d8d85efa9b057b53b14b4b9b939dd74decc5321"

	// PreviousRef names the previously checked-out ref.
	PreviousRef = "@{-1}"
	// Head names the current commit.
	Head = "HEAD"

	// partialFlag is the third hook argument git passes for file checkouts.
	partialFlag = "0"
)

var replayedReflog = regexp.MustCompile(`^(?:pull|rebase)`)

// RunContext is the input of a single post-checkout run. It is built once by
// NewRunContext and never modified.
type RunContext struct {
	Old     string
	New     string
	Partial bool
	Config  config.Config
}

// NewRunContext maps the post-checkout hook arguments onto revisions.
// A null old revision (a fresh clone) becomes the empty tree, a missing one
// becomes the previous ref, and a missing new revision becomes HEAD.
func NewRunContext(args []string, cfg config.Config) (RunContext, error) {
	if len(args) > 3 {
		return RunContext{}, fmt.Errorf("expected at most 3 arguments (old, new, flag), got %d", len(args))
	}

	rc := RunContext{Old: PreviousRef, New: Head, Config: cfg}
	if len(args) > 0 && args[0] != "" {
		rc.Old = normalizeOld(args[0])
	}
	if len(args) > 1 && args[1] != "" {
		rc.New = args[1]
	}
	if len(args) > 2 {
		rc.Partial = args[2] == partialFlag
	}
	return rc, nil
}

func normalizeOld(rev string) string {
	if strings.Trim(rev, "0") != "" {
		return rev
	}
	switch len(rev) {
	case 40:
		return EmptyTree
	case 64:
		return EmptyTreeSHA256
	}
	return rev
}

// SkipReason explains why no work should be done, or returns "".
func (rc RunContext) SkipReason() string {
	switch {
	case rc.Config.Skip:
		return "skip requested"
	case replayedReflog.MatchString(rc.Config.ReflogAction):
		return "replayed by " + strings.Fields(rc.Config.ReflogAction)[0]
	case rc.Partial:
		return "file checkout"
	case rc.Old == rc.New:
		return "revisions are identical"
	}
	return ""
}
