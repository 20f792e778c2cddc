// Package mergedriver merges machine-generated schema snapshots, settling
// conflicts that differ only in the embedded schema version.
package mergedriver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/emenda-labs/hookup/core/driver"
)

// DefaultMarkerSize is git's default conflict marker width.
const DefaultMarkerSize = 7

const schemaDefine = `ActiveRecord::Schema(?:\[\d+\.\d+\])?\.define`

// versionKeys are the two spellings Rails has used for the version argument.
var versionKeys = []string{"version: ", ":version => "}

// ErrInvalidMarkerSize is returned for a conflict marker width below one.
var ErrInvalidMarkerSize = errors.New("invalid marker size")

// Failure means conflicts remain that need a human. It is distinct from
// ordinary errors so callers can report it with its own exit status.
type Failure struct {
	Path string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("failed to automatically resolve schema conflict in %s", f.Path)
}

// Resolver is the merge driver for schema snapshot files.
type Resolver struct {
	fs    afero.Fs
	merge driver.MergeTool
	log   *zap.Logger
}

// New creates a Resolver reading and writing files through fs.
func New(fs afero.Fs, merge driver.MergeTool, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{fs: fs, merge: merge, log: log.Named("mergedriver")}
}

// Resolve merges other into current using base as the ancestor, then
// replaces version-only conflicts with the newer version. It returns a
// *Failure if conflict markers remain.
func (r *Resolver) Resolve(ctx context.Context, current, base, other string, markerSize int) error {
	if markerSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMarkerSize, markerSize)
	}

	if err := r.merge.MergeFile(ctx, current, base, other, markerSize); err != nil {
		return fmt.Errorf("merging %s: %w", current, err)
	}

	data, err := afero.ReadFile(r.fs, current)
	if err != nil {
		return fmt.Errorf("reading merge result: %w", err)
	}

	body := ResolveVersions(string(data), markerSize)

	if err := afero.WriteFile(r.fs, current, []byte(body), 0o644); err != nil {
		return fmt.Errorf("writing merge result: %w", err)
	}

	if HasConflicts(body, markerSize) {
		r.log.Warn("unresolved schema conflict", zap.String("path", current))
		return &Failure{Path: current}
	}
	r.log.Debug("schema merged", zap.String("path", current))
	return nil
}

// ResolveVersions replaces every conflict block whose two sides are schema
// define lines differing only in version with a single define line carrying
// the greater version. Other content is returned unchanged.
func ResolveVersions(body string, markerSize int) string {
	for _, key := range versionKeys {
		re := conflictPattern(key, markerSize)
		body = re.ReplaceAllStringFunc(body, func(block string) string {
			m := re.FindStringSubmatch(block)
			ours, oursVersion, theirs, theirsVersion, end := m[1], m[2], m[3], m[4], m[5]

			define, version := ours, oursVersion
			if compareVersions(theirsVersion, oursVersion) > 0 {
				define, version = theirs, theirsVersion
			}
			return define + "(" + key + version + ") do" + end
		})
	}
	return body
}

func conflictPattern(key string, size int) *regexp.Regexp {
	side := `(` + schemaDefine + `)\(` + regexp.QuoteMeta(key) + `([0-9_]+)\) do\n`
	return regexp.MustCompile(fmt.Sprintf(
		`(?m)^<{%[1]d}[^\n]*\n%[2]s={%[1]d}[^\n]*\n%[2]s>{%[1]d}[^\n]*(\n|$)`,
		size, side,
	))
}

// HasConflicts reports whether a line starts with a conflict marker run of
// the given width.
func HasConflicts(body string, markerSize int) bool {
	re := regexp.MustCompile(fmt.Sprintf(`(?m)^(?:<{%[1]d}|>{%[1]d})`, markerSize))
	return re.MatchString(body)
}

// compareVersions compares two digit strings, ignoring `_` separators,
// without converting them to integers.
func compareVersions(a, b string) int {
	a = strings.TrimLeft(strings.ReplaceAll(a, "_", ""), "0")
	b = strings.TrimLeft(strings.ReplaceAll(b, "_", ""), "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
