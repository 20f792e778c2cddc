// Package changeset turns git name-status output into typed change records.
package changeset

import (
	"path"
	"regexp"
	"strings"
)

// ChangeSet is an ordered collection of change records in diff emission order.
// It is built once from a single diff and never modified afterward.
type ChangeSet struct {
	records []ChangeRecord
}

// New builds a ChangeSet from records, keeping their order.
func New(records ...ChangeRecord) ChangeSet {
	cp := make([]ChangeRecord, len(records))
	copy(cp, records)
	return ChangeSet{records: cp}
}

// Parse reads `<code>\t<path>` lines as produced by `git diff --name-status`.
// Rename and copy lines carry a similarity score and two paths; only the
// letter of the code is read and the destination path becomes Path.
// Malformed lines are dropped.
func Parse(raw string) ChangeSet {
	var records []ChangeRecord
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if rec, ok := parseLine(line); ok {
			records = append(records, rec)
		}
	}
	return ChangeSet{records: records}
}

func parseLine(line string) (ChangeRecord, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 || fields[0] == "" {
		return ChangeRecord{}, false
	}

	kind, ok := KindFromCode(fields[0][0])
	if !ok {
		return ChangeRecord{}, false
	}

	switch kind {
	case ChangeKindRenamed, ChangeKindCopied:
		if len(fields) != 3 || fields[1] == "" || fields[2] == "" {
			return ChangeRecord{}, false
		}
		return ChangeRecord{Kind: kind, Path: fields[2], From: fields[1]}, true
	default:
		if len(fields) != 2 || fields[1] == "" {
			return ChangeRecord{}, false
		}
		return ChangeRecord{Kind: kind, Path: fields[1]}, true
	}
}

// Len returns the number of records.
func (s ChangeSet) Len() int {
	return len(s.records)
}

// Empty reports whether the set has no records.
func (s ChangeSet) Empty() bool {
	return len(s.records) == 0
}

// Records returns a copy of the records in diff order.
func (s ChangeSet) Records() []ChangeRecord {
	cp := make([]ChangeRecord, len(s.records))
	copy(cp, s.records)
	return cp
}

// Paths returns the path of every record in diff order.
func (s ChangeSet) Paths() []string {
	paths := make([]string, len(s.records))
	for i, r := range s.records {
		paths[i] = r.Path
	}
	return paths
}

// Lookup returns the first record whose path equals p.
func (s ChangeSet) Lookup(p string) (ChangeRecord, bool) {
	p = path.Clean(p)
	for _, r := range s.records {
		if r.Path == p {
			return r, true
		}
	}
	return ChangeRecord{}, false
}

// Filter returns the records whose path matches pattern, in order.
func (s ChangeSet) Filter(pattern *regexp.Regexp) ChangeSet {
	return s.Select(func(r ChangeRecord) bool {
		return pattern.MatchString(r.Path)
	})
}

// Under returns the records whose path is dir itself or lies beneath it.
func (s ChangeSet) Under(dir string) ChangeSet {
	dir = path.Clean(dir)
	if dir == "." {
		return s
	}
	prefix := dir + "/"
	return s.Select(func(r ChangeRecord) bool {
		return r.Path == dir || strings.HasPrefix(r.Path, prefix)
	})
}

// OfKind returns the records whose kind is one of kinds, in order.
func (s ChangeSet) OfKind(kinds ...ChangeKind) ChangeSet {
	return s.Select(func(r ChangeRecord) bool {
		return r.Kind.In(kinds...)
	})
}

// Any reports whether some record has one of kinds.
func (s ChangeSet) Any(kinds ...ChangeKind) bool {
	for _, r := range s.records {
		if r.Kind.In(kinds...) {
			return true
		}
	}
	return false
}

// Select returns the records for which keep returns true, in order.
func (s ChangeSet) Select(keep func(ChangeRecord) bool) ChangeSet {
	var out []ChangeRecord
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return ChangeSet{records: out}
}
