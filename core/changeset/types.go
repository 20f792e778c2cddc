package changeset

// ChangeKind is the kind of change git reports for a single path.
type ChangeKind string

const (
	ChangeKindAdded       ChangeKind = "added"
	ChangeKindModified    ChangeKind = "modified"
	ChangeKindDeleted     ChangeKind = "deleted"
	ChangeKindRenamed     ChangeKind = "renamed"
	ChangeKindCopied      ChangeKind = "copied"
	ChangeKindTypeChanged ChangeKind = "type_changed"
	ChangeKindUnmerged    ChangeKind = "unmerged"
	ChangeKindBroken      ChangeKind = "broken"
)

var kindsByCode = map[byte]ChangeKind{
	'A': ChangeKindAdded,
	'M': ChangeKindModified,
	'D': ChangeKindDeleted,
	'R': ChangeKindRenamed,
	'C': ChangeKindCopied,
	'T': ChangeKindTypeChanged,
	'U': ChangeKindUnmerged,
	'X': ChangeKindBroken,
}

// KindFromCode maps a git --name-status letter to its ChangeKind.
func KindFromCode(code byte) (ChangeKind, bool) {
	k, ok := kindsByCode[code]
	return k, ok
}

// In reports whether k is one of kinds.
func (k ChangeKind) In(kinds ...ChangeKind) bool {
	for _, other := range kinds {
		if k == other {
			return true
		}
	}
	return false
}

// ChangeRecord is a single line of a name-status diff.
type ChangeRecord struct {
	Kind ChangeKind `json:"kind"`
	Path string     `json:"path"`
	// From is the source path of a rename or copy.
	From string `json:"from,omitempty"`
}
