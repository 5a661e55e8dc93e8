package model

type ChangeType int

const (
	FileModified ChangeType = iota
	FileAdded
	FileRemoved
)

func (t ChangeType) String() string {
	switch t {
	case FileAdded:
		return "added"
	case FileRemoved:
		return "removed"
	default:
		return "modified"
	}
}

// PatchUnit is one file's change inside a Delta. It is immutable once the
// extractor has produced it; AddedLines and RemovedLines are derived from
// PatchContent at construction time.
type PatchUnit struct {
	FilePath     string
	Change       ChangeType
	PatchContent string
	Binary       bool

	AddedLines   []string
	RemovedLines []string

	ReqIDs       []string
	Requirements []string
}

func (u *PatchUnit) IsDeletion() bool {
	return u.Change == FileRemoved
}
