package sync

// DiffType is the kind of discrepancy between two snapshots.
type DiffType int

const (
	// LeftOnly is a file whose contents only exist on the left.
	LeftOnly DiffType = iota

	// RightOnly is a file whose contents only exist on the right.
	RightOnly

	// Renamed is a file with the same contents at different paths.
	Renamed

	// Modified is a path that holds different contents on each side.
	Modified
)

func (t DiffType) String() string {
	switch t {
	case LeftOnly:
		return "LeftOnly"
	case RightOnly:
		return "RightOnly"
	case Renamed:
		return "Renamed"
	case Modified:
		return "Modified"
	default:
		return "Unknown"
	}
}

// Diff is a single discrepancy between two snapshots. Left is set for
// LeftOnly, Right for RightOnly, and both for Renamed and Modified. For
// Modified, Left and Right are the same path.
type Diff struct {
	Type  DiffType
	Left  string
	Right string
}

// FindDuplicates groups the files that share a fingerprint. Only groups with
// at least two files are returned, in the order their first file appears.
func FindDuplicates(files []FileState) (duplicates [][]FileState) {
	groups := map[string][]FileState{}
	var order []string
	for _, f := range files {
		if _, ok := groups[f.Hash]; !ok {
			order = append(order, f.Hash)
		}
		groups[f.Hash] = append(groups[f.Hash], f)
	}

	for _, hash := range order {
		if group := groups[hash]; len(group) > 1 {
			duplicates = append(duplicates, group)
		}
	}
	return duplicates
}

// Compare returns the discrepancies between the `left` and `right`
// snapshots. Files are matched by fingerprint, so neither snapshot may
// contain duplicates.
// A path that's LeftOnly and RightOnly at the same time is reported once, as
// Modified.
func Compare(left, right []FileState) []Diff {
	leftByHash := byHash(left)
	rightByHash := byHash(right)

	var diffs []Diff
	for _, l := range left {
		r, ok := rightByHash[l.Hash]
		switch {
		case !ok:
			diffs = append(diffs, Diff{Type: LeftOnly, Left: l.Path})
		case r.Path != l.Path:
			diffs = append(diffs, Diff{Type: Renamed, Left: l.Path, Right: r.Path})
		}
	}

	var rightOnly []Diff
	for _, r := range right {
		if _, ok := leftByHash[r.Hash]; !ok {
			rightOnly = append(rightOnly, Diff{Type: RightOnly, Right: r.Path})
		}
	}

	leftOnlyByPath := map[string]int{}
	for i, d := range diffs {
		if d.Type == LeftOnly {
			leftOnlyByPath[d.Left] = i
		}
	}

	for _, d := range rightOnly {
		if i, ok := leftOnlyByPath[d.Right]; ok {
			diffs[i] = Diff{Type: Modified, Left: d.Right, Right: d.Right}
			continue
		}
		diffs = append(diffs, d)
	}
	return diffs
}

func byHash(files []FileState) map[string]FileState {
	index := map[string]FileState{}
	for _, f := range files {
		index[f.Hash] = f
	}
	return index
}
