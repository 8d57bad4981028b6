package series

// RunIndex maps a position in a unit's discovery-ordered series list to its
// 1-based run number. Positions whose description occurs once are absent.
type RunIndex map[int]int

// Run returns the run number at position i, or 0 for no run marker.
func (r RunIndex) Run(i int) int {
	return r[i]
}

// AssignRuns numbers every description that occurs more than once in list.
// Runs follow discovery order, not series number, and the whole table is
// computed before any caller starts placing files.
func AssignRuns(list []Series) RunIndex {
	positions := make(map[string][]int, len(list))
	for i, s := range list {
		positions[s.Description] = append(positions[s.Description], i)
	}
	index := make(RunIndex)
	for _, idxs := range positions {
		if len(idxs) < 2 {
			continue
		}
		for run, pos := range idxs {
			index[pos] = run + 1
		}
	}
	return index
}
