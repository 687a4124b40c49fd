package model

// SimilarPair is a persisted observation that two code units are similar
// enough to flag. Stored canonically: UnitA is always lexicographically
// less than UnitB.
type SimilarPair struct {
	ID            int64
	UnitA         string
	UnitB         string
	Similarity    float64
	Status        PairStatus
	TriggerReason string // e.g. "scan", "hook"; empty if not recorded
}

// CanonicalPair reorders (a, b) so the first return value is always
// lexicographically smaller, matching the UNIQUE(unit_a, unit_b)
// constraint's expectation. This is the single place pair ordering is
// decided; every caller that persists or deduplicates a pair must route
// through it.
func CanonicalPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// SimilarityGroup is a named, reviewer-defined bucket of intentionally
// similar units (e.g. "all init methods"), used to suppress duplicate
// alerts for patterns the project has already accepted.
type SimilarityGroup struct {
	ID        int64
	ProjectID int64
	Name      string
	Reason    string
	Pattern   string
}

// Stats summarizes a project's (or the whole database's) indexed state.
type Stats struct {
	TotalUnits    int
	PairsByStatus map[PairStatus]int
	TotalGroups   int
}
