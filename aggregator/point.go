package aggregator

// Point is the Aggregator's output for one ts (spec.md §3 AggregatedPoint):
// overall statistics plus a breakdown per distinct tag observed in the
// bucket.
type Point struct {
	TS      int64
	Overall *StatBlock
	Tagged  map[string]*StatBlock
}
