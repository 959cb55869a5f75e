package scanner

import "sort"

// AggregationKey is the identity under which light frames are counted. Two
// frames fold into the same output row exactly when every field matches.
type AggregationKey struct {
	Date            string `json:"date"`
	FilterID        string `json:"filterId"`
	ExposureSeconds string `json:"exposureSeconds"`
	Binning         string `json:"binning"`
	Gain            string `json:"gain"`
}

// Less orders keys lexicographically field by field, which fixes the row
// order of the output table regardless of processing order.
func (k AggregationKey) Less(other AggregationKey) bool {
	if k.Date != other.Date {
		return k.Date < other.Date
	}
	if k.FilterID != other.FilterID {
		return k.FilterID < other.FilterID
	}
	if k.ExposureSeconds != other.ExposureSeconds {
		return k.ExposureSeconds < other.ExposureSeconds
	}
	if k.Binning != other.Binning {
		return k.Binning < other.Binning
	}
	return k.Gain < other.Gain
}

// Row is one aggregated line of the output table.
type Row struct {
	AggregationKey
	Count int `json:"count"`
}

// Tally counts light frames per AggregationKey. It is not safe for
// concurrent use; during a run only the single aggregator goroutine
// touches it.
type Tally struct {
	counts map[AggregationKey]int
}

// NewTally creates an empty Tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[AggregationKey]int)}
}

// Add folds one frame record into the tally.
func (t *Tally) Add(rec FrameRecord) {
	t.counts[rec.Key()]++
}

// Total returns the number of frames folded in so far.
func (t *Tally) Total() int {
	n := 0
	for _, c := range t.counts {
		n += c
	}
	return n
}

// Len returns the number of distinct keys.
func (t *Tally) Len() int {
	return len(t.counts)
}

// Rows renders the tally as a deterministically sorted slice.
func (t *Tally) Rows() []Row {
	rows := make([]Row, 0, len(t.counts))
	for key, count := range t.counts {
		rows = append(rows, Row{AggregationKey: key, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].AggregationKey.Less(rows[j].AggregationKey)
	})
	return rows
}
