package flow

import (
	"encoding/json"
	"iter"
	"math"
)

// Bin is one time-series bin: the half-open interval
// [StartSec, EndSec) and the number of vehicles counted in it.
type Bin struct {
	StartSec float64 `json:"bin_start_sec"`
	EndSec   float64 `json:"bin_end_sec"`
	Count    int     `json:"vehicles"`
}

// Series is a finite, restartable sequence of per-bin vehicle counts
// covering the full recording duration, including empty bins. Iterate it
// any number of times with All.
type Series struct {
	widthSec    float64
	durationSec float64
	counts      []int
}

// NewSeries creates an empty series spanning duration with the given bin
// width. A non-positive duration yields a zero-length series.
func NewSeries(widthSec, durationSec float64) *Series {
	s := &Series{widthSec: widthSec, durationSec: durationSec}
	if durationSec > 0 && widthSec > 0 {
		s.counts = make([]int, int(math.Ceil(durationSec/widthSec)))
	}
	return s
}

func (s *Series) add(atSec float64) {
	if atSec < 0 || len(s.counts) == 0 {
		return
	}
	idx := int(atSec / s.widthSec)
	if idx >= len(s.counts) {
		idx = len(s.counts) - 1
	}
	s.counts[idx]++
}

// Len returns the number of bins.
func (s *Series) Len() int { return len(s.counts) }

// BinWidthSec returns the configured bin width.
func (s *Series) BinWidthSec() float64 { return s.widthSec }

// All returns a restartable iterator over the bins in time order.
func (s *Series) All() iter.Seq[Bin] {
	return func(yield func(Bin) bool) {
		for i, count := range s.counts {
			start := float64(i) * s.widthSec
			end := math.Min(start+s.widthSec, s.durationSec)
			if !yield(Bin{StartSec: start, EndSec: end, Count: count}) {
				return
			}
		}
	}
}

// Bins materializes the series, for callers that need random access.
func (s *Series) Bins() []Bin {
	bins := make([]Bin, 0, len(s.counts))
	for b := range s.All() {
		bins = append(bins, b)
	}
	return bins
}

// MarshalJSON serializes the series as its materialized bin list.
func (s *Series) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Bins())
}

// UnmarshalJSON rebuilds a series from its materialized bin list.
func (s *Series) UnmarshalJSON(data []byte) error {
	var bins []Bin
	if err := json.Unmarshal(data, &bins); err != nil {
		return err
	}
	s.counts = make([]int, len(bins))
	for i, b := range bins {
		s.counts[i] = b.Count
		if b.EndSec > s.durationSec {
			s.durationSec = b.EndSec
		}
	}
	if len(bins) > 0 {
		s.widthSec = bins[0].EndSec - bins[0].StartSec
	}
	if len(bins) > 1 {
		s.widthSec = bins[1].StartSec - bins[0].StartSec
	}
	return nil
}
