// Package speedbin partitions speed readings into labelled ranges and answers
// multi-select highlight queries over a speed series.
package speedbin

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Bin is a labelled half-open speed range [Min, Max) in km/h. The last bin of
// a ladder is treated as [Min, +Inf) whatever its Max.
type Bin struct {
	Label string
	Min   float64
	Max   float64
}

type binJSON struct {
	Label string   `json:"label"`
	Min   float64  `json:"min"`
	Max   *float64 `json:"max"`
}

// MarshalJSON writes an infinite Max as null.
func (b Bin) MarshalJSON() ([]byte, error) {
	out := binJSON{Label: b.Label, Min: b.Min}
	if !math.IsInf(b.Max, 1) {
		max := b.Max
		out.Max = &max
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null or missing max as +Inf.
func (b *Bin) UnmarshalJSON(data []byte) error {
	var in binJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	b.Label = in.Label
	b.Min = in.Min
	b.Max = math.Inf(1)
	if in.Max != nil {
		b.Max = *in.Max
	}
	return nil
}

// DefaultBins returns the six-bin ladder from 50 km/h upward.
func DefaultBins() []Bin {
	return []Bin{
		{Label: "50–80", Min: 50, Max: 80},
		{Label: "80–100", Min: 80, Max: 100},
		{Label: "100–120", Min: 100, Max: 120},
		{Label: "120–160", Min: 120, Max: 160},
		{Label: "160–200", Min: 160, Max: 200},
		{Label: "200+", Min: 200, Max: math.Inf(1)},
	}
}

// ErrNoBins is returned when a classifier is built from an empty ladder.
var ErrNoBins = errors.New("speed bin ladder is empty")

// Validate checks that every bin is a usable range. Only the final bin may be
// open-ended.
func Validate(bins []Bin) error {
	if len(bins) == 0 {
		return ErrNoBins
	}
	for i, b := range bins {
		if math.IsNaN(b.Min) || math.IsNaN(b.Max) {
			return fmt.Errorf("bin %d (%q): bounds must be numbers", i, b.Label)
		}
		last := i == len(bins)-1
		if !last && math.IsInf(b.Max, 1) {
			return fmt.Errorf("bin %d (%q): only the last bin may be open-ended", i, b.Label)
		}
		if b.Max <= b.Min {
			return fmt.Errorf("bin %d (%q): max %.1f must exceed min %.1f", i, b.Label, b.Max, b.Min)
		}
	}
	return nil
}

// Classifier maps speeds onto an ordered bin ladder.
type Classifier struct {
	bins []Bin
}

// NewClassifier validates bins and returns a classifier over a private copy.
func NewClassifier(bins []Bin) (*Classifier, error) {
	if err := Validate(bins); err != nil {
		return nil, err
	}
	cp := make([]Bin, len(bins))
	copy(cp, bins)
	return &Classifier{bins: cp}, nil
}

// Bins returns a copy of the configured ladder.
func (c *Classifier) Bins() []Bin {
	out := make([]Bin, len(c.bins))
	copy(out, c.bins)
	return out
}

// Len returns the number of bins.
func (c *Classifier) Len() int {
	return len(c.bins)
}

// Classify returns the index of the first bin containing speed.
func (c *Classifier) Classify(speed float64) (int, bool) {
	if math.IsNaN(speed) {
		return 0, false
	}
	last := len(c.bins) - 1
	for i, b := range c.bins {
		if speed < b.Min {
			continue
		}
		if i == last || speed < b.Max {
			return i, true
		}
	}
	return 0, false
}

// Highlight returns, in ascending order, every index of speeds whose bin is in
// sel. An empty selection yields an empty, non-nil result.
func (c *Classifier) Highlight(speeds []float64, sel *Selection) []int {
	out := []int{}
	if sel == nil || sel.Len() == 0 {
		return out
	}
	for i, s := range speeds {
		if bin, ok := c.Classify(s); ok && sel.Has(bin) {
			out = append(out, i)
		}
	}
	return out
}

// Segments turns highlighted indices into [i-1, i] pairs for trail overlays.
// Index 0 has no predecessor and is skipped.
func Segments(indices []int) [][2]int {
	out := make([][2]int, 0, len(indices))
	for _, i := range indices {
		if i > 0 {
			out = append(out, [2]int{i - 1, i})
		}
	}
	return out
}

// Selection is the set of bins currently chosen for highlighting.
type Selection struct {
	set map[int]struct{}
}

// NewSelection returns a selection holding the given bin indices.
func NewSelection(bins ...int) *Selection {
	s := &Selection{set: make(map[int]struct{}, len(bins))}
	for _, b := range bins {
		s.set[b] = struct{}{}
	}
	return s
}

// Toggle flips membership of bin and reports whether it is now selected.
func (s *Selection) Toggle(bin int) bool {
	if s.set == nil {
		s.set = make(map[int]struct{})
	}
	if _, ok := s.set[bin]; ok {
		delete(s.set, bin)
		return false
	}
	s.set[bin] = struct{}{}
	return true
}

// Has reports whether bin is selected.
func (s *Selection) Has(bin int) bool {
	_, ok := s.set[bin]
	return ok
}

// Len returns the number of selected bins.
func (s *Selection) Len() int {
	return len(s.set)
}

// Clear deselects every bin.
func (s *Selection) Clear() {
	s.set = make(map[int]struct{})
}

// Indices returns the selected bins in ascending order.
func (s *Selection) Indices() []int {
	out := make([]int, 0, len(s.set))
	for b := range s.set {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}
