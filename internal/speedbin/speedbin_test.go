package speedbin

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefault(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(DefaultBins())
	require.NoError(t, err)
	return c
}

func TestClassify(t *testing.T) {
	c := newDefault(t)

	tests := []struct {
		name   string
		speed  float64
		bin    int
		exists bool
	}{
		{"below ladder", 49.9, 0, false},
		{"lower bound inclusive", 50, 0, true},
		{"upper bound exclusive", 80, 1, true},
		{"mid range", 130, 3, true},
		{"just under 200", 199.99, 4, true},
		{"open ended", 200, 5, true},
		{"very fast", 450, 5, true},
		{"NaN", math.NaN(), 0, false},
		{"zero", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin, ok := c.Classify(tt.speed)
			assert.Equal(t, tt.exists, ok)
			if tt.exists {
				assert.Equal(t, tt.bin, bin)
			}
		})
	}
}

func TestClassifyLastBinIsOpenEnded(t *testing.T) {
	c, err := NewClassifier([]Bin{
		{Label: "slow", Min: 0, Max: 10},
		{Label: "fast", Min: 10, Max: 20},
	})
	require.NoError(t, err)

	bin, ok := c.Classify(35)
	require.True(t, ok)
	assert.Equal(t, 1, bin)
}

func TestHighlightUnion(t *testing.T) {
	c := newDefault(t)
	speeds := []float64{0, 55, 125, 159.9, 160, 199, 200, 90, 130}

	sel := NewSelection()
	assert.True(t, sel.Toggle(3))
	assert.True(t, sel.Toggle(4))

	got := c.Highlight(speeds, sel)
	assert.Equal(t, []int{2, 3, 4, 5, 8}, got)

	for i, s := range speeds {
		want := (s >= 120 && s < 160) || (s >= 160 && s < 200)
		assert.Equal(t, want, contains(got, i), "index %d speed %v", i, s)
	}

	assert.False(t, sel.Toggle(3))
	assert.False(t, sel.Toggle(4))
	empty := c.Highlight(speeds, sel)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestHighlightNilSelection(t *testing.T) {
	c := newDefault(t)
	got := c.Highlight([]float64{100, 200}, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSegments(t *testing.T) {
	assert.Equal(t, [][2]int{{1, 2}, {4, 5}}, Segments([]int{0, 2, 5}))
	assert.Empty(t, Segments(nil))
}

func TestSelection(t *testing.T) {
	sel := NewSelection(5, 1)
	assert.Equal(t, 2, sel.Len())
	assert.Equal(t, []int{1, 5}, sel.Indices())
	assert.True(t, sel.Has(5))

	sel.Clear()
	assert.Equal(t, 0, sel.Len())

	var zero Selection
	assert.True(t, zero.Toggle(2))
	assert.True(t, zero.Has(2))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		bins    []Bin
		wantErr bool
	}{
		{"default ladder", DefaultBins(), false},
		{"empty", nil, true},
		{"inverted bin", []Bin{{Label: "x", Min: 10, Max: 5}, {Label: "y", Min: 10, Max: math.Inf(1)}}, true},
		{"open ended in the middle", []Bin{{Label: "x", Min: 0, Max: math.Inf(1)}, {Label: "y", Min: 10, Max: 20}}, true},
		{"NaN bound", []Bin{{Label: "x", Min: math.NaN(), Max: 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.bins)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.ErrorIs(t, Validate(nil), ErrNoBins)
}

func TestBinJSON(t *testing.T) {
	data, err := json.Marshal(DefaultBins()[4:])
	require.NoError(t, err)
	assert.JSONEq(t, `[{"label":"160–200","min":160,"max":200},{"label":"200+","min":200,"max":null}]`, string(data))

	var bins []Bin
	require.NoError(t, json.Unmarshal([]byte(`[{"label":"a","min":0,"max":5},{"label":"b","min":5}]`), &bins))
	require.Len(t, bins, 2)
	assert.Equal(t, 5.0, bins[0].Max)
	assert.True(t, math.IsInf(bins[1].Max, 1))
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
