package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumyai/cgcompare/pkg/dataset"
)

func mustMatrix(t *testing.T, text string, header bool) *dataset.DistanceMatrix {
	t.Helper()
	m, err := dataset.ReadDistanceMatrix(strings.NewReader(text), header)
	require.NoError(t, err)
	return m
}

const fiveByFive = "" +
	"S1 0 3 8 12 20\n" +
	"S2 3 0 5 9 17\n" +
	"S3 8 5 0 4 14\n" +
	"S4 12 9 4 0 10\n" +
	"S5 20 17 14 10 0\n"

func TestFindNeighbors(t *testing.T) {
	m := mustMatrix(t, fiveByFive, false)

	tests := []struct {
		name   string
		ids    []string
		cutoff float64
		want   []string
	}{
		{"single", []string{"S1"}, 5, []string{"S2"}},
		{"inclusive cutoff", []string{"S2"}, 5, []string{"S1", "S3"}},
		{"union of inputs", []string{"S1", "S5"}, 10, []string{"S2", "S3", "S4"}},
		{"inputs can be each other's neighbours", []string{"S1", "S2"}, 3, []string{"S1", "S2"}},
		{"zero cutoff", []string{"S3"}, 0, []string{}},
		{"negative cutoff", []string{"S3"}, -1, []string{}},
		{"no input", nil, 100, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindNeighbors(m, tt.ids, tt.cutoff)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindNeighborsScenario(t *testing.T) {
	m := mustMatrix(t, "A 0 5 10\nB 5 0 7\nC 10 7 0\n", false)
	got, err := FindNeighbors(m, []string{"A"}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, got)
}

func TestFindNeighborsNeverReturnsSelf(t *testing.T) {
	m := mustMatrix(t, fiveByFive, false)
	for _, id := range m.RowIDs {
		got, err := FindNeighbors(m, []string{id}, 1e9)
		require.NoError(t, err)
		assert.NotContains(t, got, id)
		assert.Len(t, got, m.Len()-1)
	}
}

func TestFindNeighborsMonotonicInCutoff(t *testing.T) {
	m := mustMatrix(t, fiveByFive, false)
	cutoffs := []float64{0, 3, 4, 5, 9, 10, 14, 20}

	for _, id := range m.RowIDs {
		var prev []string
		for _, c := range cutoffs {
			got, err := FindNeighbors(m, []string{id}, c)
			require.NoError(t, err)
			assert.Subset(t, got, prev, "cutoff %v for %s", c, id)
			prev = got
		}
	}
}

func TestFindNeighborsBelowMinimumDistance(t *testing.T) {
	m := mustMatrix(t, fiveByFive, false)
	got, err := FindNeighbors(m, m.RowIDs, 2.99)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindNeighborsUsesColumnLabels(t *testing.T) {
	// Columns are in reverse order; positional matching would report C for A.
	m := mustMatrix(t, "- C B A\nA 10 5 0\nB 7 0 5\nC 0 7 10\n", true)
	got, err := FindNeighbors(m, []string{"A"}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, got)
}

func TestFindNeighborsUnknownSequence(t *testing.T) {
	m := mustMatrix(t, fiveByFive, false)
	_, err := FindNeighbors(m, []string{"S1", "nope"}, 5)

	var unknown *UnknownSequenceError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nope", unknown.ID)

	assert.Equal(t, []string{"nope"}, MissingSequences(m, []string{"S1", "nope"}))
}
