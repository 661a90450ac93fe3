package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumyai/cgcompare/internal/config"
)

const (
	testMatrix   = "A 0 5 10\nB 5 0 7\nC 10 7 0\n"
	testProfiles = "FILE\tlocus1\tlocus2\tlocus3\n" +
		"A\t1\t2\t-\n" +
		"B\t1\t3\t-\n" +
		"C\t4\t2\t5\n"
)

func writeSpecies(t *testing.T, matrix, profiles string) string {
	t.Helper()
	dir := t.TempDir()
	if matrix != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, DistanceMatrixFile), []byte(matrix), 0o644))
	}
	if profiles != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, AlleleProfileFile), []byte(profiles), 0o644))
	}
	return dir
}

func TestReadDistanceMatrix(t *testing.T) {
	m, err := ReadDistanceMatrix(strings.NewReader(testMatrix), false)
	require.NoError(t, err)

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []string{"A", "B", "C"}, m.ColumnIDs)

	row, ok := m.Row("B")
	require.True(t, ok)
	assert.Equal(t, []float64{5, 0, 7}, row)

	_, ok = m.Row("Z")
	assert.False(t, ok)
}

func TestReadDistanceMatrixWithHeader(t *testing.T) {
	// Columns deliberately in a different order than the rows.
	in := "ID C A B\nA 10 0 5\nB 7 5 0\nC 0 10 7\n"
	m, err := ReadDistanceMatrix(strings.NewReader(in), true)
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "A", "B"}, m.ColumnIDs)
	row, _ := m.Row("A")
	assert.Equal(t, []float64{10, 0, 5}, row)
}

func TestReadDistanceMatrixErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "\n\n", ErrEmptyFile},
		{"not square", "A 0 1\nB 1 0\nC 1 1\n", ErrRaggedRow},
		{"duplicate row", "A 0 1\nA 1 0\n", ErrDuplicateID},
		{"negative", "A 0 -1\nB 1 0\n", ErrNegativeDistance},
		{"not a number", "A 0 x\nB 1 0\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDistanceMatrix(strings.NewReader(tt.input), false)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestReadProfileTable(t *testing.T) {
	table, err := ReadProfileTable(strings.NewReader(testProfiles))
	require.NoError(t, err)

	assert.Equal(t, "FILE", table.IDLabel)
	assert.Equal(t, []string{"locus1", "locus2", "locus3"}, table.Loci)
	assert.Equal(t, []string{"A", "B", "C"}, table.IDs)
	assert.Equal(t, []string{"FILE", "locus1", "locus2", "locus3"}, table.Header())

	row, ok := table.Row("A")
	require.True(t, ok)
	assert.Equal(t, []string{"1", "2", MissingCall}, row)
}

func TestReadProfileTableErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrEmptyFile},
		{"ragged", "FILE\tl1\tl2\nA\t1\n", ErrRaggedRow},
		{"duplicate id", "FILE\tl1\nA\t1\nA\t2\n", ErrDuplicateID},
		{"duplicate locus", "FILE\tl1\tl1\nA\t1\t2\n", ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadProfileTable(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := writeSpecies(t, testMatrix, testProfiles)
	require.NoError(t, os.WriteFile(filepath.Join(dir, HashedProfileFile),
		[]byte("FILE\tlocus1\tlocus2\tlocus3\nh1\t1\t2\t3\n"), 0o644))

	idx, err := Load([]config.Species{{Name: "Salmonella enterica", Cgmlst: dir}})
	require.NoError(t, err)

	assert.Equal(t, []string{"Salmonella_enterica"}, idx.Species())

	ds, ok := idx.Lookup("Salmonella enterica")
	require.True(t, ok)
	assert.Equal(t, 3, ds.Matrix.Len())
	assert.Equal(t, 3, ds.Profiles.Len())
	require.NotNil(t, ds.HashProfiles)
	assert.True(t, ds.HashProfiles.Has("h1"))

	_, ok = idx.Lookup("Listeria")
	assert.False(t, ok)
}

func TestLoadReportsEveryBrokenSpecies(t *testing.T) {
	good := writeSpecies(t, testMatrix, testProfiles)
	noProfiles := writeSpecies(t, testMatrix, "")
	badMatrix := writeSpecies(t, "A 0 1\n", testProfiles)

	_, err := Load([]config.Species{
		{Name: "good", Cgmlst: good},
		{Name: "no_profiles", Cgmlst: noProfiles},
		{Name: "bad_matrix", Cgmlst: badMatrix},
		{Name: "missing", Cgmlst: filepath.Join(t.TempDir(), "nope")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoDirectory)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, err.Error(), "no_profiles")
	assert.Contains(t, err.Error(), "bad_matrix")
	assert.NotContains(t, err.Error(), "dataset good")
}

func TestRegistrySwap(t *testing.T) {
	first := NewIndex(&Dataset{Species: "one"})
	second := NewIndex(&Dataset{Species: "two"})

	reg := NewRegistry(first)
	held, ok := reg.Lookup("one")
	require.True(t, ok)

	prev := reg.Swap(second)
	assert.Same(t, first, prev)

	_, ok = reg.Lookup("one")
	assert.False(t, ok)
	_, ok = reg.Lookup("two")
	assert.True(t, ok)

	// A dataset obtained before the swap stays usable.
	assert.Equal(t, "one", held.Species)
}
