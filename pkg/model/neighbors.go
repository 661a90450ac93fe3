package model

import (
	"sort"

	"github.com/yumyai/cgcompare/pkg/dataset"
)

// FindNeighbors returns every sequence within cutoff of any of the input ids.
// A sequence is never reported as its own neighbour, but input ids may show up
// as neighbours of each other. Candidates are named by column label, so the
// result does not depend on rows and columns sharing an order.
//
// The result is sorted; only membership is meaningful.
func FindNeighbors(m *dataset.DistanceMatrix, ids []string, cutoff float64) ([]string, error) {
	found := make(map[string]struct{})

	for _, id := range ids {
		row, ok := m.Row(id)
		if !ok {
			return nil, &UnknownSequenceError{ID: id}
		}
		for col, distance := range row {
			candidate := m.ColumnIDs[col]
			if distance <= cutoff && candidate != id {
				found[candidate] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(found))
	for id := range found {
		result = append(result, id)
	}
	sort.Strings(result)
	return result, nil
}

// MissingSequences returns the ids that are not rows of m, in input order.
func MissingSequences(m *dataset.DistanceMatrix, ids []string) []string {
	var missing []string
	for _, id := range ids {
		if !m.Has(id) {
			missing = append(missing, id)
		}
	}
	return missing
}
