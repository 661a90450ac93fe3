package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DistanceMatrix is a square matrix of pairwise distances. Rows and columns
// both carry labels; lookups go by label, never by assumed position.
type DistanceMatrix struct {
	RowIDs    []string
	ColumnIDs []string
	values    []float64 // row-major, len(RowIDs) * len(ColumnIDs)
	rowIndex  map[string]int
}

// NewDistanceMatrix validates and wraps rows of distances.
// A nil columns slice means "same labels as the rows".
func NewDistanceMatrix(rows []string, columns []string, values [][]float64) (*DistanceMatrix, error) {
	if columns == nil {
		columns = rows
	}
	if len(rows) != len(columns) {
		return nil, fmt.Errorf("%w: %d rows, %d columns", ErrNotSquare, len(rows), len(columns))
	}
	if len(values) != len(rows) {
		return nil, fmt.Errorf("%w: %d labels, %d value rows", ErrNotSquare, len(rows), len(values))
	}

	m := &DistanceMatrix{
		RowIDs:    rows,
		ColumnIDs: columns,
		values:    make([]float64, 0, len(rows)*len(columns)),
		rowIndex:  make(map[string]int, len(rows)),
	}

	for i, id := range rows {
		if _, dup := m.rowIndex[id]; dup {
			return nil, fmt.Errorf("%w: row %q", ErrDuplicateID, id)
		}
		m.rowIndex[id] = i
		if len(values[i]) != len(columns) {
			return nil, fmt.Errorf("%w: row %q has %d distances, want %d", ErrRaggedRow, id, len(values[i]), len(columns))
		}
		m.values = append(m.values, values[i]...)
	}

	seen := make(map[string]struct{}, len(columns))
	for _, id := range columns {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: column %q", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}

	return m, nil
}

func (m *DistanceMatrix) Len() int {
	return len(m.RowIDs)
}

func (m *DistanceMatrix) Has(id string) bool {
	_, ok := m.rowIndex[id]
	return ok
}

// Row returns the distances from id to every column, aligned with ColumnIDs.
// The slice aliases the matrix and must not be modified.
func (m *DistanceMatrix) Row(id string) ([]float64, bool) {
	i, ok := m.rowIndex[id]
	if !ok {
		return nil, false
	}
	n := len(m.ColumnIDs)
	return m.values[i*n : (i+1)*n : (i+1)*n], true
}

// ReadDistanceMatrixFile reads a whitespace separated matrix, first field of
// each line being the row id.
func ReadDistanceMatrixFile(path string, header bool) (*DistanceMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDistanceMatrix(f, header)
}

func ReadDistanceMatrix(r io.Reader, header bool) (*DistanceMatrix, error) {
	reader := bufio.NewReaderSize(r, 1<<20)

	var (
		rows    []string
		columns []string
		values  [][]float64
		lineNo  int
	)

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		lineNo++

		fields := strings.Fields(line)
		if len(fields) > 0 {
			if header && columns == nil {
				columns = fields
			} else {
				dist, perr := parseDistances(fields[1:])
				if perr != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, perr)
				}
				rows = append(rows, fields[0])
				values = append(values, dist)
			}
		}

		if err == io.EOF {
			break
		}
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	// A header may carry a corner cell above the id column.
	if header && len(columns) == len(rows)+1 {
		columns = columns[1:]
	}

	return NewDistanceMatrix(rows, columns, values)
}

func parseDistances(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i+1, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: column %d: %v", ErrNegativeDistance, i+1, v)
		}
		out[i] = v
	}
	return out, nil
}
