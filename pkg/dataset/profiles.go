package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// MissingCall marks a locus without a confident allele call.
const MissingCall = "-"

// ProfileTable is an allele profile table: one row per sequence (or profile
// hash), one column per locus in file order.
type ProfileTable struct {
	// IDLabel is the header cell above the id column, e.g. "FILE" or "#FILE".
	IDLabel string
	Loci    []string
	IDs     []string
	rows    map[string][]string
}

func NewProfileTable(idLabel string, loci []string) *ProfileTable {
	return &ProfileTable{
		IDLabel: idLabel,
		Loci:    loci,
		rows:    make(map[string][]string),
	}
}

// Add appends a row. It is only used while building a table.
func (t *ProfileTable) Add(id string, calls []string) error {
	if len(calls) != len(t.Loci) {
		return fmt.Errorf("%w: profile %q has %d calls, want %d", ErrRaggedRow, id, len(calls), len(t.Loci))
	}
	if _, dup := t.rows[id]; dup {
		return fmt.Errorf("%w: profile %q", ErrDuplicateID, id)
	}
	t.rows[id] = calls
	t.IDs = append(t.IDs, id)
	return nil
}

func (t *ProfileTable) Len() int {
	return len(t.IDs)
}

// Row returns the allele calls of id in locus order. Do not modify the slice.
func (t *ProfileTable) Row(id string) ([]string, bool) {
	calls, ok := t.rows[id]
	return calls, ok
}

func (t *ProfileTable) Has(id string) bool {
	_, ok := t.rows[id]
	return ok
}

// Header returns the header line fields: id label followed by the loci.
func (t *ProfileTable) Header() []string {
	h := make([]string, 0, len(t.Loci)+1)
	h = append(h, t.IDLabel)
	return append(h, t.Loci...)
}

func ReadProfileTableFile(path string) (*ProfileTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadProfileTable(f)
}

// ReadProfileTable reads a tab separated allele profile table. The first
// non-empty line is the header.
func ReadProfileTable(r io.Reader) (*ProfileTable, error) {
	reader := bufio.NewReaderSize(r, 1<<20)

	var (
		table  *ProfileTable
		lineNo int
	)

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		lineNo++

		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			fields := strings.Split(line, "\t")
			if table == nil {
				if len(fields) < 2 {
					return nil, fmt.Errorf("line %d: header has no loci", lineNo)
				}
				loci := fields[1:]
				seen := make(map[string]struct{}, len(loci))
				for _, l := range loci {
					if _, dup := seen[l]; dup {
						return nil, fmt.Errorf("%w: locus %q", ErrDuplicateID, l)
					}
					seen[l] = struct{}{}
				}
				table = NewProfileTable(fields[0], loci)
			} else if aerr := table.Add(fields[0], fields[1:]); aerr != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, aerr)
			}
		}

		if err == io.EOF {
			break
		}
	}

	if table == nil {
		return nil, ErrEmptyFile
	}
	return table, nil
}
