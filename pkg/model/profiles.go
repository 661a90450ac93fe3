package model

import (
	"strings"

	"github.com/yumyai/cgcompare/pkg/dataset"
)

// HeaderLiteral is how chewBBACA labels the id column. It can leak into the
// data when tables are concatenated and is never an allele call.
const HeaderLiteral = "#FILE"

// LookupProfiles renders the rows of wanted as the tab separated text the tree
// builder reads: a header line, then one line per id in request order.
// Every id must exist; a partial profile set would give a misleading tree.
func LookupProfiles(t *dataset.ProfileTable, wanted []string) (string, error) {
	if missing := MissingProfiles(t, wanted); len(missing) > 0 {
		return "", &ProfileNotFoundError{IDs: missing}
	}

	var b strings.Builder
	b.WriteString(strings.Join(t.Header(), "\t"))
	b.WriteByte('\n')

	for _, id := range wanted {
		calls, _ := t.Row(id)
		b.WriteString(id)
		for _, c := range calls {
			b.WriteByte('\t')
			b.WriteString(c)
		}
		b.WriteByte('\n')
	}

	return b.String(), nil
}

// MissingProfiles returns the ids without a row in t, in input order.
func MissingProfiles(t *dataset.ProfileTable, ids []string) []string {
	var missing []string
	for _, id := range ids {
		if !t.Has(id) {
			missing = append(missing, id)
		}
	}
	return missing
}

// DiffProfiles returns the loci, in column order, whose calls are not all the
// same across the selected profiles, plus every locus with a missing call.
func DiffProfiles(t *dataset.ProfileTable, selected []string) ([]string, error) {
	if missing := MissingProfiles(t, selected); len(missing) > 0 {
		return nil, &ProfileNotFoundError{IDs: missing}
	}

	rows := make([][]string, len(selected))
	for i, id := range selected {
		rows[i], _ = t.Row(id)
	}

	var loci []string
	for col, locus := range t.Loci {
		if locusDiffers(rows, col, t.IDLabel) {
			loci = append(loci, locus)
		}
	}
	return loci, nil
}

func locusDiffers(rows [][]string, col int, idLabel string) bool {
	var (
		prev   string
		seeded bool
	)
	for _, row := range rows {
		value := row[col]
		if value == HeaderLiteral || (idLabel != "" && value == idLabel) {
			continue
		}
		if value == dataset.MissingCall {
			return true
		}
		if seeded && value != prev {
			return true
		}
		prev, seeded = value, true
	}
	return false
}

// DiffResult is the differing loci together with the calls of each selected
// profile at those loci.
type DiffResult struct {
	Loci  []string                     `json:"loci"`
	Table map[string]map[string]string `json:"table"`
}

// DiffTable is DiffProfiles plus the sub-table restricted to the differing loci,
// keyed locus -> profile id -> call.
func DiffTable(t *dataset.ProfileTable, selected []string) (*DiffResult, error) {
	loci, err := DiffProfiles(t, selected)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(t.Loci))
	for i, l := range t.Loci {
		index[l] = i
	}

	res := &DiffResult{Loci: loci, Table: make(map[string]map[string]string, len(loci))}
	if res.Loci == nil {
		res.Loci = []string{}
	}
	for _, locus := range loci {
		col := index[locus]
		calls := make(map[string]string, len(selected))
		for _, id := range selected {
			row, _ := t.Row(id)
			calls[id] = row[col]
		}
		res.Table[locus] = calls
	}
	return res, nil
}
