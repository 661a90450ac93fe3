// Package dataset holds the per-species cgMLST data the comparative queries run
// against: a distance matrix and the allele profile tables.
//
// Everything in here is read-only once loaded. A reload builds a new Index and
// swaps it into the Registry; a Dataset that readers may hold is never touched.
package dataset

import (
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/yumyai/cgcompare/internal/config"
	"github.com/yumyai/cgcompare/internal/util"
	"github.com/yumyai/cgcompare/logger"
)

const (
	DistanceMatrixFile = "distance_matrix.tsv"
	AlleleProfileFile  = "allele_profiles.tsv"
	HashedProfileFile  = "allele_profiles_hashed.tsv"
)

type Dataset struct {
	Species  string
	Matrix   *DistanceMatrix
	Profiles *ProfileTable
	// HashProfiles is keyed by allele profile hash id. Nil when the species has none.
	HashProfiles *ProfileTable
	LoadedAt     time.Time
}

// Index maps normalised species names to their datasets.
type Index struct {
	datasets map[string]*Dataset
}

// NewIndex builds an index from already loaded datasets. Mostly for tests.
func NewIndex(datasets ...*Dataset) *Index {
	idx := &Index{datasets: make(map[string]*Dataset, len(datasets))}
	for _, ds := range datasets {
		idx.datasets[util.NormalizeSpecies(ds.Species)] = ds
	}
	return idx
}

func (idx *Index) Lookup(species string) (*Dataset, bool) {
	if idx == nil {
		return nil, false
	}
	ds, ok := idx.datasets[util.NormalizeSpecies(species)]
	return ds, ok
}

// Species returns the loaded species names, sorted.
func (idx *Index) Species() []string {
	if idx == nil {
		return nil
	}
	names := make([]string, 0, len(idx.datasets))
	for name := range idx.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads every configured species. Any species that fails makes the whole
// load fail; the returned error combines one *LoadError per failure.
func Load(species []config.Species) (*Index, error) {
	idx := &Index{datasets: make(map[string]*Dataset, len(species))}
	var errs error

	for _, sp := range species {
		ds, err := LoadSpecies(sp)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		idx.datasets[ds.Species] = ds
	}

	if errs != nil {
		return nil, errs
	}
	return idx, nil
}

// LoadSpecies loads the files of a single species directory.
func LoadSpecies(sp config.Species) (*Dataset, error) {
	name := util.NormalizeSpecies(sp.Name)
	ds := &Dataset{Species: name}

	if !util.DirExists(sp.Cgmlst) {
		return nil, &LoadError{Species: name, Path: sp.Cgmlst, Err: ErrNoDirectory}
	}

	matrixPath := filepath.Join(sp.Cgmlst, DistanceMatrixFile)
	start := time.Now()
	logger.Info("Start loading distance matrix", zap.String("species", name), zap.String("path", matrixPath))
	m, err := ReadDistanceMatrixFile(matrixPath, sp.MatrixHeader)
	if err != nil {
		return nil, &LoadError{Species: name, Path: matrixPath, Err: err}
	}
	ds.Matrix = m
	logger.Info("Finished loading distance matrix",
		zap.String("species", name), zap.Int("sequences", m.Len()), zap.Duration("took", time.Since(start)))

	profilePath := filepath.Join(sp.Cgmlst, AlleleProfileFile)
	start = time.Now()
	logger.Info("Start loading allele profiles", zap.String("species", name), zap.String("path", profilePath))
	p, err := ReadProfileTableFile(profilePath)
	if err != nil {
		return nil, &LoadError{Species: name, Path: profilePath, Err: err}
	}
	ds.Profiles = p
	logger.Info("Finished loading allele profiles",
		zap.String("species", name), zap.Int("profiles", p.Len()), zap.Int("loci", len(p.Loci)),
		zap.Duration("took", time.Since(start)))

	hashedPath := filepath.Join(sp.Cgmlst, HashedProfileFile)
	if util.FileExists(hashedPath) {
		h, err := ReadProfileTableFile(hashedPath)
		if err != nil {
			return nil, &LoadError{Species: name, Path: hashedPath, Err: err}
		}
		ds.HashProfiles = h
		logger.Info("Loaded hashed allele profiles", zap.String("species", name), zap.Int("profiles", h.Len()))
	}

	ds.LoadedAt = time.Now()
	return ds, nil
}

// Registry owns the current Index. Readers never lock.
type Registry struct {
	current atomic.Pointer[Index]
}

func NewRegistry(idx *Index) *Registry {
	r := &Registry{}
	r.current.Store(idx)
	return r
}

func (r *Registry) Current() *Index {
	return r.current.Load()
}

// Swap installs a freshly loaded index and returns the previous one.
func (r *Registry) Swap(idx *Index) *Index {
	return r.current.Swap(idx)
}

func (r *Registry) Lookup(species string) (*Dataset, bool) {
	return r.Current().Lookup(species)
}
