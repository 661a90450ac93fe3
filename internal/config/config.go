// Package config gathers settings from .env, the process environment and the
// YAML species file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yumyai/cgcompare/internal/util"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	DefaultTreeMethod = "MSTreeV2"
)

// Species is one entry of the `species` block in config.yaml.
type Species struct {
	Name string `yaml:"-"`
	// Directory holding distance_matrix.tsv and allele_profiles.tsv, relative to the data dir.
	Cgmlst string `yaml:"cgmlst"`
	// MatrixHeader is set when distance_matrix.tsv starts with a line of column labels.
	MatrixHeader bool `yaml:"matrix_header"`
}

// BifrostAnalysis is one launchable analysis on the HPC cluster.
type BifrostAnalysis struct {
	Identifier string `yaml:"-"`
	Version    string `yaml:"version"`
}

// File is the shape of config.yaml.
type File struct {
	Species         map[string]Species         `yaml:"species"`
	TreeMethods     []string                   `yaml:"tree_methods"`
	BifrostAnalyses map[string]BifrostAnalysis `yaml:"bifrost_analyses"`
}

type HPC struct {
	Hostname      string
	Port          int
	Username      string
	Password      string
	KeyFile       string
	KnownHosts    string
	CommandPrefix string
	ScriptDir     string
	ScriptName    string
}

// Enabled reports whether an HPC host was configured at all.
func (h HPC) Enabled() bool {
	return h.Hostname != ""
}

type Config struct {
	DataDir    string
	ConfigFile string
	Addr       string
	LogLevel   string

	Store      string
	SQLitePath string
	StatusTTL  time.Duration
	StatusCap  int

	Workers   int
	QueueSize int

	TreeBuilderCmd string

	Species         []Species
	TreeMethods     []string
	BifrostAnalyses []BifrostAnalysis
	HPC             HPC
}

// LoadEnv loads .env if present. It returns false when no file was found.
func LoadEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

// Load reads configuration from the environment and the YAML file it points at.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:        getEnv("CGCOMPARE_DATA", "./data"),
		Addr:           getEnv("CGCOMPARE_ADDR", "0.0.0.0:8080"),
		LogLevel:       getEnv("CGCOMPARE_LOG_LEVEL", "info"),
		Store:          getEnv("CGCOMPARE_STORE", StoreMemory),
		StatusTTL:      getDuration("CGCOMPARE_STATUS_TTL", 24*time.Hour),
		StatusCap:      getInt("CGCOMPARE_STATUS_CAP", 10000),
		Workers:        getInt("CGCOMPARE_WORKERS", 4),
		QueueSize:      getInt("CGCOMPARE_QUEUE", 64),
		TreeBuilderCmd: getEnv("TREE_BUILDER_CMD", "grapetree"),
		HPC: HPC{
			Hostname:      os.Getenv("HPC_HOSTNAME"),
			Port:          getInt("HPC_PORT", 22),
			Username:      os.Getenv("HPC_USERNAME"),
			Password:      os.Getenv("HPC_PASSWORD"),
			KeyFile:       os.Getenv("HPC_KEY_FILE"),
			KnownHosts:    os.Getenv("HPC_KNOWN_HOSTS"),
			CommandPrefix: os.Getenv("HPC_COMMAND_PREFIX"),
			ScriptDir:     os.Getenv("BIFROST_SCRIPT_DIR"),
			ScriptName:    getEnv("BIFROST_SCRIPT_NAME", "launch_bifrost.sh"),
		},
	}
	cfg.ConfigFile = getEnv("CGCOMPARE_CONFIG", filepath.Join(cfg.DataDir, "config.yaml"))
	cfg.SQLitePath = getEnv("CGCOMPARE_SQLITE", filepath.Join(cfg.DataDir, "db", "jobs.db"))

	switch cfg.Store {
	case StoreMemory, StoreSQLite:
	default:
		return nil, fmt.Errorf("CGCOMPARE_STORE must be %q or %q, got %q", StoreMemory, StoreSQLite, cfg.Store)
	}

	data, err := os.ReadFile(cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", cfg.ConfigFile, err)
	}
	f, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", cfg.ConfigFile, err)
	}
	cfg.apply(f)
	return cfg, nil
}

// ParseFile parses the YAML content of config.yaml.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (cfg *Config) apply(f *File) {
	cfg.Species = cfg.Species[:0]
	for name, sp := range f.Species {
		sp.Name = util.NormalizeSpecies(name)
		if sp.Cgmlst == "" {
			sp.Cgmlst = sp.Name
		}
		if !filepath.IsAbs(sp.Cgmlst) {
			sp.Cgmlst = filepath.Join(cfg.DataDir, sp.Cgmlst)
		}
		cfg.Species = append(cfg.Species, sp)
	}
	sort.Slice(cfg.Species, func(i, j int) bool { return cfg.Species[i].Name < cfg.Species[j].Name })

	cfg.TreeMethods = f.TreeMethods
	if len(cfg.TreeMethods) == 0 {
		cfg.TreeMethods = []string{DefaultTreeMethod, "MSTree", "NJ", "RapidNJ"}
	}

	cfg.BifrostAnalyses = cfg.BifrostAnalyses[:0]
	for id, a := range f.BifrostAnalyses {
		a.Identifier = id
		cfg.BifrostAnalyses = append(cfg.BifrostAnalyses, a)
	}
	sort.Slice(cfg.BifrostAnalyses, func(i, j int) bool {
		return cfg.BifrostAnalyses[i].Identifier < cfg.BifrostAnalyses[j].Identifier
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
