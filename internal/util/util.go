package util

import (
	"os"
	"strings"
)

func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// NormalizeSpecies turns "Salmonella enterica" into "Salmonella_enterica".
// Every boundary (config, requests, CLI) goes through here.
func NormalizeSpecies(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

// DisplaySpecies is the inverse of NormalizeSpecies.
func DisplaySpecies(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
