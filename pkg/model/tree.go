package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/yumyai/cgcompare/logger"
)

// TreeBuilder turns allele profile text (as produced by LookupProfiles) into a
// Newick tree. It is slow and runs outside the process.
type TreeBuilder interface {
	BuildTree(ctx context.Context, profiles string, method string) (string, error)
}

// TreeBuilderFunc adapts a plain function to TreeBuilder.
type TreeBuilderFunc func(ctx context.Context, profiles string, method string) (string, error)

func (f TreeBuilderFunc) BuildTree(ctx context.Context, profiles string, method string) (string, error) {
	return f(ctx, profiles, method)
}

// GrapeTree runs the grapetree command line tool.
type GrapeTree struct {
	// Command is the executable, looked up on PATH when not absolute.
	Command string
	// TempDir is where the profile file is written; empty means os.TempDir.
	TempDir string
}

func NewGrapeTree(command string) *GrapeTree {
	if command == "" {
		command = "grapetree"
	}
	return &GrapeTree{Command: command}
}

// BuildTree runs `<command> --profile <file> --method <method>`. Anything
// on stderr, or a non-zero exit, is an *ExternalToolError holding stderr.
func (g *GrapeTree) BuildTree(ctx context.Context, profiles string, method string) (string, error) {
	if strings.TrimSpace(profiles) == "" {
		return "", errors.New("profile input is empty")
	}

	f, err := os.CreateTemp(g.TempDir, "cgmlst-*.profile")
	if err != nil {
		return "", fmt.Errorf("failed to create profile file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(profiles); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write profile file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write profile file: %w", err)
	}

	args := []string{"--profile", f.Name()}
	if method != "" {
		args = append(args, "--method", method)
	}
	cmd := exec.CommandContext(ctx, g.Command, args...)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	logger.Debug("Running tree builder", zap.String("command", g.Command), zap.Strings("args", args))

	runErr := cmd.Run()
	errText := stderr.String()

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return "", &ExternalToolError{Command: g.Command, ExitCode: exitErr.ExitCode(), Stderr: errText}
		}
		return "", fmt.Errorf("failed to execute %s: %w", g.Command, runErr)
	}
	if strings.TrimSpace(errText) != "" {
		return "", &ExternalToolError{Command: g.Command, Stderr: errText}
	}

	newick := strings.TrimSpace(out.String())
	if newick == "" {
		return "", &ExternalToolError{Command: g.Command, Stderr: g.Command + " produced no tree"}
	}
	return newick, nil
}
