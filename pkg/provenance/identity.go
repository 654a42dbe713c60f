package provenance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoIdentity is returned when the operator name is not configured.
var ErrNoIdentity = errors.New("operator identity not configured")

// IdentityProvider resolves the name of the operator running the tool.
type IdentityProvider interface {
	Identity(ctx context.Context) (string, error)
}

// CommandRunner runs a command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// GitIdentity reads the global git user.name.
type GitIdentity struct {
	run CommandRunner
}

// NewGitIdentity returns a provider backed by the git CLI. A nil runner
// executes the real binary.
func NewGitIdentity(run CommandRunner) *GitIdentity {
	if run == nil {
		run = runCommand
	}
	return &GitIdentity{run: run}
}

func (g *GitIdentity) Identity(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "git", "config", "--global", "user.name")
	if err != nil {
		return "", fmt.Errorf("resolve git user: %w", err)
	}
	name := strings.TrimSpace(string(out))
	if name == "" {
		return "", ErrNoIdentity
	}
	return name, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, name, args...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %w (stderr: %s)",
			name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// StaticIdentity always reports the same operator.
type StaticIdentity string

func (s StaticIdentity) Identity(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrNoIdentity
	}
	return string(s), nil
}
