// Package pkgbuild runs the wheel build that precedes the image build. The
// packaging tool itself is opaque: any command that drops a *.whl into the
// dist directory works.
package pkgbuild

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/aswathsr101/djl-publisher/internal/errors"
)

// Builder runs a package build command and locates the produced wheel.
type Builder struct {
	// Command is the build invocation, argv style.
	Command []string
	// Dir is the working directory for the command.
	Dir string
	// DistDir is where wheels land, relative to Dir.
	DistDir string
}

// Build runs the command and returns the path of the newest wheel in the
// dist directory. A non-zero exit or a missing wheel aborts the run.
func (b *Builder) Build(ctx context.Context) (string, error) {
	if len(b.Command) == 0 {
		return "", fmt.Errorf("pkgbuild: no build command configured")
	}

	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("command", strings.Join(b.Command, " ")).
		Str("dir", b.Dir).
		Msg("Building wheel")

	cmd := exec.CommandContext(ctx, b.Command[0], b.Command[1:]...)
	cmd.Dir = b.Dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("package build failed: %w", err)
	}

	wheel, err := newestWheel(filepath.Join(b.Dir, b.DistDir))
	if err != nil {
		return "", err
	}

	logger.Info().
		Str("wheel", wheel).
		Dur("elapsed", time.Since(start)).
		Msg("Wheel built")
	return wheel, nil
}

// newestWheel returns the most recently modified *.whl under dir.
func newestWheel(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.whl"))
	if err != nil {
		return "", fmt.Errorf("scanning %s for wheels: %w", dir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: looked in %s", apperrors.ErrNoWheelArtifact, dir)
	}

	newest := ""
	var newestMod time.Time
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = path
			newestMod = info.ModTime()
		}
	}
	return newest, nil
}
