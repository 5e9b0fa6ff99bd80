package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var (
	// ErrGeneratorNotConfigured means the generator executable or the SIMPL+
	// directory is unset or missing.
	ErrGeneratorNotConfigured = errors.New("API generator not configured")

	// ErrGenerationFailed means the generator ran and exited non-zero.
	ErrGenerationFailed = errors.New("API generation failed")
)

// workDir is the folder next to a program where generated files land.
const workDir = "SPlsWork"

// APIPath is where the generator writes the API file for a .clz library.
func APIPath(clz string) string {
	name := strings.TrimSuffix(filepath.Base(clz), filepath.Ext(clz))
	return filepath.Join(filepath.Dir(clz), workDir, name+".api")
}

// clzForAPI maps a generated API file back to its library.
func clzForAPI(api string) string {
	name := strings.TrimSuffix(filepath.Base(api), filepath.Ext(api))
	return filepath.Join(filepath.Dir(filepath.Dir(api)), name+".clz")
}

// generate runs "<generator> <clz> <simplDirectory>".
func (ix *Index) generate(ctx context.Context, clz string) error {
	if ix.generator == "" {
		return fmt.Errorf("%w: no generator set", ErrGeneratorNotConfigured)
	}
	if ix.simplDir == "" {
		return fmt.Errorf("%w: no SIMPL+ directory set", ErrGeneratorNotConfigured)
	}
	if _, err := os.Stat(ix.simplDir); err != nil {
		return fmt.Errorf("%w: SIMPL+ directory %s not found", ErrGeneratorNotConfigured, ix.simplDir)
	}
	path, err := exec.LookPath(ix.generator)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneratorNotConfigured, err)
	}

	cmd := exec.CommandContext(ctx, path, clz, ix.simplDir)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	ix.logger.Debug("generating API", "library", clz)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited with code %d: %s",
				ErrGenerationFailed, filepath.Base(clz), exitErr.ExitCode(), strings.TrimSpace(output.String()))
		}
		return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return nil
}
