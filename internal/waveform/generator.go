// Package waveform shells out to the audiowaveform CLI to compute peak data
// for uploaded tracks.
package waveform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Generator runs the external audiowaveform binary.
type Generator struct {
	binary          string
	pixelsPerSecond int
	bits            int
}

// NewGenerator creates a generator. binary may be empty to use
// "audiowaveform" from PATH.
func NewGenerator(binary string) *Generator {
	if binary == "" {
		binary = "audiowaveform"
	}
	return &Generator{
		binary:          binary,
		pixelsPerSecond: 20,
		bits:            8,
	}
}

// Available reports whether the binary can be found.
func (g *Generator) Available() error {
	if _, err := exec.LookPath(g.binary); err != nil {
		return fmt.Errorf("audiowaveform binary not found: %w", err)
	}
	return nil
}

// Generate writes the audio to a temp file, runs audiowaveform on it, and
// returns the JSON peak data. Temp files are always cleaned up.
func (g *Generator) Generate(ctx context.Context, audioData []byte, extension string) (string, error) {
	if extension == "" {
		extension = ".mp3"
	}

	in, err := os.CreateTemp("", "wave-audio-*"+extension)
	if err != nil {
		return "", fmt.Errorf("waveform: create temp input: %w", err)
	}
	defer os.Remove(in.Name())

	if _, err := in.Write(audioData); err != nil {
		in.Close()
		return "", fmt.Errorf("waveform: write temp input: %w", err)
	}
	in.Close()

	outPath := filepath.Join(os.TempDir(), filepath.Base(in.Name())+".json")
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, g.binary,
		"-i", in.Name(),
		"-o", outPath,
		"--pixels-per-second", strconv.Itoa(g.pixelsPerSecond),
		"--bits", strconv.Itoa(g.bits),
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("waveform: audiowaveform failed: %w: %s", err, out)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("waveform: read output: %w", err)
	}
	if !json.Valid(data) {
		return "", fmt.Errorf("waveform: audiowaveform produced invalid JSON")
	}
	return string(data), nil
}
