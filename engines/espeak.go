package engines

import (
	"context"
	"fmt"
	"os/exec"
)

// Espeak shells out to espeak/espeak-ng, the zero-credential baseline TTS.
type Espeak struct {
	Binary string
}

func espeakBinary() (string, error) {
	if path, err := exec.LookPath("espeak"); err == nil {
		return path, nil
	}
	if path, err := exec.LookPath("espeak-ng"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("neither espeak nor espeak-ng found in PATH")
}

// Synthesize writes a wav file. Model is not applicable; voice maps to -v.
func (e *Espeak) Synthesize(ctx context.Context, text, outPath string, opts TTSOptions) error {
	args := []string{}
	if opts.Voice != "" {
		args = append(args, "-v", opts.Voice)
	}
	args = append(args, "-w", outPath, text)

	cmd := exec.CommandContext(ctx, e.Binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("espeak: %w: %s", err, string(out))
	}
	return nil
}
