// Package engines holds the pluggable text-to-speech and image generation
// backends behind an explicit registry. Every engine accepts the same
// options structure and ignores the fields it does not use, so one call
// site serves heterogeneous implementations.
package engines

import (
	"context"
	"fmt"
	"strings"
)

// TTSOptions parameterizes a synthesis call. Engines that take no model or
// voice simply ignore those fields.
type TTSOptions struct {
	Model string
	Voice string
}

// ImageOptions parameterizes an image generation call.
type ImageOptions struct {
	Model   string
	Size    string
	Quality string
}

// TTSEngine writes synthesized narration audio to outPath.
type TTSEngine interface {
	Synthesize(ctx context.Context, text, outPath string, opts TTSOptions) error
}

// ImageEngine writes a generated or fetched image to outPath.
type ImageEngine interface {
	Generate(ctx context.Context, prompt, outPath string, opts ImageOptions) error
}

// UnavailableError means no usable engine exists for a capability. It names
// everything registered so the operator can fix the configuration.
type UnavailableError struct {
	Capability string
	Requested  []string
	Registered []string
	Cause      error
}

func (e *UnavailableError) Error() string {
	msg := fmt.Sprintf("no working %s engine (requested: %s; registered: %s)",
		e.Capability, strings.Join(e.Requested, ", "), strings.Join(e.Registered, ", "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UnavailableError) Unwrap() error { return e.Cause }
