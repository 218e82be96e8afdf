// Package assembly turns completed sections into timed video segments and
// concatenates them into the final file with ffmpeg.
package assembly

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"narrated-video-pipeline/config"
	"narrated-video-pipeline/store"
	"narrated-video-pipeline/types"
)

// Error is fatal for the assembly stage: zero usable segments or a failed
// concatenation.
type Error struct {
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return "video assembly failed: " + e.Reason + ": " + e.Cause.Error()
	}
	return "video assembly failed: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Cause }

// Runner executes an encoder command. Injectable so tests run without
// ffmpeg installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner shells out, streaming encoder noise to stderr.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

type Stage struct {
	Log       zerolog.Logger
	Cfg       *config.Config
	Ledger    *store.Ledger
	Runner    Runner
	AudioDir  string
	ImagesDir string
	VideoDir  string
}

// Run builds one segment per assemblable section and concatenates them in
// section order. Sections missing audio, image or a positive duration are
// skipped with a warning; the stage fails only when nothing is assemblable.
// The scratch directory is removed on every exit path.
func (st *Stage) Run(ctx context.Context, script *types.Script) (string, error) {
	finalPath := filepath.Join(st.VideoDir, st.Cfg.Video.FinalName)
	if st.Ledger.VideoDone() {
		st.Log.Info().Str("video", finalPath).Msg("video already assembled, skipping")
		return finalPath, nil
	}

	scratch := filepath.Join(st.VideoDir, "segments_"+uuid.NewString()[:8])
	if _, err := store.EnsureDir(scratch); err != nil {
		return "", &Error{Reason: "create scratch dir", Cause: err}
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			st.Log.Warn().Err(err).Str("dir", scratch).Msg("could not clean scratch dir")
		}
	}()

	segments, err := st.createSegments(ctx, script.Sections, scratch)
	if err != nil {
		return "", err
	}
	if len(segments) == 0 {
		return "", &Error{Reason: "no valid video segments to assemble"}
	}

	if err := st.concatenate(ctx, segments, scratch, finalPath); err != nil {
		return "", err
	}

	st.Ledger.MarkVideo()
	st.Log.Info().Str("video", finalPath).Int("segments", len(segments)).Msg("video assembled")
	return finalPath, nil
}

func (st *Stage) createSegments(ctx context.Context, sections []types.Section, scratch string) ([]string, error) {
	var segments []string
	for i, section := range sections {
		idx := i + 1
		if section.ImageFile == "" || section.SoundFile == "" || section.Duration <= 0 {
			st.Log.Warn().Int("section", idx).Msg("skipping section: missing image, audio or duration")
			continue
		}
		imgPath := filepath.Join(st.ImagesDir, section.ImageFile)
		audioPath := filepath.Join(st.AudioDir, section.SoundFile)
		if err := store.FileExists(imgPath, fmt.Sprintf("image for section %d", idx)); err != nil {
			st.Log.Warn().Err(err).Int("section", idx).Msg("skipping section")
			continue
		}
		if err := store.FileExists(audioPath, fmt.Sprintf("audio for section %d", idx)); err != nil {
			st.Log.Warn().Err(err).Int("section", idx).Msg("skipping section")
			continue
		}

		segPath := filepath.Join(scratch, fmt.Sprintf("segment_%02d.mp4", idx))
		if err := st.makeSegment(ctx, imgPath, audioPath, section.Duration, segPath); err != nil {
			st.Log.Error().Err(err).Int("section", idx).Msg("segment encoding failed, section excluded")
			continue
		}
		segments = append(segments, segPath)
	}
	return segments, nil
}

// makeSegment loops the still image for the section duration and muxes the
// narration track, scaled to the configured resolution.
func (st *Stage) makeSegment(ctx context.Context, imgPath, audioPath string, duration float64, outPath string) error {
	v := st.Cfg.Video
	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		v.Width, v.Height, v.Width, v.Height)

	return st.Runner.Run(ctx, "ffmpeg",
		"-y",
		"-loop", "1",
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", imgPath,
		"-i", audioPath,
		"-c:v", v.VideoCodec,
		"-tune", "stillimage",
		"-c:a", v.AudioCodec,
		"-pix_fmt", v.PixelFormat,
		"-vf", scale,
		"-r", fmt.Sprintf("%d", v.FPS),
		"-t", fmt.Sprintf("%.3f", duration),
		"-shortest",
		outPath,
	)
}

// concatenate stream-copies the segments in order; no re-encode.
func (st *Stage) concatenate(ctx context.Context, segments []string, scratch, finalPath string) error {
	var lines []string
	for _, seg := range segments {
		abs, err := filepath.Abs(seg)
		if err != nil {
			abs = seg
		}
		lines = append(lines, fmt.Sprintf("file '%s'", abs))
	}
	listPath := filepath.Join(scratch, "concat_list.txt")
	if err := os.WriteFile(listPath, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return &Error{Reason: "write concat list", Cause: err}
	}

	st.Log.Info().Int("segments", len(segments)).Msg("concatenating segments")
	err := st.Runner.Run(ctx, "ffmpeg",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		finalPath,
	)
	if err != nil {
		return &Error{Reason: "concatenate segments", Cause: err}
	}
	return nil
}
