package assembly

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"narrated-video-pipeline/config"
	"narrated-video-pipeline/store"
	"narrated-video-pipeline/types"
)

// recordingRunner captures encoder invocations instead of shelling out.
type recordingRunner struct {
	invocations [][]string
	failWhen    func(args []string) bool
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) error {
	all := append([]string{name}, args...)
	r.invocations = append(r.invocations, all)
	if r.failWhen != nil && r.failWhen(args) {
		return fmt.Errorf("encoder exploded")
	}
	return nil
}

func newTestStage(t *testing.T) (*Stage, *recordingRunner) {
	t.Helper()
	base := t.TempDir()
	runner := &recordingRunner{}
	st := &Stage{
		Log:       zerolog.Nop(),
		Cfg:       config.Default(),
		Ledger:    store.OpenLedger(base, zerolog.Nop()),
		Runner:    runner,
		AudioDir:  mustDir(t, base, "audio"),
		ImagesDir: mustDir(t, base, "images"),
		VideoDir:  mustDir(t, base, "video"),
	}
	return st, runner
}

func mustDir(t *testing.T, base, name string) string {
	t.Helper()
	dir, err := store.EnsureDir(filepath.Join(base, name))
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func (st *Stage) seedSection(t *testing.T, idx int, heading string) types.Section {
	t.Helper()
	sound := fmt.Sprintf("%02d_%s.wav", idx, heading)
	image := fmt.Sprintf("%02d_%s.png", idx, heading)
	for _, f := range []struct{ dir, name string }{
		{st.AudioDir, sound},
		{st.ImagesDir, image},
	} {
		if err := os.WriteFile(filepath.Join(f.dir, f.name), []byte("stub"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return types.Section{
		Heading: heading, Narration: "text", Duration: 3,
		SoundFile: sound, ImageFile: image,
	}
}

func TestRunAssemblesSegmentsInOrder(t *testing.T) {
	st, runner := newTestStage(t)
	script := &types.Script{Sections: []types.Section{
		st.seedSection(t, 1, "Intro"),
		st.seedSection(t, 2, "Outro"),
	}}

	finalPath, err := st.Run(context.Background(), script)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if filepath.Base(finalPath) != "final_video.mp4" {
		t.Errorf("final path = %q", finalPath)
	}

	// Two segment encodes plus one concatenation.
	if len(runner.invocations) != 3 {
		t.Fatalf("runner invoked %d times, want 3", len(runner.invocations))
	}
	for i := 0; i < 2; i++ {
		args := strings.Join(runner.invocations[i], " ")
		if !strings.Contains(args, "-loop 1") || !strings.Contains(args, "-tune stillimage") {
			t.Errorf("segment invocation %d missing still-image flags: %s", i, args)
		}
	}
	concat := strings.Join(runner.invocations[2], " ")
	if !strings.Contains(concat, "-f concat") || !strings.Contains(concat, "-c copy") {
		t.Errorf("concatenation not a stream copy: %s", concat)
	}
	if !st.Ledger.VideoDone() {
		t.Error("ledger not marked after assembly")
	}
}

func TestRunSkipsIncompleteSections(t *testing.T) {
	st, runner := newTestStage(t)
	incomplete := types.Section{Heading: "NoAssets", Narration: "text", Duration: 3}
	script := &types.Script{Sections: []types.Section{
		st.seedSection(t, 1, "Intro"),
		incomplete,
		st.seedSection(t, 3, "Outro"),
	}}

	if _, err := st.Run(context.Background(), script); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runner.invocations) != 3 {
		t.Errorf("runner invoked %d times, want 2 segments + concat", len(runner.invocations))
	}
}

func TestRunFailsWithZeroSegments(t *testing.T) {
	st, runner := newTestStage(t)
	script := &types.Script{Sections: []types.Section{
		{Heading: "A", Narration: "text", Duration: 3},
		{Heading: "B", Narration: "text", SoundFile: "missing.wav", ImageFile: "missing.png", Duration: 3},
	}}

	_, err := st.Run(context.Background(), script)
	if err == nil {
		t.Fatal("expected error with no assemblable sections")
	}
	if _, ok := err.(*Error); !ok {
		t.Errorf("got %T, want *Error", err)
	}
	if len(runner.invocations) != 0 {
		t.Errorf("encoder invoked %d times for zero segments", len(runner.invocations))
	}
	if st.Ledger.VideoDone() {
		t.Error("ledger marked despite failure")
	}
}

func TestRunExcludesFailedSegmentEncode(t *testing.T) {
	st, runner := newTestStage(t)
	runner.failWhen = func(args []string) bool {
		return strings.Contains(strings.Join(args, " "), "01_Intro")
	}
	script := &types.Script{Sections: []types.Section{
		st.seedSection(t, 1, "Intro"),
		st.seedSection(t, 2, "Outro"),
	}}

	if _, err := st.Run(context.Background(), script); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Failed encode, successful encode, concat.
	if len(runner.invocations) != 3 {
		t.Errorf("runner invoked %d times, want 3", len(runner.invocations))
	}
}

func TestRunShortCircuitsWhenDone(t *testing.T) {
	st, runner := newTestStage(t)
	st.Ledger.MarkVideo()
	script := &types.Script{Sections: []types.Section{st.seedSection(t, 1, "Intro")}}

	finalPath, err := st.Run(context.Background(), script)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if finalPath == "" {
		t.Error("short circuit returned empty path")
	}
	if len(runner.invocations) != 0 {
		t.Errorf("encoder invoked %d times on a completed run", len(runner.invocations))
	}
}

func TestRunCleansScratchDir(t *testing.T) {
	st, _ := newTestStage(t)
	script := &types.Script{Sections: []types.Section{st.seedSection(t, 1, "Intro")}}

	if _, err := st.Run(context.Background(), script); err != nil {
		t.Fatalf("Run: %v", err)
	}
	entries, err := os.ReadDir(st.VideoDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "segments_") {
			t.Errorf("scratch dir %s left behind", e.Name())
		}
	}
}
