package images

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"narrated-video-pipeline/engines"
	"narrated-video-pipeline/store"
	"narrated-video-pipeline/types"
)

type scriptedImage struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

func (f *scriptedImage) Generate(ctx context.Context, prompt, outPath string, opts engines.ImageOptions) error {
	f.mu.Lock()
	f.calls++
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("generation refused")
	}
	return os.WriteFile(outPath, bytes.Repeat([]byte("png"), 50), 0644)
}

type urlSuggester struct {
	url   string
	calls int
}

func (s *urlSuggester) Generate(ctx context.Context, model, prompt string) (string, error) {
	s.calls++
	return "Here you go: " + s.url, nil
}

func testScript() *types.Script {
	return &types.Script{
		Title: "The Water Cycle",
		Sections: []types.Section{
			{Heading: "Evaporation", Narration: "Water rises as vapor.", Duration: 3, Style: "general"},
			{Heading: "Condensation", Narration: "Vapor becomes clouds.", Duration: 3, Style: "photorealistic"},
		},
		Meta: types.Meta{
			Topic:    "The Water Cycle",
			Keywords: []string{"rain", "clouds"},
			Model:    "models/gemini-1.5-pro-latest",
			Image: types.ImageSettings{
				Engine: "fake",
				Size:   "1024x1024",
			},
		},
	}
}

func newTestStage(t *testing.T, engine engines.ImageEngine) (*Stage, string) {
	t.Helper()
	dir := t.TempDir()
	pool, err := ants.NewPool(2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Release)

	registry := engines.NewRegistry(zerolog.Nop(), nil)
	registry.RegisterImage("fake", engine)

	return &Stage{
		Log:         zerolog.Nop(),
		Registry:    registry,
		Ledger:      store.OpenLedger(dir, zerolog.Nop()),
		Pool:        pool,
		ImagesDir:   dir,
		ScriptPath:  filepath.Join(dir, "script.json"),
		UnitTimeout: 10 * time.Second,
	}, dir
}

func TestRunGeneratesAllImages(t *testing.T) {
	st, dir := newTestStage(t, &scriptedImage{})
	script := testScript()

	if err := st.Run(context.Background(), script); err != nil {
		t.Fatalf("Run: %v", err)
	}
	done := st.Ledger.Completed(store.StageImages)
	if !done[1] || !done[2] {
		t.Errorf("units not marked: %v", done)
	}
	if script.Sections[0].ImageFile != "01_Evaporation.png" {
		t.Errorf("filename = %q, want 01_Evaporation.png", script.Sections[0].ImageFile)
	}
	for _, s := range script.Sections {
		if _, err := os.Stat(filepath.Join(dir, s.ImageFile)); err != nil {
			t.Errorf("image file missing: %v", err)
		}
	}
}

func TestRunManifestWrittenBeforeGeneration(t *testing.T) {
	// Every unit fails, yet the plan must already be on disk.
	st, dir := newTestStage(t, &scriptedImage{fail: true})
	script := testScript()

	if err := st.Run(context.Background(), script); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var entries []types.ImageEntry
	if err := store.LoadJSON(filepath.Join(dir, "images.json"), &entries); err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("manifest has %d entries, want 2", len(entries))
	}
	for i, e := range entries {
		if e.SectionIndex != i+1 {
			t.Errorf("entry %d section_index = %d", i, e.SectionIndex)
		}
		if e.Prompt == "" || e.Filename == "" || e.Model == "" {
			t.Errorf("entry %d incomplete: %+v", i, e)
		}
	}
	if len(st.Ledger.Completed(store.StageImages)) != 0 {
		t.Error("failed units marked complete")
	}
}

func TestRunRecoversViaSuggestedURL(t *testing.T) {
	payload := bytes.Repeat([]byte("png"), 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	engine := &scriptedImage{fail: true}
	st, dir := newTestStage(t, engine)
	suggester := &urlSuggester{url: srv.URL + "/picture.png"}
	st.Suggester = suggester
	script := testScript()

	if err := st.Run(context.Background(), script); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if suggester.calls != 2 {
		t.Errorf("suggester called %d times, want once per failed unit", suggester.calls)
	}
	done := st.Ledger.Completed(store.StageImages)
	if !done[1] || !done[2] {
		t.Errorf("recovered units not marked: %v", done)
	}
	for _, s := range script.Sections {
		if s.ImageFile == "" {
			t.Error("recovered section has no image file")
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, s.ImageFile)); err != nil {
			t.Errorf("downloaded image missing: %v", err)
		}
	}
}

func TestRunSkipsCompletedUnits(t *testing.T) {
	engine := &scriptedImage{}
	st, _ := newTestStage(t, engine)
	st.Ledger.MarkUnit(store.StageImages, 1)
	script := testScript()

	if err := st.Run(context.Background(), script); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if engine.calls != 1 {
		t.Errorf("engine called %d times, want 1 (section 1 already done)", engine.calls)
	}
}

func TestFirstURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Sure: https://example.com/a.png", "https://example.com/a.png"},
		{"(http://example.com/b.jpg).", "http://example.com/b.jpg"},
		{"no link here", ""},
	}
	for _, c := range cases {
		if got := firstURL(c.in); got != c.want {
			t.Errorf("firstURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	section := types.Section{
		Heading:   "Evaporation",
		Narration: strings.Repeat("water ", 50),
	}
	prompt := BuildPrompt(section, "The Water Cycle", []string{"rain", "sun"})
	if !strings.HasPrefix(prompt, "Evaporation. ") {
		t.Errorf("prompt does not lead with the heading: %q", prompt)
	}
	if !strings.Contains(prompt, "...") {
		t.Error("long narration not truncated to an excerpt")
	}
	if !strings.Contains(prompt, "rain, sun") {
		t.Error("keywords missing from prompt")
	}
}
