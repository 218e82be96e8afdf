// Package images plans and generates one illustration per script section.
// Planning (the manifest) is cheap and durable; generation is parallel and
// resumable per unit.
package images

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"narrated-video-pipeline/engines"
	"narrated-video-pipeline/store"
	"narrated-video-pipeline/types"
)

// TextGenerator asks the language model for a direct image URL when both
// registry engines fail; satisfied by the script stage's Gemini client.
type TextGenerator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

type unitResult struct {
	Index int
	Err   error
}

type Stage struct {
	Log         zerolog.Logger
	Registry    *engines.Registry
	Ledger      *store.Ledger
	Pool        *ants.Pool
	ImagesDir   string
	ScriptPath  string
	UnitTimeout time.Duration
	// Recovery path; optional. Model defaults to the script's model.
	Suggester TextGenerator
}

// Run executes both phases. Phase 1 resolves models, filenames and prompts
// for every section and persists the manifest before any generation runs,
// so external tooling can inspect the plan without spending compute.
func (st *Stage) Run(ctx context.Context, script *types.Script) error {
	entries := st.plan(script)
	manifestPath := filepath.Join(st.ImagesDir, "images.json")
	if err := store.SaveJSON(manifestPath, entries); err != nil {
		return err
	}
	st.Log.Info().Int("sections", len(entries)).Msg("image manifest planned")

	completed := st.Ledger.Completed(store.StageImages)

	var wg sync.WaitGroup
	results := make(chan unitResult, len(entries))

	for i := range entries {
		entry := entries[i]
		if completed[entry.SectionIndex] {
			st.Log.Info().Int("section", entry.SectionIndex).Msg("image already generated, skipping")
			continue
		}
		section := &script.Sections[entry.SectionIndex-1]
		wg.Add(1)
		submit := func() {
			defer wg.Done()
			results <- st.runUnit(ctx, entry, section, script.Meta)
		}
		if err := st.Pool.Submit(submit); err != nil {
			wg.Done()
			results <- unitResult{Index: entry.SectionIndex, Err: fmt.Errorf("submit unit: %w", err)}
		}
	}

	wg.Wait()
	close(results)

	failed := 0
	for res := range results {
		if res.Err != nil {
			failed++
			st.Log.Error().Err(res.Err).Int("section", res.Index).Msg("image generation failed, unit stays pending")
		}
	}
	if failed > 0 {
		st.Log.Warn().Int("failed", failed).Msg("some image units failed; rerun the stage to retry them")
	}

	if err := store.SaveJSON(st.ScriptPath, script); err != nil {
		return err
	}
	return nil
}

// plan is phase 1: deterministic filenames, prompts and model resolution
// for the whole script, in section order.
func (st *Stage) plan(script *types.Script) []types.ImageEntry {
	img := script.Meta.Image
	entries := make([]types.ImageEntry, 0, len(script.Sections))
	for i, section := range script.Sections {
		idx := i + 1
		entries = append(entries, types.ImageEntry{
			SectionIndex:  idx,
			ScriptHeading: section.Heading,
			Filename:      fmt.Sprintf("%02d_%s.png", idx, store.Sanitize(section.Heading)),
			Prompt:        BuildPrompt(section, script.Meta.Topic, script.Meta.Keywords),
			AltText:       fmt.Sprintf("Illustration for %q", section.Heading),
			Resolution:    img.Size,
			Model:         resolveModel(section.Style, img.Model, img.Models),
			Style:         section.Style,
		})
	}
	return entries
}

// runUnit is phase 2 for one section: registry primary/fallback first, then
// the model-suggested-URL recovery path.
func (st *Stage) runUnit(ctx context.Context, entry types.ImageEntry, section *types.Section, meta types.Meta) unitResult {
	unitCtx, cancel := context.WithTimeout(ctx, st.UnitTimeout)
	defer cancel()

	img := meta.Image
	outPath := filepath.Join(st.ImagesDir, entry.Filename)
	opts := engines.ImageOptions{Model: entry.Model, Size: img.Size, Quality: img.Quality}

	err := st.Registry.GenerateImage(unitCtx, entry.Prompt, outPath, img.Engine, img.FallbackEngine, opts)
	if err != nil && st.Suggester != nil {
		st.Log.Warn().Err(err).Int("section", entry.SectionIndex).Msg("engines exhausted, trying model-suggested image URL")
		err = st.recoverViaSuggestedURL(unitCtx, entry, meta.Model, outPath)
	}
	if err != nil {
		return unitResult{Index: entry.SectionIndex, Err: err}
	}

	section.ImageFile = entry.Filename
	st.Ledger.MarkUnit(store.StageImages, entry.SectionIndex)
	st.Log.Info().Int("section", entry.SectionIndex).Str("file", entry.Filename).Msg("image generated")
	return unitResult{Index: entry.SectionIndex}
}

func (st *Stage) recoverViaSuggestedURL(ctx context.Context, entry types.ImageEntry, model, outPath string) error {
	prompt := fmt.Sprintf(
		"Return a single direct URL (and nothing else) to a freely usable photograph or illustration matching: %s",
		entry.Prompt)
	reply, err := st.Suggester.Generate(ctx, model, prompt)
	if err != nil {
		return fmt.Errorf("image URL suggestion: %w", err)
	}
	url := firstURL(reply)
	if url == "" {
		return fmt.Errorf("model reply contained no URL")
	}
	client := &http.Client{Timeout: 60 * time.Second}
	if err := engines.DownloadImage(ctx, client, url, outPath); err != nil {
		return fmt.Errorf("download suggested image: %w", err)
	}
	return nil
}

func firstURL(text string) string {
	for _, field := range strings.Fields(text) {
		field = strings.Trim(field, "<>()[]\"'.,")
		if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
			return field
		}
	}
	return ""
}

// BuildPrompt composes the illustration prompt from the section content,
// run topic and keywords.
func BuildPrompt(section types.Section, topic string, keywords []string) string {
	parts := []string{section.Heading, excerpt(section.Narration, 200), topic}
	if len(keywords) > 0 {
		parts = append(parts, strings.Join(keywords, ", "))
	}
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ". ")
}

func excerpt(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
