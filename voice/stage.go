// Package voice synthesizes per-section narration audio in parallel and
// records completed units in the progress ledger.
package voice

import (
	"context"
	"fmt"
	"os"
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

// unitResult reports one section's outcome across the pool barrier. Unit
// failures travel as values, never as panics or errors crossing goroutines.
type unitResult struct {
	Index int
	Err   error
}

type Stage struct {
	Log         zerolog.Logger
	Registry    *engines.Registry
	Ledger      *store.Ledger
	Pool        *ants.Pool
	AudioDir    string
	ScriptPath  string
	UnitTimeout time.Duration
}

// Run synthesizes audio for every section not already marked complete. A
// failed unit is logged and left pending for the next invocation; it never
// aborts sibling units. After the barrier the stage writes transcripts,
// captions and the voice manifest in canonical section order.
func (st *Stage) Run(ctx context.Context, script *types.Script) error {
	tts := script.Meta.TTS
	completed := st.Ledger.Completed(store.StageVoice)

	var wg sync.WaitGroup
	results := make(chan unitResult, len(script.Sections))

	for i := range script.Sections {
		idx := i + 1
		if completed[idx] {
			st.Log.Info().Int("section", idx).Msg("voice already synthesized, skipping")
			continue
		}
		section := &script.Sections[i]
		wg.Add(1)
		submit := func() {
			defer wg.Done()
			results <- st.runUnit(ctx, idx, section, tts)
		}
		if err := st.Pool.Submit(submit); err != nil {
			wg.Done()
			results <- unitResult{Index: idx, Err: fmt.Errorf("submit unit: %w", err)}
		}
	}

	wg.Wait()
	close(results)

	failed := 0
	for res := range results {
		if res.Err != nil {
			failed++
			st.Log.Error().Err(res.Err).Int("section", res.Index).Msg("voice synthesis failed, unit stays pending")
		}
	}
	if failed > 0 {
		st.Log.Warn().Int("failed", failed).Msg("some voice units failed; rerun the stage to retry them")
	}

	if err := st.writeSideFiles(script); err != nil {
		return err
	}
	if err := st.writeManifest(script); err != nil {
		return err
	}
	// Persist the sound_file attachments so a later stage resume sees them.
	if err := store.SaveJSON(st.ScriptPath, script); err != nil {
		return err
	}
	return nil
}

// runUnit is one retryable piece of work: synthesize a single section and
// mark it done under the ledger lock. The section entry is written by this
// worker alone, so no lock guards it.
func (st *Stage) runUnit(ctx context.Context, idx int, section *types.Section, tts types.TTSSettings) unitResult {
	unitCtx, cancel := context.WithTimeout(ctx, st.UnitTimeout)
	defer cancel()

	filename := fmt.Sprintf("%02d_%s.wav", idx, store.Sanitize(section.Heading))
	outPath := filepath.Join(st.AudioDir, filename)

	err := st.Registry.SynthesizeVoice(unitCtx, section.Narration, outPath, tts.Engine, tts.FallbackEngine, engines.TTSOptions{
		Model: tts.Model,
		Voice: tts.Voice,
	})
	if err != nil {
		return unitResult{Index: idx, Err: err}
	}

	section.SoundFile = filename
	st.Ledger.MarkUnit(store.StageVoice, idx)
	st.Log.Info().Int("section", idx).Str("file", filename).Msg("voice synthesized")
	return unitResult{Index: idx}
}

// writeSideFiles emits a transcript and a caption file per section,
// independent of synthesis success.
func (st *Stage) writeSideFiles(script *types.Script) error {
	for i, section := range script.Sections {
		idx := i + 1
		base := fmt.Sprintf("%02d_%s", idx, store.Sanitize(section.Heading))

		txtPath := filepath.Join(st.AudioDir, base+".txt")
		if err := os.WriteFile(txtPath, []byte(section.Narration+"\n"), 0644); err != nil {
			return fmt.Errorf("write transcript %s: %w", txtPath, err)
		}

		vttPath := filepath.Join(st.AudioDir, base+".vtt")
		if err := os.WriteFile(vttPath, []byte(captionVTT(section)), 0644); err != nil {
			return fmt.Errorf("write caption %s: %w", vttPath, err)
		}
	}
	return nil
}

func captionVTT(section types.Section) string {
	return fmt.Sprintf("WEBVTT\n\n00:00:00.000 --> %s\n%s\n",
		vttTimestamp(section.Duration), strings.TrimSpace(section.Narration))
}

func vttTimestamp(seconds float64) string {
	millis := int(seconds*1000 + 0.5)
	return fmt.Sprintf("%02d:%02d:%02d.%03d",
		millis/3600000, millis%3600000/60000, millis%60000/1000, millis%1000)
}

// writeManifest summarizes every section in script order, whatever each
// unit's outcome was; section_index is therefore strictly increasing.
func (st *Stage) writeManifest(script *types.Script) error {
	entries := make([]types.VoiceEntry, 0, len(script.Sections))
	for i, section := range script.Sections {
		entries = append(entries, types.VoiceEntry{
			SectionIndex:  i + 1,
			ScriptHeading: section.Heading,
			Filename:      section.SoundFile,
			Duration:      section.Duration,
			Speaker:       script.Meta.TTS.Voice,
			Text:          section.Narration,
			Format:        "wav",
		})
	}
	return store.SaveJSON(filepath.Join(st.AudioDir, "voice.json"), entries)
}
