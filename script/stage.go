package script

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"narrated-video-pipeline/config"
	"narrated-video-pipeline/store"
	"narrated-video-pipeline/types"
)

// Stage generates and persists the script artifact. It is strictly
// sequential and terminal once the ledger marks it done.
type Stage struct {
	Log        zerolog.Logger
	Cfg        *config.Config
	Gen        Generator
	Ledger     *store.Ledger
	ScriptsDir string
}

// ArtifactPath is where the stage persists (and resumes from) the script.
func (st *Stage) ArtifactPath() string {
	return filepath.Join(st.ScriptsDir, "script.json")
}

// Run produces the script artifact, or loads the persisted one when the
// ledger says the stage already completed. No model call happens on resume.
func (st *Stage) Run(ctx context.Context, req *types.Request) (*types.Script, error) {
	if st.Ledger.ScriptDone() {
		st.Log.Info().Msg("script already generated, loading artifact")
		var script types.Script
		if err := store.LoadJSON(st.ArtifactPath(), &script); err != nil {
			return nil, err
		}
		return &script, nil
	}

	model := req.Model
	if model == "" {
		model = st.Cfg.Script.Model
	}

	st.Log.Info().Str("model", model).Str("topic", req.Topic).Msg("generating script")
	text, err := st.Gen.Generate(ctx, model, BuildPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("script generation: %w", err)
	}

	sections := ParseResponse(text, st.Log)
	sections, err = EnsureConsistency(sections, st.Cfg.Script.MinSections)
	if err != nil {
		return nil, err
	}

	for i := range sections {
		sections[i].Duration = EstimateDuration(sections[i].Narration)
	}
	AssignStyles(sections)

	script := &types.Script{
		Title:    st.deriveTitle(req, sections),
		Sections: sections,
		Meta:     st.enrichMeta(req, model),
	}
	if !Validate(script.Sections) || script.Title == "" {
		return nil, &StructuralError{Reason: "assembled script failed final validation"}
	}

	if err := store.SaveJSON(st.ArtifactPath(), script); err != nil {
		return nil, err
	}
	if err := WriteSRT(filepath.Join(st.ScriptsDir, "script.srt"), script.Sections); err != nil {
		st.Log.Warn().Err(err).Msg("could not write subtitle file")
	}
	st.Ledger.MarkScript()
	st.Log.Info().Int("sections", len(script.Sections)).Msg("script generated")
	return script, nil
}

func (st *Stage) deriveTitle(req *types.Request, sections []types.Section) string {
	if len(sections) > 0 && sections[0].Heading != "" {
		return sections[0].Heading
	}
	if req.Topic != "" {
		return req.Topic
	}
	return "Generated Video Script"
}

// enrichMeta merges caller overrides over the configured defaults. The
// result travels inside the artifact so later stages never re-read config.
func (st *Stage) enrichMeta(req *types.Request, model string) types.Meta {
	meta := types.Meta{
		Topic:       req.Topic,
		Keywords:    req.Keywords,
		Prompt:      req.Prompt,
		Model:       model,
		Language:    st.Cfg.Script.Language,
		TargetAge:   st.Cfg.Script.TargetAge,
		Tags:        []string{"educational"},
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		TTS:         st.Cfg.TTS,
		Image:       st.Cfg.Image,
	}
	if req.Meta == nil {
		return meta
	}
	if req.Meta.Language != "" {
		meta.Language = req.Meta.Language
	}
	if req.Meta.TargetAge != "" {
		meta.TargetAge = req.Meta.TargetAge
	}
	if len(req.Meta.Tags) > 0 {
		meta.Tags = req.Meta.Tags
	}
	if req.Meta.TTS.Engine != "" {
		meta.TTS = req.Meta.TTS
	}
	if req.Meta.Image.Engine != "" {
		meta.Image = req.Meta.Image
	}
	return meta
}
