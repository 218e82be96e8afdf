// Package pipeline sequences the four production stages and decides the
// resume point for a run directory.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"narrated-video-pipeline/assembly"
	"narrated-video-pipeline/config"
	"narrated-video-pipeline/engines"
	"narrated-video-pipeline/images"
	"narrated-video-pipeline/script"
	"narrated-video-pipeline/store"
	"narrated-video-pipeline/types"
	"narrated-video-pipeline/voice"
)

// Steps, in execution order.
const (
	StepScript = 1
	StepVoice  = 2
	StepImages = 3
	StepVideo  = 4
)

// Options carries the injectable collaborators. Zero values select the
// production implementations where one exists.
type Options struct {
	Workers   int
	Generator script.Generator
	Registry  *engines.Registry
	Runner    assembly.Runner
	Logger    zerolog.Logger
}

// Pipeline owns one run directory: the four stage executors, the worker
// pool they share, and the progress ledger.
type Pipeline struct {
	cfg      *config.Config
	log      zerolog.Logger
	gen      script.Generator
	registry *engines.Registry
	runner   assembly.Runner
	pool     *ants.Pool
	ledger   *store.Ledger

	outputDir  string
	scriptsDir string
	audioDir   string
	imagesDir  string
	videoDir   string
}

// New prepares the run directory tree and loads (or initializes) the
// ledger. The caller must Close the pipeline to release the worker pool.
func New(cfg *config.Config, outputDir string, opts Options) (*Pipeline, error) {
	if opts.Registry == nil {
		return nil, &ConfigurationError{Reason: "engine registry is required"}
	}
	if opts.Generator == nil {
		return nil, &ConfigurationError{Reason: "script generator is required"}
	}
	if opts.Runner == nil {
		opts.Runner = assembly.ExecRunner{}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = cfg.Pipeline.Workers
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	p := &Pipeline{
		cfg:       cfg,
		log:       opts.Logger,
		gen:       opts.Generator,
		registry:  opts.Registry,
		runner:    opts.Runner,
		pool:      pool,
		outputDir: outputDir,
	}
	for _, dir := range []struct {
		target *string
		name   string
	}{
		{&p.scriptsDir, "scripts"},
		{&p.audioDir, "audio"},
		{&p.imagesDir, "images"},
		{&p.videoDir, "video"},
	} {
		path, err := store.EnsureDir(filepath.Join(outputDir, dir.name))
		if err != nil {
			pool.Release()
			return nil, err
		}
		*dir.target = path
	}
	p.ledger = store.OpenLedger(outputDir, p.log)
	return p, nil
}

// Close releases the worker pool.
func (p *Pipeline) Close() { p.pool.Release() }

// Ledger exposes the progress ledger for status reporting.
func (p *Pipeline) Ledger() *store.Ledger { return p.ledger }

// ScriptPath is the canonical script artifact location for this run.
func (p *Pipeline) ScriptPath() string { return filepath.Join(p.scriptsDir, "script.json") }

// Run executes the pipeline from startStep through assembly and returns
// the final video path. Skipped steps load the persisted artifact instead;
// a missing artifact fails naming the expected file.
func (p *Pipeline) Run(ctx context.Context, req *types.Request, startStep int) (string, error) {
	if startStep < StepScript || startStep > StepVideo {
		startStep = StepScript
	}

	var data *types.Script
	var err error

	if startStep <= StepScript {
		if req == nil || strings.TrimSpace(req.Topic) == "" {
			return "", &ConfigurationError{Reason: "input is missing required field: topic"}
		}
		p.log.Info().Msg("--- Step 1: Script Generation ---")
		if data, err = p.scriptStage().Run(ctx, req); err != nil {
			return "", fmt.Errorf("stage 1 (script): %w", err)
		}
	} else {
		p.log.Info().Int("start_step", startStep).Msg("skipping script generation")
		if data, err = p.loadScript(); err != nil {
			return "", err
		}
	}

	if startStep <= StepVoice {
		p.log.Info().Msg("--- Step 2: Voice Generation ---")
		if err = p.voiceStage().Run(ctx, data); err != nil {
			return "", fmt.Errorf("stage 2 (voice): %w", err)
		}
	} else {
		p.log.Info().Int("start_step", startStep).Msg("skipping voice generation")
	}

	if startStep <= StepImages {
		p.log.Info().Msg("--- Step 3: Image Generation ---")
		if err = p.imageStage().Run(ctx, data); err != nil {
			return "", fmt.Errorf("stage 3 (images): %w", err)
		}
	} else {
		p.log.Info().Int("start_step", startStep).Msg("skipping image generation")
	}

	p.log.Info().Msg("--- Step 4: Video Assembly ---")
	finalPath, err := p.assemblyStage().Run(ctx, data)
	if err != nil {
		return "", fmt.Errorf("stage 4 (assembly): %w", err)
	}
	return finalPath, nil
}

// AssembleExisting runs only the assembly stage against a previously
// populated run directory (the --use-existing path).
func (p *Pipeline) AssembleExisting(ctx context.Context) (string, error) {
	data, err := p.loadScript()
	if err != nil {
		return "", err
	}
	finalPath, err := p.assemblyStage().Run(ctx, data)
	if err != nil {
		return "", fmt.Errorf("stage 4 (assembly): %w", err)
	}
	return finalPath, nil
}

func (p *Pipeline) loadScript() (*types.Script, error) {
	var data types.Script
	if err := store.LoadJSON(p.ScriptPath(), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (p *Pipeline) scriptStage() *script.Stage {
	return &script.Stage{
		Log:        p.log.With().Str("stage", "script").Logger(),
		Cfg:        p.cfg,
		Gen:        p.gen,
		Ledger:     p.ledger,
		ScriptsDir: p.scriptsDir,
	}
}

func (p *Pipeline) voiceStage() *voice.Stage {
	return &voice.Stage{
		Log:         p.log.With().Str("stage", "voice").Logger(),
		Registry:    p.registry,
		Ledger:      p.ledger,
		Pool:        p.pool,
		AudioDir:    p.audioDir,
		ScriptPath:  p.ScriptPath(),
		UnitTimeout: p.cfg.Pipeline.UnitTimeout(),
	}
}

func (p *Pipeline) imageStage() *images.Stage {
	return &images.Stage{
		Log:         p.log.With().Str("stage", "images").Logger(),
		Registry:    p.registry,
		Ledger:      p.ledger,
		Pool:        p.pool,
		ImagesDir:   p.imagesDir,
		ScriptPath:  p.ScriptPath(),
		UnitTimeout: p.cfg.Pipeline.UnitTimeout(),
		Suggester:   p.gen,
	}
}

func (p *Pipeline) assemblyStage() *assembly.Stage {
	return &assembly.Stage{
		Log:       p.log.With().Str("stage", "assembly").Logger(),
		Cfg:       p.cfg,
		Ledger:    p.ledger,
		Runner:    p.runner,
		AudioDir:  p.audioDir,
		ImagesDir: p.imagesDir,
		VideoDir:  p.videoDir,
	}
}
