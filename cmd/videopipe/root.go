package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"narrated-video-pipeline/config"
	"narrated-video-pipeline/engines"
	"narrated-video-pipeline/pipeline"
	"narrated-video-pipeline/script"
	"narrated-video-pipeline/store"
	"narrated-video-pipeline/types"
)

type flags struct {
	input       string
	outputDir   string
	configPath  string
	step        int
	useExisting string
	workers     int
	verbose     bool
}

func run() int {
	// .env is local-dev convenience; real deployments set the environment.
	_ = godotenv.Load()

	var f flags
	root := &cobra.Command{
		Use:           "videopipe",
		Short:         "Automated narrated video production pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), f)
		},
	}
	root.Flags().StringVar(&f.input, "input", "input.json", "path to the run request file")
	root.Flags().StringVar(&f.outputDir, "output-dir", "outputs", "directory that holds run output directories")
	root.Flags().StringVar(&f.configPath, "config", "config.yaml", "pipeline config file")
	root.Flags().IntVar(&f.step, "step", 0, "start from a specific step (1=script, 2=voice, 3=images, 4=video)")
	root.Flags().StringVar(&f.useExisting, "use-existing", "", "reuse an existing output folder (only with --step 4)")
	root.Flags().IntVar(&f.workers, "workers", 0, "parallel workers for voice/image generation")
	root.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pipeline failed: %v\n", err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, f flags) error {
	log := newLogger(f.verbose)

	if err := validateFlags(f); err != nil {
		return err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.Pipeline.EngineCallsSec), 1)
	registry, err := engines.Default(cfg, log, limiter)
	if err != nil {
		return err
	}

	gen, err := scriptGenerator(f)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Workers:   f.workers,
		Generator: gen,
		Registry:  registry,
		Logger:    log,
	}

	if f.useExisting != "" {
		runDir := filepath.Join(f.outputDir, f.useExisting)
		if _, err := os.Stat(runDir); err != nil {
			return fmt.Errorf("existing folder not found: %s", runDir)
		}
		p, err := pipeline.New(cfg, runDir, opts)
		if err != nil {
			return err
		}
		defer p.Close()
		finalPath, err := p.AssembleExisting(ctx)
		return finish(log, finalPath, err)
	}

	req, err := loadRequest(f.input)
	if err != nil {
		return err
	}
	log.Info().Str("topic", req.Topic).Msg("input configuration loaded")

	runDir, err := store.NumberedDir(f.outputDir, req.Topic)
	if err != nil {
		return err
	}
	log.Info().Str("dir", runDir).Msg("output directory created")

	p, err := pipeline.New(cfg, runDir, opts)
	if err != nil {
		return err
	}
	defer p.Close()

	start := f.step
	if start == 0 {
		start = pipeline.StepScript
	}
	finalPath, err := p.Run(ctx, req, start)
	return finish(log, finalPath, err)
}

func finish(log zerolog.Logger, finalPath string, err error) error {
	if err != nil {
		return err
	}
	log.Info().Str("video", finalPath).Msg("pipeline complete")
	fmt.Printf("Video production complete: %s\n", finalPath)
	return nil
}

func validateFlags(f flags) error {
	if f.useExisting != "" && f.step != 4 {
		return &pipeline.ConfigurationError{Reason: "--use-existing requires --step 4"}
	}
	if f.step < 0 || f.step > 4 {
		return &pipeline.ConfigurationError{Reason: "--step must be between 1 and 4"}
	}
	if f.useExisting == "" && f.step < 4 {
		if _, err := os.Stat(f.input); err != nil {
			return &pipeline.ConfigurationError{Reason: "input file not found: " + f.input}
		}
	}
	return nil
}

func loadRequest(path string) (*types.Request, error) {
	var req types.Request
	if err := store.LoadJSON(path, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Topic) == "" {
		return nil, &pipeline.ConfigurationError{Reason: "input is missing required field: topic"}
	}
	return &req, nil
}

// scriptGenerator builds the Gemini client. Resumed runs that skip the
// script stage may proceed without the credential; the image stage's URL
// recovery simply reports the missing key if it is ever reached.
func scriptGenerator(f flags) (script.Generator, error) {
	key := config.GeminiAPIKey()
	if key == "" {
		if f.step <= 1 && f.useExisting == "" {
			return nil, &pipeline.ConfigurationError{Reason: "GEMINI_API_KEY not found in environment"}
		}
		return disabledGenerator{}, nil
	}
	return script.NewGeminiGenerator(key)
}

type disabledGenerator struct{}

func (disabledGenerator) Generate(context.Context, string, string) (string, error) {
	return "", &pipeline.ConfigurationError{Reason: "GEMINI_API_KEY not found in environment"}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
