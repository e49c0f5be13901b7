package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spamguardian/spam-guardian/internal/adapter/client"
	"github.com/spamguardian/spam-guardian/internal/domain/normalize"
	"github.com/spamguardian/spam-guardian/internal/domain/service"
	"github.com/spamguardian/spam-guardian/internal/infrastructure/artifact"
	"github.com/spamguardian/spam-guardian/internal/infrastructure/config"
	"github.com/spamguardian/spam-guardian/internal/infrastructure/logger"
	"github.com/spamguardian/spam-guardian/internal/pipeline"
)

// Exit codes
const (
	exitError     = 1
	exitLoadError = 2
)

type options struct {
	server       string
	timeout      time.Duration
	wait         bool
	artifactsDir string
	jsonOutput   bool
	verbose      bool
}

// classifier is what the classify and normalize commands run against,
// either the local pipeline or a remote server
type classifier interface {
	Classify(ctx context.Context, text string) (*service.ClassificationResult, error)
	Normalize(ctx context.Context, text string) (string, error)
}

type localClassifier struct {
	p *pipeline.Pipeline
}

func (l localClassifier) Classify(_ context.Context, text string) (*service.ClassificationResult, error) {
	return l.p.Classify(text)
}

func (l localClassifier) Normalize(_ context.Context, text string) (string, error) {
	return l.p.Normalize(text), nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "spamctl",
		Short:         "Classify email text as spam or ham",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", "", "classify against a running API server at this base URL instead of loading artifacts locally")
	flags.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall timeout for the command")
	flags.BoolVar(&opts.wait, "wait", false, "with --server, wait until the server has loaded its model")
	flags.StringVar(&opts.artifactsDir, "artifacts-dir", "", "directory holding model and vectorizer artifacts (overrides config)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(
		newClassifyCmd(opts),
		newNormalizeCmd(opts),
		newFetchCmd(opts),
	)
	return root
}

// loadConfig reads the shared configuration and applies flag overrides
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.artifactsDir != "" {
		cfg.Artifacts.Dir = o.artifactsDir
	}
	return cfg, nil
}

func (o *options) logger(cfg *config.Config, w io.Writer) (*zap.Logger, error) {
	if !o.verbose {
		return zap.NewNop(), nil
	}
	return logger.New(&config.LogConfig{Level: cfg.Log.Level, Format: "console"}, w)
}

// classifier returns a remote classifier when --server is set, otherwise
// the locally loaded pipeline
func (o *options) classifier(ctx context.Context, cmd *cobra.Command) (classifier, error) {
	if o.server != "" {
		api := client.NewAPIClient(o.server, o.timeout)
		if o.wait {
			if err := api.WaitReady(ctx, client.DefaultReadyInterval); err != nil {
				return nil, fmt.Errorf("waiting for %s: %w", o.server, err)
			}
		}
		return client.NewRemoteClassifier(api), nil
	}

	p, err := o.loadPipeline(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return localClassifier{p: p}, nil
}

func (o *options) loadPipeline(ctx context.Context, cmd *cobra.Command) (*pipeline.Pipeline, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := o.logger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	store, err := artifact.NewStoreFromConfig(&cfg.Artifacts, nil, log)
	if err != nil {
		return nil, err
	}
	loader := pipeline.NewLoader(pipeline.LoaderConfig{
		ModelPath:      cfg.Artifacts.ModelPath(),
		VectorizerPath: cfg.Artifacts.VectorizerPath(),
		Fetcher:        store,
		Normalizer:     normalize.Default(),
	}, log)
	return loader.Load(ctx)
}

// readTexts returns the positional arguments, or stdin as a single text
// when there are none or the only argument is "-"
func readTexts(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return []string{strings.TrimRight(string(data), "\r\n")}, nil
	}
	return args, nil
}

func exitCode(err error) int {
	if errors.Is(err, pipeline.ErrLoad) {
		return exitLoadError
	}
	return exitError
}
