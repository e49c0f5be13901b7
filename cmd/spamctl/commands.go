package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spamguardian/spam-guardian/internal/domain/normalize"
	"github.com/spamguardian/spam-guardian/internal/infrastructure/artifact"
	"github.com/spamguardian/spam-guardian/internal/pipeline"
)

type classifyResult struct {
	Label           string  `json:"label"`
	IsSpam          bool    `json:"is_spam"`
	Confidence      float64 `json:"confidence"`
	SpamProbability float64 `json:"spam_probability"`
}

func newClassifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "classify [text...]",
		Short: "Classify each argument, or stdin, as spam or ham",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			texts, err := readTexts(cmd, args)
			if err != nil {
				return err
			}
			for _, text := range texts {
				if strings.TrimSpace(text) == "" {
					return fmt.Errorf("text must not be empty")
				}
			}

			c, err := opts.classifier(ctx, cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			for _, text := range texts {
				r, err := c.Classify(ctx, text)
				if err != nil {
					return err
				}
				res := classifyResult{
					Label:           r.Label(),
					IsSpam:          r.IsSpam,
					Confidence:      r.Confidence,
					SpamProbability: r.SpamProbability,
				}
				if opts.jsonOutput {
					if err := enc.Encode(res); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(out, "%s\t%.4f\n", res.Label, res.Confidence)
			}
			return nil
		},
	}
}

func newNormalizeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [text...]",
		Short: "Print the normalized token string for each argument, or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			texts, err := readTexts(cmd, args)
			if err != nil {
				return err
			}

			n := normalize.Default()
			normalizeFn := func(_ context.Context, text string) (string, error) {
				return n.Normalize(text), nil
			}
			if opts.server != "" {
				c, err := opts.classifier(ctx, cmd)
				if err != nil {
					return err
				}
				normalizeFn = c.Normalize
			}

			out := cmd.OutOrStdout()
			for _, text := range texts {
				normalized, err := normalizeFn(ctx, text)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, normalized)
			}
			return nil
		},
	}
}

func newFetchCmd(opts *options) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download missing model artifacts from the configured source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			log, err := opts.logger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			store, err := artifact.NewStoreFromConfig(&cfg.Artifacts, nil, log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, a := range []struct{ name, path string }{
				{pipeline.ArtifactModel, cfg.Artifacts.ModelPath()},
				{pipeline.ArtifactVectorizer, cfg.Artifacts.VectorizerPath()},
			} {
				if err := store.Ensure(ctx, a.name, a.path); err != nil {
					return &pipeline.LoadError{Artifact: a.name, Path: a.path, Err: err}
				}
				fmt.Fprintf(out, "%s\t%s\n", a.name, a.path)
			}

			if !verify {
				return nil
			}
			p, err := opts.loadPipeline(ctx, cmd)
			if err != nil {
				return err
			}
			info := p.Info()
			fmt.Fprintf(out, "ok\t%s/%s vocabulary=%d digest=%s\n", info.VectorizerKind, info.ModelKind, info.VocabularySize, info.Digest)
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", true, "load the downloaded artifacts to check they decode")
	return cmd
}
