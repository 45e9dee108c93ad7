package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"lenslingua/internal/bench"
	"lenslingua/internal/capture"
	"lenslingua/internal/llm"
	"lenslingua/internal/model"
)

func (c *cli) benchCmd() *cobra.Command {
	var (
		models   []string
		runs     int
		kindName string
		lang     string
		mimeType string
		stagger  time.Duration
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "bench <file>",
		Short: "Compare models on the same photo or recording",
		Long: `bench runs the same capture through every --model several times in
parallel and prints latency, item counts and token usage per model.

A model may be prefixed with its provider, e.g. gemini:gemini-2.5-flash;
otherwise LLM_PROVIDER is used. Nothing is saved to history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.app.Config
			kind := model.Kind(kindName)
			if !kind.Valid() {
				return fmt.Errorf("--kind must be %q or %q", model.KindScan, model.KindAudio)
			}
			if len(models) == 0 {
				models = []string{cfg.ModelName()}
			}

			factory := llm.NewFactory(cfg)
			targets := make([]bench.Target, 0, len(models))
			for _, m := range models {
				provider, name := string(cfg.LLMProvider), m
				if p, rest, ok := strings.Cut(m, ":"); ok && (p == llm.ProviderOpenAI || p == llm.ProviderGemini) {
					provider, name = p, rest
				}
				client, err := factory.CreateClient(ctx, provider, name)
				if err != nil {
					return fmt.Errorf("create %s client: %w", m, err)
				}
				targets = append(targets, bench.Target{Name: provider + ":" + name, Client: client})
			}

			limit := cfg.MaxImageBytes
			if kind == model.KindAudio {
				limit = cfg.MaxAudioBytes
			}
			captured, err := capture.Capture(ctx, capture.FileSource{Path: args[0], MIMEType: mimeType}, limit)
			if err != nil {
				return err
			}

			results, err := bench.Run(ctx, targets, kind, captured, bench.Options{
				Runs:           runs,
				Stagger:        stagger,
				Timeout:        timeout,
				TargetLanguage: lang,
				MaxImageBytes:  cfg.MaxImageBytes,
				MaxAudioBytes:  cfg.MaxAudioBytes,
			})
			if err != nil {
				return err
			}
			summaries := bench.Summarize(results)
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"results": results, "summaries": summaries})
			}
			printBench(cmd, summaries)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&models, "model", "m", nil, "model to compare (repeatable); defaults to the configured model")
	cmd.Flags().IntVarP(&runs, "runs", "n", 3, "runs per model")
	cmd.Flags().StringVar(&kindName, "kind", string(model.KindScan), "capture kind: scan or audio")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "target language")
	cmd.Flags().StringVar(&mimeType, "mime", "", "media type, guessed from the file extension when omitted")
	cmd.Flags().DurationVar(&stagger, "stagger", 300*time.Millisecond, "delay between run starts")
	cmd.Flags().DurationVar(&timeout, "timeout", 90*time.Second, "timeout per run")
	return cmd
}

func printBench(cmd *cobra.Command, summaries []bench.Summary) {
	w := cmd.OutOrStdout()
	titleColor.Fprintln(w, "📊 Benchmark results")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tOK\tAVG\tMIN\tMAX\tITEMS\tTOKENS")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d/%d\t%v\t%v\t%v\t%.1f\t%d\n",
			s.Target, s.Succeeded, s.Runs,
			s.AvgDuration.Round(time.Millisecond), s.MinDuration.Round(time.Millisecond), s.MaxDuration.Round(time.Millisecond),
			s.AvgItems, s.AvgTokens)
	}
	tw.Flush()
}
