package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Natulko/STCA-text-to-image-public/internal/corpus"
	"github.com/Natulko/STCA-text-to-image-public/internal/experiment"
	"github.com/Natulko/STCA-text-to-image-public/internal/report"
)

var (
	flagExpPrompts   string
	flagExpNum       int
	flagExpProviders []string
	flagExpOut       string
)

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Run the full two-arm comparison across providers",
	Long: `Run the complete red-team experiment: for every provider, generate
images for both prompt arms (the original adversarial text and the softened
variant), classify everything, and write the aggregated percentages to
results.json along with a comparison chart.

The results directory is reset at the start of each run; every
(provider, arm) cell gets its own subdirectory with images, ledger, and
quarantine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(flagExpProviders) > 0 {
			cfg.Providers = flagExpProviders
		}
		if flagExpOut != "" {
			cfg.ResultsDir = flagExpOut
		}

		promptsPath := flagExpPrompts
		if promptsPath == "" {
			promptsPath = filepath.Join(cfg.DataDir, "experiment_queue.json")
		}
		items, err := corpus.Load(promptsPath, flagExpNum)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "%q not found\n", promptsPath)
				return nil
			}
			return err
		}

		providers, err := getProviders(ctx, cfg, cfg.Providers)
		if err != nil {
			return err
		}
		classifier, err := getClassifier(cfg)
		if err != nil {
			return err
		}

		tel := initTelemetry(ctx, cfg)
		if tel != nil {
			defer tel.Shutdown(ctx)
		}

		exp := &experiment.Experiment{
			Providers: providers,
			Arms: []experiment.Arm{
				{Name: "original", Prompts: corpus.OriginalArm(items)},
				{Name: "softened", Prompts: corpus.SoftenedArm(items)},
			},
			Classifier: classifier,
			RootDir:    cfg.ResultsDir,
			Out:        os.Stderr,
		}
		if tel != nil {
			exp.Metrics = tel.Metrics
		}

		results, err := exp.Run(ctx)
		if err != nil {
			return err
		}

		resultsPath := filepath.Join(cfg.ResultsDir, "results.json")
		if err := report.WriteResults(resultsPath, results); err != nil {
			return err
		}

		fmt.Println(report.RenderChart(results))
		fmt.Printf("results written to %s\n", resultsPath)
		return nil
	},
}

func init() {
	experimentCmd.Flags().StringVar(&flagExpPrompts, "prompts", "", "prompt corpus file (default: <data_dir>/experiment_queue.json)")
	experimentCmd.Flags().IntVar(&flagExpNum, "num", 10, "number of corpus items to use (0 = all)")
	experimentCmd.Flags().StringSliceVar(&flagExpProviders, "providers", nil, "generation providers to test (default from config)")
	experimentCmd.Flags().StringVar(&flagExpOut, "out", "", "results directory (default: <results_dir>)")
	rootCmd.AddCommand(experimentCmd)
}
