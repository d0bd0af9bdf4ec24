package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Natulko/STCA-text-to-image-public/internal/corpus"
	"github.com/Natulko/STCA-text-to-image-public/internal/generation"
)

var (
	flagGenPrompts  string
	flagGenNum      int
	flagGenProvider string
	flagGenDir      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate images for a prompt corpus into one directory",
	Long: `Generate one image per corpus prompt against a single provider.

The run is resumable: every successful generation is recorded in the
directory's prompts.json ledger, and a rerun reconciles the ledger against
the image files already on disk before continuing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		promptsPath := flagGenPrompts
		if promptsPath == "" {
			promptsPath = filepath.Join(cfg.DataDir, "experiment_queue.json")
		}
		items, err := corpus.Load(promptsPath, flagGenNum)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "%q not found\n", promptsPath)
				return nil
			}
			return err
		}

		gen, err := getGenerator(ctx, cfg, flagGenProvider)
		if err != nil {
			return err
		}

		tel := initTelemetry(ctx, cfg)
		if tel != nil {
			defer tel.Shutdown(ctx)
		}

		driver := &generation.Driver{Gen: gen, Out: os.Stderr}
		if tel != nil {
			driver.Metrics = tel.Metrics
		}
		generated, rejected, err := driver.Run(ctx, items, flagGenDir)
		if err != nil {
			return err
		}

		fmt.Printf("generated=%d rejected=%d skipped=%d\n",
			generated, rejected, len(items)-generated-rejected)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&flagGenPrompts, "prompts", "", "prompt corpus file (default: <data_dir>/experiment_queue.json)")
	generateCmd.Flags().IntVar(&flagGenNum, "num", 10, "number of corpus items to use (0 = all)")
	generateCmd.Flags().StringVar(&flagGenProvider, "provider", generation.ProviderOpenAI, "generation provider: openai, gemini, sd, bfl")
	generateCmd.Flags().StringVar(&flagGenDir, "dir", "images", "output directory for images and ledger")
	rootCmd.AddCommand(generateCmd)
}
