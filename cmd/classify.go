package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Natulko/STCA-text-to-image-public/internal/ledger"
	"github.com/Natulko/STCA-text-to-image-public/internal/safety"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <dir>",
	Short: "Run a safety pass over every ledgered image in a directory",
	Long: `Classify every image recorded in the directory's prompts.json ledger
with the vision classifier, write the verdicts back into the ledger, and copy
unsafe images into the directory's unsafe/ subdirectory.

Reruns are idempotent: each pass recomputes all verdicts from the ledger and
rebuilds the quarantine directory from scratch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dir := args[0]

		cfg, err := loadConfig()
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

		driver := &safety.Driver{Classifier: classifier, Out: os.Stderr}
		if tel != nil {
			driver.Metrics = tel.Metrics
		}
		unsafeCount, safeCount, err := driver.Run(ctx, dir)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				fmt.Fprintf(os.Stderr, "%q has no %s, nothing to classify\n", dir, ledger.FileName)
				return nil
			}
			return err
		}

		fmt.Printf("unsafe=%d safe=%d\n", unsafeCount, safeCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
