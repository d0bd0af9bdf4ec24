package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Natulko/STCA-text-to-image-public/internal/corpus"
)

var (
	flagCorpusTurns string
	flagCorpusOut   string
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Build a prompt corpus from a conversation-turns CSV",
	Long: `Template multi-turn jailbreak prompts from a CSV of conversation
turns (columns "Status", "Turn 1", "Turn 2", optional "Turn 3") and write
them as a corpus file usable by generate and experiment. Rows marked done
(Status "y") are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(flagCorpusTurns)
		if err != nil {
			return fmt.Errorf("open turns file: %w", err)
		}
		defer f.Close()

		prompts, err := corpus.PromptsFromTurns(f)
		if err != nil {
			return err
		}
		if err := corpus.Write(flagCorpusOut, prompts); err != nil {
			return err
		}

		fmt.Printf("wrote %d prompts to %s\n", len(prompts), flagCorpusOut)
		return nil
	},
}

func init() {
	corpusCmd.Flags().StringVar(&flagCorpusTurns, "turns", "", "CSV file of conversation turns")
	corpusCmd.Flags().StringVar(&flagCorpusOut, "out", "experiment_queue.json", "output corpus file")
	_ = corpusCmd.MarkFlagRequired("turns")
	rootCmd.AddCommand(corpusCmd)
}
