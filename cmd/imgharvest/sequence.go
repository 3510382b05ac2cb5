package main

import (
	"github.com/spf13/cobra"

	"imgharvest/pkg/task"
)

var (
	seqUpper         int
	seqExclude       []int
	seqSafe          int
	seqFailThreshold int
	seqFolder        string
)

// sequenceCmd represents the sequence command
var sequenceCmd = &cobra.Command{
	Use:   "sequence <template-url>",
	Short: "Download a numbered range of URLs",
	Long: `Download every URL of a numbered range.

The URL carries exactly one {digits} marker. Its value is the first index
and, when zero-padded, fixes the printed width of every index. The range
runs up to --to inclusive.

The sequence stops early when consecutive failures exceed the fail
threshold (indices up to --safe are exempt) or when two successive
downloads have the same size, which usually means the server is answering
with a placeholder.`,
	Example: `  # img_001.jpg .. img_120.jpg
  imgharvest sequence "http://example.com/gallery/img_{001}.jpg" --to 120

  # skip indices already on disk and give up after 3 misses in a row
  imgharvest sequence "http://example.com/p/{1}.png" --to 400 --exclude 4,9 --fail-threshold 3`,
	Args: cobra.ExactArgs(1),
	RunE: runSequence,
}

func init() {
	rootCmd.AddCommand(sequenceCmd)

	sequenceCmd.Flags().IntVar(&seqUpper, "to", -1, "last index to download (required)")
	sequenceCmd.Flags().IntSliceVar(&seqExclude, "exclude", nil, "indices to skip")
	sequenceCmd.Flags().IntVar(&seqSafe, "safe", 0, "indices up to this value never trigger the fail threshold")
	sequenceCmd.Flags().IntVar(&seqFailThreshold, "fail-threshold", 0, "abort after this many consecutive failures, 0 disables (default from config)")
	sequenceCmd.Flags().StringVar(&seqFolder, "folder", "", "subfolder of the output directory")
	_ = sequenceCmd.MarkFlagRequired("to")
}

func runSequence(cmd *cobra.Command, args []string) error {
	extra := map[string]interface{}{}
	if cmd.Flags().Changed("fail-threshold") {
		extra["fail-threshold"] = seqFailThreshold
	}

	a, err := newApp(cmd, extra)
	if err != nil {
		return err
	}
	if _, err := a.store.Folder(seqFolder); err != nil {
		return err
	}

	t, err := task.NewSequenceTask(args[0], seqUpper, a.downloader, task.SequenceOptions{
		Folder:        seqFolder,
		Exclude:       seqExclude,
		SafeThreshold: seqSafe,
		FailThreshold: a.cfg.Sequence.FailThreshold,
	})
	if err != nil {
		return err
	}

	a.log.InfoWithFields("starting sequence", map[string]interface{}{
		"template": args[0],
		"upper":    seqUpper,
		"excluded": len(seqExclude),
	})
	return runTasks(cmd, a, t)
}
