package main

import (
	"github.com/spf13/cobra"

	"imgharvest/pkg/task"
)

var (
	searchLarger   bool
	searchMore     bool
	searchEndpoint string
	searchFolder   string
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <file|dir>...",
	Short: "Reverse-search local images for larger copies and related sequences",
	Long: `Reverse-search every image given, or every image inside a given folder.

For each image the search results are used by two strategies:
  --larger  download the biggest result that beats the source's dimensions
            (results smaller on disk than the source go to the attention folder)
  --more    find numbered filenames among the results and download the
            sequences they belong to

With neither flag both strategies run. Each argument becomes one task and
tasks run one after another.`,
	Example: `  imgharvest search ./wallpaper.jpg
  imgharvest search ./scans --larger
  imgharvest search a.png b.png --more --endpoint http://localhost:8080/upload`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().BoolVar(&searchLarger, "larger", false, "download larger copies of each image")
	searchCmd.Flags().BoolVar(&searchMore, "more", false, "download numbered sequences found in the results")
	searchCmd.Flags().StringVar(&searchEndpoint, "endpoint", "", "reverse image search upload endpoint")
	searchCmd.Flags().StringVar(&searchFolder, "folder", "", "subfolder of the output directory")
}

func runSearch(cmd *cobra.Command, args []string) error {
	extra := map[string]interface{}{}
	if searchEndpoint != "" {
		extra["endpoint"] = searchEndpoint
	}

	a, err := newApp(cmd, extra)
	if err != nil {
		return err
	}
	if _, err := a.store.Folder(searchFolder); err != nil {
		return err
	}

	searcher, err := a.searcher()
	if err != nil {
		return err
	}

	opts := task.ReverseSearchOptions{
		Larger: searchLarger,
		More:   searchMore,
		LargerOpts: task.LargerOptions{
			Folder:          searchFolder,
			DimensionRatio:  a.cfg.Larger.DimensionRatio,
			FilesizeRatio:   a.cfg.Larger.FilesizeRatio,
			AttentionSubdir: a.cfg.Larger.AttentionSubdir,
		},
		MoreOpts: task.MoreOptions{
			Folder:        searchFolder,
			MinDimension:  a.cfg.More.MinDimension,
			LowerMargin:   a.cfg.More.LowerMargin,
			UpperMargin:   a.cfg.More.UpperMargin,
			MaxSpan:       a.cfg.More.MaxSpan,
			FailThreshold: a.cfg.More.FailThreshold,
		},
	}

	tasks := make([]task.Task, 0, len(args))
	for _, target := range args {
		t, err := task.NewReverseSearchTask(target, searcher, a.downloader, a.store, opts)
		if err != nil {
			return err
		}
		a.log.InfoWithFields("queued reverse search", map[string]interface{}{
			"target":  target,
			"sources": len(t.Sources()),
		})
		tasks = append(tasks, t)
	}
	return runTasks(cmd, a, tasks...)
}
