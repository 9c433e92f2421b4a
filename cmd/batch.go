package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/regrule/internal/model"
	"github.com/sells-group/regrule/internal/service"
)

// batchFunc runs one folder-level operation against the service.
type batchFunc func(ctx context.Context, svc *service.Service) (*model.BatchResult, error)

// runBatch initializes the pipeline, runs fn, and prints its summary.
// Per-file failures are reported in the summary and do not fail the
// command.
func runBatch(cmd *cobra.Command, fn batchFunc) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initPipeline(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	batch, err := fn(ctx, env.Service)
	if err != nil {
		return err
	}
	formatBatch(cmd.OutOrStdout(), batch)
	return nil
}

var (
	processSource string
	processTarget string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Classify every document in a folder into ordered spreadsheet reports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runBatch(cmd, func(ctx context.Context, svc *service.Service) (*model.BatchResult, error) {
			return svc.ProcessFolder(ctx, processSource, processTarget)
		})
	},
}

var enrichFolder string

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fill common_element and CDSRL_result for automatable rows",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runBatch(cmd, func(ctx context.Context, svc *service.Service) (*model.BatchResult, error) {
			return svc.EnrichFolder(ctx, enrichFolder)
		})
	},
}

var countFolder string

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count automatable rows per spreadsheet and write count.txt",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runBatch(cmd, func(ctx context.Context, svc *service.Service) (*model.BatchResult, error) {
			return svc.CountFolder(ctx, countFolder)
		})
	},
}

var beautifyFolder string

var beautifyCmd = &cobra.Command{
	Use:   "beautify",
	Short: "Size and wrap the enrichment columns of every spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runBatch(cmd, func(ctx context.Context, svc *service.Service) (*model.BatchResult, error) {
			return svc.BeautifyFolder(ctx, beautifyFolder)
		})
	},
}

var (
	setWidthFolder string
	setWidthValue  float64
)

var setWidthCmd = &cobra.Command{
	Use:   "set-width",
	Short: "Set the width of the last two columns of every spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		width := setWidthValue
		if !cmd.Flags().Changed("width") && cfg.Report.TrailingWidth > 0 {
			width = cfg.Report.TrailingWidth
		}
		if width <= 0 {
			return eris.New("set-width: --width must be positive")
		}
		return runBatch(cmd, func(ctx context.Context, svc *service.Service) (*model.BatchResult, error) {
			return svc.SetColumnWidthFolder(ctx, setWidthFolder, width)
		})
	},
}

func init() {
	processCmd.Flags().StringVar(&processSource, "source", "", "folder of documents to classify")
	processCmd.Flags().StringVar(&processTarget, "target", "", "folder the reports are written to")
	_ = processCmd.MarkFlagRequired("source")
	_ = processCmd.MarkFlagRequired("target")

	enrichCmd.Flags().StringVar(&enrichFolder, "folder", "", "folder of reports, searched recursively")
	_ = enrichCmd.MarkFlagRequired("folder")

	countCmd.Flags().StringVar(&countFolder, "folder", "", "folder of reports")
	_ = countCmd.MarkFlagRequired("folder")

	beautifyCmd.Flags().StringVar(&beautifyFolder, "folder", "", "folder of reports")
	_ = beautifyCmd.MarkFlagRequired("folder")

	setWidthCmd.Flags().StringVar(&setWidthFolder, "folder", "", "folder of reports")
	setWidthCmd.Flags().Float64Var(&setWidthValue, "width", 30, "column width")
	_ = setWidthCmd.MarkFlagRequired("folder")

	rootCmd.AddCommand(processCmd, enrichCmd, countCmd, beautifyCmd, setWidthCmd)
}

// formatBatch writes a per-file table followed by the batch totals.
func formatBatch(out io.Writer, batch *model.BatchResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FILE\tSTATUS\tROWS\tAUTOMATABLE\tDURATION\tERROR")
	_, _ = fmt.Fprintln(w, "----\t------\t----\t-----------\t--------\t-----")
	for _, r := range batch.Results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			r.File,
			r.Status,
			r.Rows,
			r.Automatable,
			r.Duration.Round(time.Millisecond),
			truncate(r.Error, 60),
		)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\n%s: %d files, %d succeeded, %d failed",
		batch.Kind, len(batch.Results), batch.Succeeded(), batch.Failed())
	if batch.Kind == model.RunKindCount {
		_, _ = fmt.Fprintf(out, ", total count %d", batch.Total)
	}
	if batch.RunID != "" {
		_, _ = fmt.Fprintf(out, " (run %s)", truncateID(batch.RunID))
	}
	_, _ = fmt.Fprintln(out)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
