package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/supportdesk/supportgate/internal/config"
	"github.com/supportdesk/supportgate/internal/logreader"
	"github.com/supportdesk/supportgate/internal/pkg/redact"
)

var (
	fileFlag   string
	allFlag    bool
	userFlag   string
	statusFlag int
	pathFlag   string
	limitFlag  int
	outputFlag string
)

var rootCmd = &cobra.Command{
	Use:               "inspector",
	Short:             "Inspect the supportgate request log",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	SilenceUsage:      true,
}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the most recent request records",
	Example: `inspector tail --user admin --limit 20
inspector tail --status 500 --all -o json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		paths, err := logreader.Segments(logFile(cfg), allFlag)
		if err != nil {
			return err
		}
		filter := logreader.Filter{User: userFlag, Status: statusFlag, Path: pathFlag}

		var window []*logreader.Entry
		res, err := logreader.Scan(paths, filter, func(e *logreader.Entry) {
			window = append(window, e)
			if limitFlag > 0 && len(window) > limitFlag {
				window = window[1:]
			}
		})
		if err != nil {
			return err
		}

		if outputFlag == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, e := range window {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 6, 4, 3, ' ', tabwriter.TabIndent)
		defer w.Flush()
		fmt.Fprintln(w, "TIMESTAMP\tREQUEST_ID\tUSER\tMETHOD\tENDPOINT\tSTATUS\tDURATION\t")
		for _, e := range window {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%.3fs\t\n",
				e.Timestamp, e.RequestID, e.User, e.Method, e.Endpoint, e.StatusCode, e.DurationSeconds)
		}
		if len(res.Malformed) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d malformed line(s) skipped\n", len(res.Malformed))
		}
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every line is a well-formed record and no sensitive value escaped masking",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		policy := redact.NewPolicy(cfg.Audit.Mask, cfg.Audit.SensitiveKeys...)

		paths, err := logreader.Segments(logFile(cfg), allFlag)
		if err != nil {
			return err
		}
		var leaks []string
		res, err := logreader.Scan(paths, logreader.Filter{}, func(e *logreader.Entry) {
			for _, p := range logreader.FindLeaks(policy, e) {
				leaks = append(leaks, e.RequestID+": "+p)
			}
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "records: %d, malformed: %d, unmasked: %d\n", res.Records, len(res.Malformed), len(leaks))
		for _, m := range res.Malformed {
			fmt.Fprintln(out, "malformed "+m)
		}
		for _, l := range leaks {
			fmt.Fprintln(out, "unmasked "+l)
		}
		if len(res.Malformed) > 0 || len(leaks) > 0 {
			return fmt.Errorf("request log verification failed")
		}
		return nil
	},
}

// logFile prefers --file, then audit.file from config and env.
func logFile(cfg *config.Config) string {
	if fileFlag != "" {
		return fileFlag
	}
	return cfg.Audit.File
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&fileFlag, "file", "f", "", "Active request log file (default: audit.file)")
	rootCmd.PersistentFlags().BoolVar(&allFlag, "all", false, "Include rotated segments")

	tailCmd.Flags().StringVarP(&userFlag, "user", "u", "", "Only records of this user")
	tailCmd.Flags().IntVarP(&statusFlag, "status", "s", 0, "Only records with this status code")
	tailCmd.Flags().StringVarP(&pathFlag, "path", "p", "", "Only endpoints with this prefix")
	tailCmd.Flags().IntVarP(&limitFlag, "limit", "n", 50, "Number of records to print, 0 for all")
	tailCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output format. One of: (json)")

	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
