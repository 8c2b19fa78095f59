package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/andresmejia3/goober/internal/journal"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent capture sessions from the journal",
	Annotations: map[string]string{
		journalAnnotation: journalRequired,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistory(cmd.Context())
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(ctx context.Context) error {
	sessions, err := Journal.ListSessions(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No capture sessions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSOURCE\tSTARTED\tDURATION\tDETECTIONS\tMAX FACES\tSAVED\tDELETED")
	fmt.Fprintln(w, "-------\t------\t-------\t--------\t----------\t---------\t-----\t-------")

	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			s.ID.String()[:8], s.Source, s.StartedAt.Local().Format("2006-01-02 15:04"),
			sessionDuration(s), s.Detections, s.MaxFaces, s.Saved, s.Deleted)
	}
	return w.Flush()
}

func sessionDuration(s journal.SessionSummary) string {
	if s.EndedAt == nil {
		return "open"
	}
	d := s.EndedAt.Sub(s.StartedAt)
	if d < 0 {
		return "-"
	}
	secs := int(d.Seconds())
	if secs < 60 {
		return strconv.Itoa(secs) + "s"
	}
	return fmt.Sprintf("%dm%02ds", secs/60, secs%60)
}
