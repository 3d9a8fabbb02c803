// cmd/notifier/history.go
package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"hiring-notifier/internal/models"
	"hiring-notifier/internal/notification/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent rows of the notification log",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of rows")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Database.Postgres.Enabled() {
		return fmt.Errorf("notification log is disabled: set database.postgres.host and database")
	}
	limit, _ := cmd.Flags().GetInt("limit")

	zapLog, log, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer zapLog.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	pg, err := connectPostgres(ctx, cfg.Database.Postgres, log)
	if err != nil {
		return err
	}
	defer pg.Close()

	recs, err := ledger.New(pg.DB).Recent(ctx, limit)
	if err != nil {
		return err
	}
	return printHistory(cmd.OutOrStdout(), recs)
}

func printHistory(w io.Writer, recs []models.DeliveryRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tKIND\tRECIPIENT\tSTATUS\tATTEMPTS\tPROVIDER\tDETAIL")
	for _, r := range recs {
		detail := r.MessageID
		if r.Error != "" {
			detail = r.Error
		} else if r.Reason != "" {
			detail = r.Reason
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.CreatedAt.Format(time.RFC3339), r.Kind, r.RecipientEmail, r.Status, r.Attempts, r.Provider, detail)
	}
	return tw.Flush()
}
