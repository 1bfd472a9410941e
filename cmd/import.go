package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/botlog/internal/ingest"
	"github.com/JakeFAU/botlog/internal/server"
)

type importOptions struct {
	clientID int64
	kind     string
}

func newImportCmd(root *rootOptions) *cobra.Command {
	opts := &importOptions{}
	cmd := &cobra.Command{
		Use:   "import <path | gs://bucket/object>",
		Short: "Import one log file synchronously",
		Long: `Import reads a local file or a Cloud Storage object, runs it through the
same pipeline the workers use, and prints the finished job as JSON. The
source is copied into the spool first and is never modified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.clientID <= 0 {
				return errors.New("--client must be a positive id")
			}
			kind, err := ingest.ParseSourceKind(opts.kind)
			if err != nil {
				return err
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			app, err := server.Build(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}
			defer func() {
				if cerr := app.Close(context.WithoutCancel(cmd.Context())); cerr != nil {
					app.Logger().Warn("close application", zap.Error(cerr))
				}
			}()

			job, runErr := app.Import(cmd.Context(), ingest.TenantID(opts.clientID), kind, args[0])
			if job.ID != uuid.Nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(job); err != nil {
					return fmt.Errorf("write result: %w", err)
				}
			}
			if runErr != nil {
				return fmt.Errorf("import %s: %w", args[0], runErr)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&opts.clientID, "client", 0, "client id that owns the log")
	cmd.Flags().StringVar(&opts.kind, "kind", "auto", "source kind: auto, raw_access_log, tabular_log or workbook")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}
