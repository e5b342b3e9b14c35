package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/medscan/internal/common"
	repo "github.com/joseph-ayodele/medscan/internal/repository"
)

// app is shared by every subcommand once the root has opened the store.
type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	db        *repo.DB
	proposals repo.ProposalRepository
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var dsn string

	root := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Review proposed lab values and medication records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := common.LoadConfig()
			if err != nil {
				return err
			}
			if dsn != "" {
				cfg.Store.DSN = dsn
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = common.NewLogger(cfg.Log, cmd.ErrOrStderr())

			db, err := repo.Open(cmd.Context(), repo.ConfigFrom(cfg.Store), a.logger)
			if err != nil {
				return fmt.Errorf("opening review store: %w", err)
			}
			a.db = db
			a.proposals = repo.NewProposalRepository(db, a.logger)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.db.Close()
		},
	}
	root.PersistentFlags().StringVar(&dsn, "db", "", "review store DSN (overrides DB_URL)")

	root.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newConfirmCmd(a),
		newRejectCmd(a),
		newExportCmd(a),
		newHealthCmd(a),
	)
	return root
}
