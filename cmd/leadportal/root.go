package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/dukerupert/leadportal/internal/config"
	"github.com/dukerupert/leadportal/internal/database"
	"github.com/dukerupert/leadportal/internal/email"
	"github.com/dukerupert/leadportal/internal/logging"
	"github.com/dukerupert/leadportal/internal/partner"
	"github.com/dukerupert/leadportal/internal/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "leadportal",
		Short:         "Relocation lead intake with admin and partner portals",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newInviteCmd(),
		newShareCmd(),
		newPartnerStatusCmd(),
		newPruneCmd(),
		newHashPasswordCmd(),
	)
	return root
}

// env is what every command that touches the database needs.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sqlx.DB
}

func (e *env) Close() error {
	return e.db.Close()
}

// setup loads config, configures logging and opens the migrated database.
func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.Database())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func (e *env) partnerService() *partner.Service {
	mailer := email.NewClient(e.cfg.SMTP.Host, e.cfg.SMTP.Port, e.cfg.SMTP.Username, e.cfg.SMTP.Password, e.cfg.SMTP.From,
		email.WithTimeout(e.cfg.SMTP.Timeout),
		email.WithLogger(e.logger.With("component", "email")),
	)
	return partner.NewService(partner.Stores{
		Partners:    store.NewPartnerStore(e.db),
		Invites:     store.NewInviteStore(e.db),
		Shares:      store.NewShareStore(e.db),
		Leads:       store.NewLeadStore(e.db),
		Submissions: store.NewSubmissionStore(e.db),
	}, mailer, e.cfg.BaseURL,
		partner.WithInviteExpiry(e.cfg.InviteExpiry()),
		partner.WithLogger(e.logger.With("component", "partner")),
	)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()
			e.logger.Info("database migrated", "driver", e.cfg.DB.Driver)
			return nil
		},
	}
}

func newPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions and unused expired invites",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			sessions, err := store.NewSessionStore(e.db).DeleteExpired(ctx)
			if err != nil {
				return err
			}
			invites, err := store.NewInviteStore(e.db).DeleteExpired(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d sessions, %d invites\n", sessions, invites)
			return nil
		},
	}
}
