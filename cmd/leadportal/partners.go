package main

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/leadportal/internal/auth"
	"github.com/dukerupert/leadportal/internal/partner"
)

func newInviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite <email>",
		Short: "Create a partner invite and email its link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.partnerService().CreateInvite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "invite for %s expires %s\n", res.Invite.Email, res.Invite.ExpiresAt.Format(time.RFC1123))
			fmt.Fprintln(out, res.Link)
			if res.MailErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: email not sent: %v\n", res.MailErr)
			}
			return nil
		},
	}
}

func newShareCmd() *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "share <partner-email> [lead-id...]",
		Short: "Share leads with a partner, or list what is shared",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args)-1)
			for _, raw := range args[1:] {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid lead id %q", raw)
				}
				ids = append(ids, id)
			}

			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			svc := e.partnerService()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(ids) == 0 {
				shared, err := svc.SharedLeadIDs(ctx, args[0])
				if err != nil {
					return partnerErr(err, args[0])
				}
				for _, id := range shared {
					fmt.Fprintln(out, id)
				}
				return nil
			}

			for _, id := range ids {
				if revoke {
					if err := svc.UnshareLead(ctx, args[0], id); err != nil {
						return partnerErr(err, args[0])
					}
					fmt.Fprintf(out, "lead %d: revoked\n", id)
					continue
				}
				created, err := svc.ShareLead(ctx, args[0], id)
				switch {
				case errors.Is(err, partner.ErrLeadNotFound):
					fmt.Fprintf(cmd.ErrOrStderr(), "lead %d: not found\n", id)
					continue
				case err != nil:
					return partnerErr(err, args[0])
				}
				state := "shared"
				if !created {
					state = "already shared"
				}
				fmt.Fprintf(out, "lead %d: %s\n", id, state)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove the shares instead of adding them")
	return cmd
}

func newPartnerStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "partner-status <email> <active|disabled>",
		Short:     "Enable or disable a partner account",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"active", "disabled"},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.partnerService().SetStatus(cmd.Context(), args[0], args[1]); err != nil {
				return partnerErr(err, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", partner.NormalizeEmail(args[0]), args[1])
			return nil
		},
	}
}

func partnerErr(err error, email string) error {
	if errors.Is(err, partner.ErrPartnerNotFound) {
		return fmt.Errorf("no partner with email %s", email)
	}
	return err
}

func newHashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print a bcrypt hash for ADMIN_PASSWORD_HASH",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
				return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
			}
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			hash, err := auth.HashPassword(strings.TrimRight(line, "\r\n"), cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", partner.DefaultBcryptCost, "bcrypt cost")
	return cmd
}
