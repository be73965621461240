package main

import (
	"errors"
	"time"

	"github.com/caarlos0/duration"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"teamfinance/internal/auth"
)

func tokenCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage bearer tokens",
	}

	var (
		user      string
		expiresIn string
	)
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			ttl, err := duration.Parse(expiresIn)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				return errors.New("--expires-in must be positive")
			}

			authn := auth.New(auth.Config{
				Header:   a.cfg.IdentityHeader,
				Secret:   a.cfg.JWTSecret,
				Issuer:   a.cfg.JWTIssuer,
				Audience: a.cfg.JWTAudience,
			}, a.logger)

			now := time.Now()
			token, err := authn.IssueToken(user, ttl, now)
			if err != nil {
				return err
			}

			cmd.PrintErrln("Token issued (expires " + humanize.Time(now.Add(ttl)) + ")")
			cmd.Println(token)
			return nil
		},
	}
	issueCmd.Flags().StringVarP(&user, "user", "u", "", "User id the token identifies")
	issueCmd.Flags().StringVar(&expiresIn, "expires-in", "1d", "Token lifetime (e.g. 1y, 2w, 5d4h, 1h30m)")

	cmd.AddCommand(issueCmd)
	return cmd
}
