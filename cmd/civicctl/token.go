package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"civicresolve/lifecycle"
	authUtils "civicresolve/utils"
)

func newTokenCmd() *cobra.Command {
	var (
		secret, user, role string
		ttl                time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development token with the server's JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := lifecycle.ParseActor(role)
			if err != nil {
				return err
			}
			tok, err := authUtils.GenerateToken(secret, user, actor, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&secret, "secret", "", "JWT secret")
	f.StringVar(&user, "user", "", "user id")
	f.StringVar(&role, "role", "citizen", "citizen, admin or contractor")
	f.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("secret")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
