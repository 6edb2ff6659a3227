// Command civicctl drives the issue lifecycle from a terminal against a
// running civicresolve server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"civicresolve/client"
	"civicresolve/lifecycle"
	"civicresolve/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}

// app is what every command needs once connected: the remote client, the
// caller's session and a loaded issue snapshot.
type app struct {
	api   *client.Client
	sess  lifecycle.Session
	store *store.IssueStore
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "civicctl",
		Short:         "Report, triage and resolve civic issues",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(v, cmd)
		},
	}
	root.PersistentFlags().String("server", "http://localhost:8080", "server base URL")
	root.PersistentFlags().String("token", "", "bearer token")
	root.PersistentFlags().String("config", "", "config file (default $HOME/.civicctl.yaml)")
	root.PersistentFlags().Bool("json", false, "print JSON")
	_ = v.BindPFlag("server", root.PersistentFlags().Lookup("server"))
	_ = v.BindPFlag("token", root.PersistentFlags().Lookup("token"))
	_ = v.BindPFlag("json", root.PersistentFlags().Lookup("json"))

	dial := func(ctx context.Context) (*app, error) {
		api := client.New(v.GetString("server"), client.WithToken(v.GetString("token")))
		sess, err := api.Session(ctx)
		if err != nil {
			return nil, err
		}
		return &app{api: api, sess: sess, store: store.New(api)}, nil
	}
	connect := func(ctx context.Context) (*app, error) {
		a, err := dial(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := a.store.List(ctx, a.sess); err != nil {
			return nil, err
		}
		return a, nil
	}
	jsonOut := func() bool { return v.GetBool("json") }

	root.AddCommand(
		newWhoamiCmd(connect),
		newIssuesCmd(connect, jsonOut),
		newShowCmd(connect, jsonOut),
		newReportCmd(connect),
		newTransitionCmd(connect),
		newDeleteCmd(connect),
		newAssignCmd(connect),
		newCandidatesCmd(connect),
		newFeedbackCmd(connect),
		newDashboardCmd(dial, jsonOut),
		newTokenCmd(),
	)
	return root
}

// connectFunc opens a session. The connect variant also loads the issue
// snapshot; dial leaves it empty.
type connectFunc func(ctx context.Context) (*app, error)

// loadConfig layers flags over CIVIC_* env over the config file.
func loadConfig(v *viper.Viper, cmd *cobra.Command) error {
	v.SetEnvPrefix("civic")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigFile(filepath.Join(home, ".civicctl.yaml"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func newWhoamiCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the session behind the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", a.sess.UserID, strings.ToLower(string(a.sess.Actor)))
			if a.sess.ContractorID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "contractor profile %s\n", a.sess.ContractorID)
			}
			return nil
		},
	}
}

// errorLine renders err with a hint for the kinds a user can act on.
func errorLine(err error) string {
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		return red("invalid input: ") + err.Error()
	case errors.Is(err, lifecycle.ErrNotAuthorized):
		return red("not allowed: ") + err.Error()
	case errors.Is(err, lifecycle.ErrMissingEvidence):
		return red("missing evidence: ") + "attach an after image with --after"
	}
	return red("error: ") + err.Error()
}
