package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"civicresolve/feedback"
	"civicresolve/lifecycle"
)

func newFeedbackCmd(connect connectFunc) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "feedback ID RATING",
		Short: "Rate how a resolved issue was handled (1-5)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("rating %q: %w", args[1], lifecycle.ErrInvalidRating)
			}
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			c := feedback.NewCollector(a.store, a.api)
			if _, err := c.Load(cmd.Context(), a.sess); err != nil {
				return err
			}
			fb, err := c.Submit(cmd.Context(), a.sess, args[0], rating, comment)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "thanks, %s recorded for %s\n", strings.Repeat("*", fb.Rating), fb.IssueID)
			return nil
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "optional comment")
	return cmd
}
