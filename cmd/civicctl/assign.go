package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"civicresolve/assignment"
)

func newAssignCmd(connect connectFunc) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "assign ID [CONTRACTOR_ID]",
		Short: "Assign a verified issue to a contractor",
		Long: `Assign a verified issue to an approved contractor.

Without CONTRACTOR_ID the best ranked candidate is used: contractors
serving the issue's pincode first, then the least busy.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			var opts []assignment.Option
			if strict {
				opts = append(opts, assignment.WithStrictArea())
			}
			resolver := assignment.NewResolver(a.store, a.api, opts...)

			contractorID := ""
			if len(args) == 2 {
				contractorID = args[1]
			} else {
				best, err := resolver.Suggest(cmd.Context(), a.sess, args[0])
				if err != nil {
					return err
				}
				contractorID = best.Contractor.ID
			}

			res, err := resolver.Assign(cmd.Context(), a.sess, args[0], contractorID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s assigned to %s (%s)\n", res.Issue.ID, res.Contractor.FullName, res.Contractor.ID)
			if !res.AreaMatch {
				fmt.Fprintln(w, yellow("warning: contractor does not serve pincode "+res.Issue.Pincode))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "refuse contractors outside the issue's area")
	return cmd
}

func newCandidatesCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "candidates ID",
		Short: "Rank approved contractors for an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			list, err := assignment.NewResolver(a.store, a.api).Candidates(cmd.Context(), a.sess, args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tAREA\tMATCH\tACTIVE")
			for _, c := range list {
				match := red("no")
				if c.AreaMatch {
					match = green("yes")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", c.Contractor.ID, c.Contractor.FullName, c.Contractor.AssignedArea, match, c.ActiveIssues)
			}
			return tw.Flush()
		},
	}
}
