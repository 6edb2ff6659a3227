package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"civicresolve/lifecycle"
	"civicresolve/models"
	"civicresolve/stats"
)

func newDashboardCmd(dial connectFunc, jsonOut func() bool) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summarise the issues visible to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := dial(ctx)
			if err != nil {
				return err
			}

			var (
				summary  stats.Summary
				report   stats.Report
				feedback []models.Feedback
			)
			admin := a.sess.Actor.Can(lifecycle.CapViewAnalytics)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				_, err := a.store.List(gctx, a.sess)
				if err == nil {
					summary = stats.Aggregate(a.store.Snapshot())
				}
				return err
			})
			if admin {
				g.Go(func() error {
					var err error
					report, err = a.api.Summary(gctx)
					return err
				})
			} else if a.sess.Actor.Can(lifecycle.CapSubmitFeedback) {
				g.Go(func() error {
					var err error
					feedback, err = a.api.ListFeedback(gctx, a.sess)
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if admin {
				if jsonOut() {
					return printJSON(w, report)
				}
				printAdmin(w, report)
				return nil
			}
			if jsonOut() {
				return printJSON(w, map[string]any{"summary": summary.Citizen(), "ratings": stats.Ratings(feedback)})
			}
			printCitizen(w, summary, len(feedback))
			return nil
		},
	}
}

func printAdmin(w io.Writer, r stats.Report) {
	v := r.Admin
	fmt.Fprintf(w, "%s %d issues\n", bold("Total"), v.Total)
	fmt.Fprintf(w, "  %-20s %d\n", statusText(models.StatusPending), v.Pending)
	fmt.Fprintf(w, "  %-20s %d\n", statusText(models.StatusVerified), v.Verified)
	fmt.Fprintf(w, "  %-20s %d\n", "awaiting approval", v.AwaitingApproval)
	fmt.Fprintf(w, "  %-20s %d\n", statusText(models.StatusResolved), v.Resolved)
	fmt.Fprintf(w, "  %-20s %d\n", statusText(models.StatusRejected), v.Rejected)

	if res := r.Summary.Resolution; res.Count > 0 {
		fmt.Fprintf(w, "%s median %.1fh, p90 %.1fh over %d issues\n", bold("Resolution"), res.MedianHours, res.P90Hours, res.Count)
	}
	if len(r.TopCategories) > 0 {
		fmt.Fprintln(w, bold("Top categories"))
		for _, c := range r.TopCategories {
			fmt.Fprintf(w, "  %-20s %d\n", c.Category, c.Count)
		}
	}
	if r.Ratings.Count > 0 {
		fmt.Fprintf(w, "%s %.2f from %d ratings\n", bold("Satisfaction"), r.Ratings.Mean, r.Ratings.Count)
	}
}

func printCitizen(w io.Writer, s stats.Summary, rated int) {
	v := s.Citizen()
	fmt.Fprintf(w, "%s %d issues\n", bold("Total"), v.Total)
	fmt.Fprintf(w, "  %-20s %d\n", statusText(models.StatusPending), v.Pending)
	fmt.Fprintf(w, "  %-20s %d\n", statusText(models.StatusVerified), v.Verified)
	fmt.Fprintf(w, "  %-20s %d\n", statusText(models.StatusResolved), v.Resolved)
	fmt.Fprintf(w, "  %-20s %d\n", statusText(models.StatusRejected), v.Rejected)
	if rated > 0 {
		fmt.Fprintf(w, "%d rated\n", rated)
	}
}
