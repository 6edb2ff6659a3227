package main

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"civicresolve/lifecycle"
	"civicresolve/models"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func statusText(s models.IssueStatus) string {
	switch s {
	case models.StatusPending:
		return yellow(string(s))
	case models.StatusVerified, models.StatusInProgress:
		return cyan(string(s))
	case models.StatusCompletedPendingApproval:
		return bold(string(s))
	case models.StatusResolved:
		return green(string(s))
	case models.StatusRejected:
		return red(string(s))
	}
	return string(s)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func printIssues(w io.Writer, issues []models.Issue) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCATEGORY\tPINCODE\tDESCRIPTION")
	for _, i := range issues {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", i.ID, statusText(i.Status), i.Category, i.Pincode, truncate(i.Description, 48))
	}
	_ = tw.Flush()
}

func newIssuesCmd(connect connectFunc, jsonOut func() bool) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "List the issues visible to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			issues := a.store.Snapshot()
			if status != "" {
				want := models.IssueStatus(strings.ToUpper(status))
				kept := issues[:0]
				for _, i := range issues {
					if i.Status == want {
						kept = append(kept, i)
					}
				}
				issues = kept
			}
			if jsonOut() {
				return printJSON(cmd.OutOrStdout(), issues)
			}
			printIssues(cmd.OutOrStdout(), issues)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only issues in this status")
	return cmd
}

func newShowCmd(connect connectFunc, jsonOut func() bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show an issue and the transitions you may request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			issue, ok := a.store.Get(args[0])
			if !ok {
				return fmt.Errorf("issue %s: %w", args[0], lifecycle.ErrUnknownIssue)
			}
			edges, err := a.store.AllowedTransitions(a.sess, issue.ID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if jsonOut() {
				return printJSON(w, map[string]any{"issue": issue, "transitions": edges})
			}

			fmt.Fprintf(w, "%s  %s\n", bold(issue.ID), statusText(issue.Status))
			fmt.Fprintf(w, "  %s, %s %s\n", issue.Category, issue.Address, issue.Pincode)
			fmt.Fprintf(w, "  %s\n", issue.Description)
			if issue.AssignedContractorID != "" {
				fmt.Fprintf(w, "  contractor: %s\n", issue.AssignedContractorID)
			}
			if issue.Remark != "" {
				fmt.Fprintf(w, "  remark: %s\n", issue.Remark)
			}
			for _, e := range edges {
				hint := ""
				switch {
				case e.Assignment:
					hint = " (civicctl assign)"
				case e.AfterImage:
					hint = " (needs --after)"
				case e.RemarkRecommended:
					hint = " (give a --remark)"
				}
				fmt.Fprintf(w, "  -> %s%s\n", statusText(e.To), hint)
			}
			return nil
		},
	}
}

// readImage loads an upload from disk; an empty path means none.
func readImage(path string) (*models.Upload, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &models.Upload{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}

func newReportCmd(connect connectFunc) *cobra.Command {
	var (
		draft    models.IssueDraft
		category string
		lat, lng float64
		image    string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report a new issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			draft.Category = models.IssueCategory(strings.ToUpper(category))
			if cmd.Flags().Changed("lat") {
				draft.Latitude = &lat
			}
			if cmd.Flags().Changed("lng") {
				draft.Longitude = &lng
			}
			if draft.Image, err = readImage(image); err != nil {
				return err
			}
			issue, err := a.store.Create(cmd.Context(), a.sess, draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reported %s %s\n", bold(issue.ID), statusText(issue.Status))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&draft.Description, "description", "", "what is wrong")
	f.StringVar(&draft.Address, "address", "", "street address")
	f.StringVar(&draft.Pincode, "pincode", "", "6 digit pincode")
	f.StringVar(&category, "category", "", "issue category, e.g. POTHOLE")
	f.StringVar(&draft.OtherCategory, "other", "", "category name when --category OTHER")
	f.Float64Var(&lat, "lat", 0, "latitude")
	f.Float64Var(&lng, "lng", 0, "longitude")
	f.StringVar(&image, "image", "", "photo of the issue")
	return cmd
}

func newTransitionCmd(connect connectFunc) *cobra.Command {
	var remark, before, after string
	cmd := &cobra.Command{
		Use:   "transition ID STATUS",
		Short: "Move an issue to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			req := lifecycle.Request{
				Target:  models.IssueStatus(strings.ToUpper(args[1])),
				Payload: lifecycle.Payload{Remark: remark},
			}
			if req.Payload.BeforeImage, err = readImage(before); err != nil {
				return err
			}
			if req.Payload.AfterImage, err = readImage(after); err != nil {
				return err
			}
			issue, err := a.store.RequestTransition(cmd.Context(), a.sess, args[0], req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", issue.ID, statusText(issue.Status))
			return nil
		},
	}
	cmd.Flags().StringVar(&remark, "remark", "", "note recorded with the transition")
	cmd.Flags().StringVar(&before, "before", "", "photo before the work")
	cmd.Flags().StringVar(&after, "after", "", "photo after the work")
	return cmd
}

func newDeleteCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Withdraw an issue you reported",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.store.Delete(cmd.Context(), a.sess, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
