// Package stats derives dashboard figures from an issue snapshot. Everything
// here is recomputed from scratch on every call.
package stats

import (
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"

	"civicresolve/models"
)

// Summary holds counts for one snapshot.
type Summary struct {
	Total      int                          `json:"total"`
	ByStatus   map[models.IssueStatus]int   `json:"byStatus"`
	ByCategory map[models.IssueCategory]int `json:"byCategory"`
	// ByContractor counts issues per assigned contractor.
	ByContractor map[string]int `json:"byContractor"`
	// ByReporter counts issues per reporting citizen.
	ByReporter map[string]int    `json:"byReporter"`
	Resolution ResolutionSummary `json:"resolution"`
}

// ResolutionSummary describes how long resolved issues took, in hours from
// creation to the last update.
type ResolutionSummary struct {
	Count        int     `json:"count"`
	MeanHours    float64 `json:"meanHours"`
	MedianHours  float64 `json:"medianHours"`
	P90Hours     float64 `json:"p90Hours"`
	SlowestHours float64 `json:"slowestHours"`
}

// CitizenView is the summary shown to citizens: everything not yet closed
// counts as pending.
type CitizenView struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Verified int `json:"verified"`
	Resolved int `json:"resolved"`
	Rejected int `json:"rejected"`
}

// AdminView keeps work awaiting approval separate from the pending queue.
type AdminView struct {
	Total            int `json:"total"`
	Pending          int `json:"pending"`
	Verified         int `json:"verified"`
	AwaitingApproval int `json:"awaitingApproval"`
	Resolved         int `json:"resolved"`
	Rejected         int `json:"rejected"`
}

// Aggregate computes a Summary. Every status and category key is present,
// zero or not, so two summaries of the same snapshot compare equal.
func Aggregate(issues []models.Issue) Summary {
	s := Summary{
		Total:        len(issues),
		ByStatus:     make(map[models.IssueStatus]int),
		ByCategory:   make(map[models.IssueCategory]int),
		ByContractor: make(map[string]int),
		ByReporter:   make(map[string]int),
	}
	for _, st := range models.Statuses() {
		s.ByStatus[st] = 0
	}
	for _, c := range models.Categories() {
		s.ByCategory[c] = 0
	}

	var hours mstats.Float64Data
	for _, issue := range issues {
		s.ByStatus[issue.Status]++
		s.ByCategory[issue.Category]++
		if issue.AssignedContractorID != "" {
			s.ByContractor[issue.AssignedContractorID]++
		}
		if issue.ReportedBy != "" {
			s.ByReporter[issue.ReportedBy]++
		}
		if issue.Status == models.StatusResolved && issue.UpdatedAt.After(issue.CreatedAt) {
			hours = append(hours, issue.UpdatedAt.Sub(issue.CreatedAt).Hours())
		}
	}
	s.Resolution = resolution(hours)
	return s
}

func resolution(hours mstats.Float64Data) ResolutionSummary {
	out := ResolutionSummary{Count: hours.Len()}
	if out.Count == 0 {
		return out
	}
	out.MeanHours = orZero(hours.Mean())
	out.MedianHours = orZero(hours.Median())
	out.P90Hours = orZero(hours.Percentile(90))
	out.SlowestHours = orZero(hours.Max())
	return out
}

// orZero drops results the stats package could not compute; Percentile
// reports NaN with an error on very small inputs.
func orZero(v float64, err error) float64 {
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}

// Citizen folds the summary into the citizen-facing view.
func (s Summary) Citizen() CitizenView {
	return CitizenView{
		Total: s.Total,
		Pending: s.ByStatus[models.StatusPending] +
			s.ByStatus[models.StatusInProgress] +
			s.ByStatus[models.StatusCompletedPendingApproval],
		Verified: s.ByStatus[models.StatusVerified],
		Resolved: s.ByStatus[models.StatusResolved],
		Rejected: s.ByStatus[models.StatusRejected],
	}
}

// Admin folds the summary into the admin-facing view.
func (s Summary) Admin() AdminView {
	return AdminView{
		Total:            s.Total,
		Pending:          s.ByStatus[models.StatusPending] + s.ByStatus[models.StatusInProgress],
		Verified:         s.ByStatus[models.StatusVerified],
		AwaitingApproval: s.ByStatus[models.StatusCompletedPendingApproval],
		Resolved:         s.ByStatus[models.StatusResolved],
		Rejected:         s.ByStatus[models.StatusRejected],
	}
}

// CategoryCount is one row of the per-category breakdown.
type CategoryCount struct {
	Category models.IssueCategory `json:"category"`
	Count    int                  `json:"count"`
}

// TopCategories returns non-empty categories, largest first, ties by name.
func (s Summary) TopCategories() []CategoryCount {
	var out []CategoryCount
	for c, n := range s.ByCategory {
		if n > 0 {
			out = append(out, CategoryCount{Category: c, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// RatingSummary describes citizen feedback.
type RatingSummary struct {
	Count  int         `json:"count"`
	Mean   float64     `json:"mean"`
	Median float64     `json:"median"`
	ByStar map[int]int `json:"byStar"`
}

// Ratings summarises feedback records.
func Ratings(feedback []models.Feedback) RatingSummary {
	out := RatingSummary{Count: len(feedback), ByStar: make(map[int]int)}
	for star := models.MinRating; star <= models.MaxRating; star++ {
		out.ByStar[star] = 0
	}
	if len(feedback) == 0 {
		return out
	}
	data := make(mstats.Float64Data, 0, len(feedback))
	for _, f := range feedback {
		out.ByStar[f.Rating]++
		data = append(data, float64(f.Rating))
	}
	out.Mean = orZero(data.Mean())
	out.Median = orZero(data.Median())
	return out
}

// Report is the admin dashboard payload.
type Report struct {
	Summary       Summary         `json:"summary"`
	Admin         AdminView       `json:"admin"`
	TopCategories []CategoryCount `json:"topCategories"`
	Ratings       RatingSummary   `json:"ratings"`
}

// NewReport builds the dashboard from issues and feedback.
func NewReport(issues []models.Issue, feedback []models.Feedback) Report {
	s := Aggregate(issues)
	return Report{
		Summary:       s,
		Admin:         s.Admin(),
		TopCategories: s.TopCategories(),
		Ratings:       Ratings(feedback),
	}
}
