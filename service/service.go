// Package service is the authoritative side of the issue lifecycle. It
// re-checks every request against the lifecycle engine using freshly loaded
// state and persists the result; concurrent writers resolve last write wins.
package service

import "civicresolve/repository"

// Services bundles the services sharing one set of repositories.
type Services struct {
	Issues      *IssueService
	Contractors *ContractorService
	Feedback    *FeedbackService
	Analytics   *AnalyticsService
}

func New(repos repository.Repositories, opts ...Option) *Services {
	return &Services{
		Issues:      NewIssueService(repos, opts...),
		Contractors: NewContractorService(repos, opts...),
		Feedback:    NewFeedbackService(repos, opts...),
		Analytics:   NewAnalyticsService(repos, opts...),
	}
}
