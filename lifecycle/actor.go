package lifecycle

import (
	"fmt"
	"strings"
)

// Actor is the capability tag that decides which transitions a caller may
// request. Nothing outside this package compares actors.
type Actor string

const (
	ActorCitizen    Actor = "CITIZEN"
	ActorAdmin      Actor = "ADMIN"
	ActorContractor Actor = "CONTRACTOR"
)

// ParseActor accepts the role names used in tokens, with or without the
// ROLE_ prefix and in any case.
func ParseActor(s string) (Actor, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "ROLE_")
	switch Actor(name) {
	case ActorCitizen, ActorAdmin, ActorContractor:
		return Actor(name), nil
	case "USER":
		return ActorCitizen, nil
	}
	return "", fmt.Errorf("unknown actor %q", s)
}

func (a Actor) Valid() bool {
	switch a {
	case ActorCitizen, ActorAdmin, ActorContractor:
		return true
	}
	return false
}

// Scope is the slice of the issue collection an actor can see.
type Scope string

const (
	ScopeOwn      Scope = "own"
	ScopeAssigned Scope = "assigned"
	ScopeAll      Scope = "all"
)

// Session identifies who is acting. It is passed explicitly into every
// store and engine call.
type Session struct {
	UserID string `json:"userId"`
	Actor  Actor  `json:"actor"`
	// ContractorID is the contractor profile of a contractor session.
	ContractorID string `json:"contractorId,omitempty"`
}

// Scope returns the visibility scope implied by the session's actor.
func (s Session) Scope() Scope {
	switch s.Actor {
	case ActorAdmin:
		return ScopeAll
	case ActorContractor:
		return ScopeAssigned
	default:
		return ScopeOwn
	}
}

func (s Session) String() string {
	return fmt.Sprintf("%s:%s", strings.ToLower(string(s.Actor)), s.UserID)
}

// Capability names an action that is gated by actor rather than by issue state.
type Capability string

const (
	CapReportIssue        Capability = "report_issue"
	CapViewAllIssues      Capability = "view_all_issues"
	CapManageContractors  Capability = "manage_contractors"
	CapRegisterContractor Capability = "register_contractor"
	CapSubmitFeedback     Capability = "submit_feedback"
	CapViewAnalytics      Capability = "view_analytics"
)

var capabilities = map[Actor][]Capability{
	ActorCitizen:    {CapReportIssue, CapSubmitFeedback},
	ActorAdmin:      {CapViewAllIssues, CapManageContractors, CapViewAnalytics},
	ActorContractor: {CapRegisterContractor},
}

// Can reports whether the actor holds the capability.
func (a Actor) Can(c Capability) bool {
	for _, held := range capabilities[a] {
		if held == c {
			return true
		}
	}
	return false
}
