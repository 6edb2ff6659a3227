// Package notify tells the people involved in an issue that something
// happened to it. Delivery is best effort: callers log a failed send and
// carry on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"civicresolve/models"
)

type Kind string

const (
	IssueReported      Kind = "issue_reported"
	IssueResolved      Kind = "issue_resolved"
	IssueRejected      Kind = "issue_rejected"
	IssueReturned      Kind = "issue_returned"
	ContractorApproved Kind = "contractor_approved"
)

// Event is one notification. Recipient is the user id it is meant for.
type Event struct {
	Kind            Kind               `json:"kind"`
	Recipient       string             `json:"recipient"`
	IssueID         string             `json:"issueId,omitempty"`
	ContractorID    string             `json:"contractorId,omitempty"`
	Status          models.IssueStatus `json:"status,omitempty"`
	Description     string             `json:"description,omitempty"`
	Remark          string             `json:"remark,omitempty"`
	BeforeImagePath string             `json:"beforeImagePath,omitempty"`
	AfterImagePath  string             `json:"afterImagePath,omitempty"`
	At              time.Time          `json:"at"`
}

var ErrNoRecipient = errors.New("notification has no recipient")

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Log writes events to a structured logger. It is the default when no
// message channel is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, ev Event) error {
	if ev.Recipient == "" {
		return ErrNoRecipient
	}
	l.logger.InfoContext(ctx, "notification", "kind", ev.Kind, "to", ev.Recipient,
		"issue", ev.IssueID, "status", ev.Status, "remark", ev.Remark)
	return nil
}

// Redis publishes events as JSON on a pub/sub channel for a mailer or any
// other subscriber to deliver.
type Redis struct {
	client  *redis.Client
	channel string
}

func NewRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

func (r *Redis) Notify(ctx context.Context, ev Event) error {
	if ev.Recipient == "" {
		return ErrNoRecipient
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s notification: %w", ev.Kind, err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s notification: %w", ev.Kind, err)
	}
	return nil
}

// Fanout sends every event to all notifiers and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
