package models

import "time"

// Feedback is a citizen's satisfaction rating for a resolved issue.
type Feedback struct {
	ID          string    `bson:"_id" json:"id"`
	IssueID     string    `bson:"issueId" json:"issueId" validate:"required"`
	Rating      int       `bson:"rating" json:"rating"`
	Comment     string    `bson:"comment,omitempty" json:"comment,omitempty" validate:"max=1000"`
	SubmittedBy string    `bson:"submittedBy" json:"submittedBy"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

const (
	MinRating = 1
	MaxRating = 5
)
