package models

import (
	"time"
)

// IssueCategory enum
type IssueCategory string

const (
	CategoryPothole        IssueCategory = "POTHOLE"
	CategoryGarbage        IssueCategory = "GARBAGE"
	CategoryWaterLeakage   IssueCategory = "WATER_LEAKAGE"
	CategoryStreetLight    IssueCategory = "STREET_LIGHT"
	CategoryIllegalParking IssueCategory = "ILLEGAL_PARKING"
	CategoryNoiseComplaint IssueCategory = "NOISE_COMPLAINT"
	CategoryGraffiti       IssueCategory = "GRAFFITI"
	CategoryDeadAnimal     IssueCategory = "DEAD_ANIMAL"
	CategoryBrokenSidewalk IssueCategory = "BROKEN_SIDEWALK"
	CategoryOther          IssueCategory = "OTHER"
)

var categories = []IssueCategory{
	CategoryPothole,
	CategoryGarbage,
	CategoryWaterLeakage,
	CategoryStreetLight,
	CategoryIllegalParking,
	CategoryNoiseComplaint,
	CategoryGraffiti,
	CategoryDeadAnimal,
	CategoryBrokenSidewalk,
	CategoryOther,
}

// Categories returns every known category in display order.
func Categories() []IssueCategory {
	out := make([]IssueCategory, len(categories))
	copy(out, categories)
	return out
}

func (c IssueCategory) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// IssueStatus enum
type IssueStatus string

const (
	StatusPending                  IssueStatus = "PENDING"
	StatusVerified                 IssueStatus = "VERIFIED"
	StatusInProgress               IssueStatus = "IN_PROGRESS"
	StatusCompletedPendingApproval IssueStatus = "COMPLETED_PENDING_APPROVAL"
	StatusResolved                 IssueStatus = "RESOLVED"
	StatusRejected                 IssueStatus = "REJECTED"
)

var statuses = []IssueStatus{
	StatusPending,
	StatusVerified,
	StatusInProgress,
	StatusCompletedPendingApproval,
	StatusResolved,
	StatusRejected,
}

// Statuses returns the six lifecycle states in lifecycle order.
func Statuses() []IssueStatus {
	out := make([]IssueStatus, len(statuses))
	copy(out, statuses)
	return out
}

func (s IssueStatus) Valid() bool {
	for _, known := range statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s IssueStatus) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Issue represents a civic issue reported by a citizen.
// Empty optional strings (AssignedContractorID, image paths) mean "not set".
type Issue struct {
	ID                   string        `bson:"_id" json:"id"`
	Status               IssueStatus   `bson:"status" json:"status"`
	Category             IssueCategory `bson:"category" json:"category"`
	OtherCategory        string        `bson:"otherCategory,omitempty" json:"otherCategory,omitempty"`
	Description          string        `bson:"description" json:"description"`
	Address              string        `bson:"address" json:"address"`
	Pincode              string        `bson:"pincode" json:"pincode"`
	Latitude             float64       `bson:"latitude" json:"latitude"`
	Longitude            float64       `bson:"longitude" json:"longitude"`
	ReportedBy           string        `bson:"reportedBy" json:"reportedBy"`
	AssignedContractorID string        `bson:"assignedContractorId,omitempty" json:"assignedContractorId,omitempty"`
	ImagePath            string        `bson:"imagePath,omitempty" json:"imagePath,omitempty"`
	BeforeImagePath      string        `bson:"beforeImagePath,omitempty" json:"beforeImagePath,omitempty"`
	AfterImagePath       string        `bson:"afterImagePath,omitempty" json:"afterImagePath,omitempty"`
	Remark               string        `bson:"remark,omitempty" json:"remark,omitempty"`
	CreatedAt            time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Location is the map projection of an issue.
type Location struct {
	ID        string        `bson:"_id" json:"id"`
	Latitude  float64       `bson:"latitude" json:"latitude"`
	Longitude float64       `bson:"longitude" json:"longitude"`
	Address   string        `bson:"address" json:"address"`
	Category  IssueCategory `bson:"category" json:"category"`
	Status    IssueStatus   `bson:"status" json:"status"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
}

// Upload is an image attached to a request. Storage of the bytes is up to
// the backend; the issue only ever records the resulting path.
type Upload struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// Present reports whether the upload carries any content.
func (u *Upload) Present() bool {
	return u != nil && len(u.Data) > 0
}

// IssueDraft is what a citizen submits to report a new issue.
type IssueDraft struct {
	Description   string        `json:"description" validate:"required,min=10"`
	Address       string        `json:"address" validate:"required,max=500"`
	Pincode       string        `json:"pincode" validate:"required,pincode"`
	Category      IssueCategory `json:"category" validate:"required,category"`
	OtherCategory string        `json:"otherCategory,omitempty" validate:"required_if=Category OTHER,max=100"`
	Latitude      *float64      `json:"latitude" validate:"required,latitude"`
	Longitude     *float64      `json:"longitude" validate:"required,longitude"`
	Image         *Upload       `json:"-"`
}

// IssueEdit is a citizen's correction to an issue that is still PENDING.
// Coordinates and reporter are fixed at creation and cannot be edited.
type IssueEdit struct {
	Description   string        `json:"description" validate:"required,min=10"`
	Address       string        `json:"address" validate:"required,max=500"`
	Pincode       string        `json:"pincode" validate:"required,pincode"`
	Category      IssueCategory `json:"category" validate:"required,category"`
	OtherCategory string        `json:"otherCategory,omitempty" validate:"required_if=Category OTHER,max=100"`
	Image         *Upload       `json:"-"`
}
