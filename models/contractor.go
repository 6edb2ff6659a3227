package models

import (
	"strings"
	"time"
)

// Contractor is a service provider that can be assigned verified issues.
// Only approved contractors are eligible for assignment.
type Contractor struct {
	ID             string    `bson:"_id" json:"id"`
	UserID         string    `bson:"userId" json:"userId"`
	FullName       string    `bson:"fullName" json:"fullName" validate:"required,min=3,max=100"`
	PhoneNumber    string    `bson:"phoneNumber" json:"phoneNumber" validate:"required,len=10,numeric"`
	Address        string    `bson:"address" json:"address" validate:"required,max=500"`
	AssignedArea   string    `bson:"assignedArea" json:"assignedArea" validate:"required"`
	Specialization string    `bson:"specialization,omitempty" json:"specialization,omitempty"`
	Approved       bool      `bson:"approved" json:"approved"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}

// Serves reports whether pincode falls in the contractor's service area.
// AssignedArea is a comma separated list of pincodes or pincode prefixes.
func (c Contractor) Serves(pincode string) bool {
	if pincode == "" {
		return false
	}
	for _, area := range strings.Split(c.AssignedArea, ",") {
		area = strings.TrimSpace(area)
		if area != "" && strings.HasPrefix(pincode, area) {
			return true
		}
	}
	return false
}
