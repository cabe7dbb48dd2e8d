package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidStatus = errors.New("invalid lead status")

// LeadStatus is one column of the pipeline.
type LeadStatus string

const (
	StatusEnquiry          LeadStatus = "enquiry"
	StatusProspect         LeadStatus = "prospect"
	StatusEnrollment       LeadStatus = "enrollment"
	StatusTrainingProgress LeadStatus = "training-progress"
	StatusHandsOnProject   LeadStatus = "hands-on-project"
	StatusCertification    LeadStatus = "certification"
	StatusCVBuild          LeadStatus = "cv-build"
	StatusMockInterviews   LeadStatus = "mock-interviews"
	StatusLiveInterviews   LeadStatus = "live-interviews"
	StatusPlacement        LeadStatus = "placement"
	StatusPlacementDue     LeadStatus = "placement-due"
	StatusPlacementPaid    LeadStatus = "placement-paid"
	StatusFinishers        LeadStatus = "finishers"
	StatusOnHold           LeadStatus = "on-hold"
	StatusArchived         LeadStatus = "archived"
)

// pipeline order, archived last
var allStatuses = []LeadStatus{
	StatusEnquiry,
	StatusProspect,
	StatusEnrollment,
	StatusTrainingProgress,
	StatusHandsOnProject,
	StatusCertification,
	StatusCVBuild,
	StatusMockInterviews,
	StatusLiveInterviews,
	StatusPlacement,
	StatusPlacementDue,
	StatusPlacementPaid,
	StatusFinishers,
	StatusOnHold,
	StatusArchived,
}

// AllStatuses returns every status in pipeline order.
func AllStatuses() []LeadStatus {
	out := make([]LeadStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ActiveStatuses returns the board columns: every status except archived.
func ActiveStatuses() []LeadStatus {
	return AllStatuses()[:len(allStatuses)-1]
}

func (s LeadStatus) Valid() bool {
	for _, st := range allStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func (s LeadStatus) String() string { return string(s) }

// ParseLeadStatus accepts "CV Build", "cv_build" and "cv-build" alike.
func ParseLeadStatus(raw string) (LeadStatus, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	for strings.Contains(norm, "--") {
		norm = strings.ReplaceAll(norm, "--", "-")
	}
	s := LeadStatus(norm)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// FeeStatus tracks payment of the course fee.
type FeeStatus string

const (
	FeePending  FeeStatus = "pending"
	FeePartial  FeeStatus = "partial"
	FeePaid     FeeStatus = "paid"
	FeeRefunded FeeStatus = "refunded"
)

func (f FeeStatus) Valid() bool {
	switch f {
	case FeePending, FeePartial, FeePaid, FeeRefunded:
		return true
	}
	return false
}

// BoardColumn is one status column with its leads in display order.
type BoardColumn struct {
	Status LeadStatus `json:"status"`
	Leads  []Lead     `json:"leads"`
}
