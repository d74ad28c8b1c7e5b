package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ApplicationStatus is the review state of a job application.
type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationReviewed    ApplicationStatus = "reviewed"
	ApplicationShortlisted ApplicationStatus = "shortlisted"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationAccepted    ApplicationStatus = "accepted"
	ApplicationHired       ApplicationStatus = "hired"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationReviewed, ApplicationShortlisted, ApplicationRejected, ApplicationAccepted, ApplicationHired:
		return true
	}
	return false
}

type JobType string

const (
	JobFullTime   JobType = "full-time"
	JobPartTime   JobType = "part-time"
	JobInternship JobType = "internship"
	JobContract   JobType = "contract"
)

// JobApplicant is embedded in Job.Applicants. A user appears at most once.
type JobApplicant struct {
	User        bson.ObjectID     `bson:"user" json:"user"`
	Status      ApplicationStatus `bson:"status" json:"status"`
	CoverLetter string            `bson:"coverLetter,omitempty" json:"coverLetter,omitempty"`
	Resume      string            `bson:"resume,omitempty" json:"resume,omitempty"`
	AppliedAt   time.Time         `bson:"appliedAt" json:"appliedAt"`
	UpdatedAt   time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// Job is a posting owned by an alumni user.
type Job struct {
	ID                  bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title               string         `bson:"title" json:"title"`
	Company             string         `bson:"company" json:"company"`
	Location            string         `bson:"location" json:"location"`
	Type                JobType        `bson:"type" json:"type"`
	Description         string         `bson:"description" json:"description"`
	Requirements        []string       `bson:"requirements,omitempty" json:"requirements,omitempty"`
	Salary              string         `bson:"salary,omitempty" json:"salary,omitempty"`
	ApplicationDeadline *time.Time     `bson:"applicationDeadline,omitempty" json:"applicationDeadline,omitempty"`
	PostedBy            bson.ObjectID  `bson:"postedBy" json:"postedBy"`
	Applicants          []JobApplicant `bson:"applicants" json:"applicants"`
	IsActive            bool           `bson:"isActive" json:"isActive"`
	Version             int64          `bson:"version" json:"version"`
	CreatedAt           time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// Applicant returns the application of userID, if any.
func (j *Job) Applicant(userID bson.ObjectID) (*JobApplicant, bool) {
	for i := range j.Applicants {
		if j.Applicants[i].User == userID {
			return &j.Applicants[i], true
		}
	}
	return nil, false
}

// AcceptsApplications reports whether applications are open at now.
func (j *Job) AcceptsApplications(now time.Time) bool {
	return j.IsActive && (j.ApplicationDeadline == nil || now.Before(*j.ApplicationDeadline))
}

// JobFilter captures list criteria for jobs.
type JobFilter struct {
	Type         JobType
	Location     string
	Search       string
	PostedBy     *bson.ObjectID
	IncludeInactive bool
	Page         PageRequest
}

// ApplicationView flattens one application with its job for listing.
type ApplicationView struct {
	JobID     string            `json:"jobId"`
	JobTitle  string            `json:"jobTitle"`
	Company   string            `json:"company"`
	Applicant bson.ObjectID     `json:"applicant"`
	Status    ApplicationStatus `json:"status"`
	AppliedAt time.Time         `json:"appliedAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}
