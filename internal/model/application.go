package model

import (
    "strings"
    "time"
)

// ApplicationStatus is the review state of an application.  Any status may
// follow any other.
type ApplicationStatus string

const (
    StatusPending  ApplicationStatus = "pending"
    StatusReviewed ApplicationStatus = "reviewed"
    StatusAccepted ApplicationStatus = "accepted"
    StatusRejected ApplicationStatus = "rejected"
)

// ParseStatus normalises s.  "shortlisted" is accepted as another name for
// accepted.
func ParseStatus(s string) (ApplicationStatus, bool) {
    switch ApplicationStatus(strings.ToLower(strings.TrimSpace(s))) {
    case StatusPending:
        return StatusPending, true
    case StatusReviewed:
        return StatusReviewed, true
    case StatusAccepted, "shortlisted":
        return StatusAccepted, true
    case StatusRejected:
        return StatusRejected, true
    }
    return "", false
}

// Application binds one account to one listing.  DocumentID is the object
// store handle of the uploaded resume; DocumentURL is the URL the store
// returned at upload time.
type Application struct {
    ID                uint64
    ListingID         uint64
    AccountID         uint64
    DocumentID        string
    DocumentURL       string
    CoverLetter       string
    YearsOfExperience int
    LinkedInURL       string
    PortfolioURL      string
    Status            ApplicationStatus
    AppliedAt         time.Time
    UpdatedAt         time.Time

    // Joined for list views; zero when not loaded.
    ListingTitle   string
    ListingCompany string
    ListingSlug    string
    ApplicantEmail string
    ApplicantName  string
}
