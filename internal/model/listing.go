package model

import (
    "fmt"
    "math"
    "strconv"
    "time"
)

// JobType is the listing category enum stored in listings.category.
type JobType string

const (
    FullTime   JobType = "full_time"
    PartTime   JobType = "part_time"
    Contract   JobType = "contract"
    Internship JobType = "internship"
    Remote     JobType = "remote"
)

// JobTypes lists the accepted categories in display order.
var JobTypes = []JobType{FullTime, PartTime, Contract, Internship, Remote}

// Valid reports whether t is one of the known categories.
func (t JobType) Valid() bool {
    for _, v := range JobTypes {
        if v == t {
            return true
        }
    }
    return false
}

// Listing represents a job posting stored in the `listings` table.
// SalaryMin and SalaryMax are nil when the bound is not published.
type Listing struct {
    ID           uint64
    Title        string
    Company      string
    Location     string
    Category     JobType
    SalaryMin    *float64
    SalaryMax    *float64
    Description  string
    Requirements string
    IsActive     bool
    Slug         string
    CreatedAt    time.Time
    UpdatedAt    time.Time
}

// SalaryRange formats the published salary bounds.  A zero bound counts as
// unpublished.
func (l Listing) SalaryRange() string {
    lo, hi := positive(l.SalaryMin), positive(l.SalaryMax)
    switch {
    case lo && hi:
        return "$" + thousands(*l.SalaryMin) + " - $" + thousands(*l.SalaryMax)
    case lo:
        return "From $" + thousands(*l.SalaryMin)
    case hi:
        return "Up to $" + thousands(*l.SalaryMax)
    }
    return "Salary not specified"
}

func positive(v *float64) bool { return v != nil && *v > 0 }

// thousands renders v rounded to whole units with comma separators.
func thousands(v float64) string {
    s := strconv.FormatInt(int64(math.Round(v)), 10)
    neg := false
    if s[0] == '-' {
        neg, s = true, s[1:]
    }
    out := make([]byte, 0, len(s)+len(s)/3)
    for i := range s {
        if i > 0 && (len(s)-i)%3 == 0 {
            out = append(out, ',')
        }
        out = append(out, s[i])
    }
    if neg {
        return "-" + string(out)
    }
    return string(out)
}

// Age thresholds in seconds.  Months and years are fixed 30 and 365 day
// approximations.
const (
    minute = 60
    hour   = 60 * minute
    day    = 24 * hour
    week   = 7 * day
    month  = 30 * day
    year   = 365 * day
)

// PostedAge describes how long ago the listing was created relative to now,
// using the largest unit whose threshold has been crossed.
func (l Listing) PostedAge(now time.Time) string {
    return humanizeAge(now.Sub(l.CreatedAt))
}

func humanizeAge(d time.Duration) string {
    secs := int64(d / time.Second)
    switch {
    case d < 0:
        return "Recently"
    case secs < minute:
        return "Just now"
    case secs < hour:
        return ago(secs/minute, "minute")
    case secs < day:
        return ago(secs/hour, "hour")
    case secs < week:
        return ago(secs/day, "day")
    case secs < month:
        return ago(secs/week, "week")
    case secs < year:
        return ago(secs/month, "month")
    }
    return ago(secs/year, "year")
}

func ago(n int64, unit string) string {
    if n != 1 {
        unit += "s"
    }
    return fmt.Sprintf("%d %s ago", n, unit)
}
