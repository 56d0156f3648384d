// Package queue defines the application events exchanged over RabbitMQ, the
// publisher used by the API and the consumer that keeps the audit trail.
package queue

import "time"

// Event types double as queue names (default exchange, routing key = queue).
const (
    ApplicationSubmitted     = "application.submitted"
    ApplicationStatusChanged = "application.status_changed"
)

// Queues lists every queue the audit consumer drains.
var Queues = []string{ApplicationSubmitted, ApplicationStatusChanged}

// ApplicationEvent is published when an application is created or its
// status changes.  It carries enough context for downstream consumers to
// log or notify without querying the primary database.
type ApplicationEvent struct {
    Type           string    `json:"type"`
    ApplicationID  uint64    `json:"application_id"`
    ListingID      uint64    `json:"listing_id"`
    ListingTitle   string    `json:"listing_title"`
    Company        string    `json:"company"`
    AccountID      uint64    `json:"account_id"`
    Status         string    `json:"status"`
    PreviousStatus string    `json:"previous_status,omitempty"`
    OccurredAt     time.Time `json:"occurred_at"`
}
