package constants

// ReviewStatus is the canonical status for rows in proposal.
type ReviewStatus string

// Stable values (store these exact strings in DB).
const (
	ReviewPending   ReviewStatus = "PENDING"   // proposed, awaiting a human
	ReviewConfirmed ReviewStatus = "CONFIRMED" // written as domain records
	ReviewRejected  ReviewStatus = "REJECTED"  // discarded by the reviewer
)

// AuditAction values written to audit_event.
const (
	AuditProposed  = "PROPOSED"
	AuditConfirmed = "CONFIRMED"
	AuditRejected  = "REJECTED"
	AuditEdited    = "EDITED"
)
