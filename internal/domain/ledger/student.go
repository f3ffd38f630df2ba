package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Student is the read-only view of a student the ledger needs.
// Students are owned and maintained elsewhere.
type Student struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Name           string
	ClassID        *uuid.UUID
	SectionID      *uuid.UUID
	AdmissionDate  *time.Time
	FeeStructureID *uuid.UUID
	Active         bool
}

// ReadyForBilling reports whether the student has everything generation needs
func (s *Student) ReadyForBilling() bool {
	return s.AdmissionDate != nil && s.FeeStructureID != nil
}
