package core

import "time"

const (
	KindCreate IntentKind = "create"
	KindUpdate IntentKind = "update"
	KindDelete IntentKind = "delete"
)

type (
	IntentKind string

	// MutationIntent is the tagged union carried between the API process and
	// the apply worker. Fields is set for create and update; delete carries
	// only the identity pair. StampedOn is the mutation timestamp used for the
	// conditional write guard on apply.
	MutationIntent struct {
		Kind      IntentKind
		ExpenseID string
		UserID    string
		Fields    *ExpenseFields
		StampedOn time.Time
	}
)

func (k IntentKind) Validate() error {
	switch k {
	case KindCreate, KindUpdate, KindDelete:
		return nil
	default:
		return ErrInvalidIntentKind
	}
}

// Validate checks structural invariants common to all variants. Field-level
// validation happens at the API boundary before publish; the apply side only
// requires the identity pair to be present.
func (m MutationIntent) Validate() error {
	if err := m.Kind.Validate(); err != nil {
		return err
	}
	if m.ExpenseID == "" {
		return ErrMissingIdentity
	}
	if m.UserID == "" {
		return ErrMissingOwner
	}
	if m.Kind != KindDelete && m.Fields == nil {
		return ErrMissingFields
	}
	return nil
}
