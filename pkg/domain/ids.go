// Package domain holds the typed identifiers and shared value types that
// cross package boundaries. Keeping them UUID-backed but distinct prevents a
// case ID from being handed to an officer lookup by accident.
package domain

import "github.com/google/uuid"

// CaseID identifies one complaint/case record.
type CaseID uuid.UUID

func NewCaseID() CaseID { return CaseID(uuid.New()) }

func ParseCaseID(s string) (CaseID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CaseID{}, err
	}
	return CaseID(u), nil
}

func (id CaseID) String() string { return uuid.UUID(id).String() }
func (id CaseID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id CaseID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *CaseID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = CaseID(u)
	return nil
}

// OfficerID identifies an officer in the roster directory.
type OfficerID uuid.UUID

func NewOfficerID() OfficerID { return OfficerID(uuid.New()) }

func ParseOfficerID(s string) (OfficerID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return OfficerID{}, err
	}
	return OfficerID(u), nil
}

func (id OfficerID) String() string { return uuid.UUID(id).String() }
func (id OfficerID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id OfficerID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *OfficerID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = OfficerID(u)
	return nil
}

// PrincipalID identifies an authenticated caller. For officers it equals
// their OfficerID; the credential system issues one identity per person.
type PrincipalID uuid.UUID

func NewPrincipalID() PrincipalID { return PrincipalID(uuid.New()) }

func ParsePrincipalID(s string) (PrincipalID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return PrincipalID{}, err
	}
	return PrincipalID(u), nil
}

func (id PrincipalID) String() string { return uuid.UUID(id).String() }
func (id PrincipalID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Officer converts a principal identity to the officer identity it denotes.
func (id PrincipalID) Officer() OfficerID { return OfficerID(id) }

func (id PrincipalID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *PrincipalID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = PrincipalID(u)
	return nil
}

// Principal converts an officer identity back to the principal identity
// behind it.
func (id OfficerID) Principal() PrincipalID { return PrincipalID(id) }
