package pgxcasbin

import "errors"

var (
	// ErrRuleTooLong indicates a rule exceeds the v0..v5 columns.
	ErrRuleTooLong = errors.New("pgxcasbin: rule length exceeds field count")
	// ErrEmptyPtype indicates a filtered delete without a policy type.
	ErrEmptyPtype = errors.New("pgxcasbin: ptype is empty")
	// ErrArgsTooLong indicates filter values past the last column.
	ErrArgsTooLong = errors.New("pgxcasbin: args length exceeds field count")
)
