package model

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrInvalidAddress = errors.New("model: invalid address format")
	ErrInvalidDenom   = errors.New("model: invalid denom format")
)

// addressRegex matches bech32-style account identifiers: a lowercase
// human-readable prefix, the "1" separator, and a lowercase alphanumeric
// data part of at least 6 characters.
var addressRegex = regexp.MustCompile(`^[a-z]{2,16}1[0-9a-z]{6,80}$`)

// denomRegex matches native denomination identifiers, e.g. "uom".
var denomRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9/:._-]{2,127}$`)

// ValidateAddress checks that s looks like a bech32 account identifier.
// Checksum verification is left to the host; the engine only rejects
// obviously malformed identities before they reach a ledger row.
func ValidateAddress(s string) error {
	if !addressRegex.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return nil
}

// ValidateDenom checks that s is a well-formed denomination identifier.
func ValidateDenom(s string) error {
	if !denomRegex.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidDenom, s)
	}
	return nil
}
