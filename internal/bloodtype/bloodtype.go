// Package bloodtype implements the ABO/Rh red-cell compatibility rules
// behind the compatibility lookup view.
package bloodtype

import (
	"errors"
	"strings"
)

// ErrUnknownType indicates a string that is not one of the eight ABO/Rh
// blood types.
var ErrUnknownType = errors.New("bloodtype: unknown blood type")

// Type is one of the eight ABO/Rh blood types.
type Type string

const (
	ONeg  Type = "O-"
	OPos  Type = "O+"
	ANeg  Type = "A-"
	APos  Type = "A+"
	BNeg  Type = "B-"
	BPos  Type = "B+"
	ABNeg Type = "AB-"
	ABPos Type = "AB+"
)

// All lists the types in customary order.
var All = []Type{ONeg, OPos, ANeg, APos, BNeg, BPos, ABNeg, ABPos}

// Parse normalizes a user-entered blood type string.
func Parse(raw string) (Type, error) {
	t := Type(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", "")))
	for _, known := range All {
		if t == known {
			return known, nil
		}
	}
	return "", ErrUnknownType
}

func (t Type) abo() string { return strings.TrimRight(string(t), "+-") }
func (t Type) rhPos() bool { return strings.HasSuffix(string(t), "+") }

// CanDonateTo reports whether red cells of the donor type are compatible
// with the recipient. ABO rule: O donates to anyone, A to A/AB, B to
// B/AB, AB only to AB. Rh rule: negative donates to both, positive only
// to positive.
func CanDonateTo(donor, recipient Type) bool {
	if donor.rhPos() && !recipient.rhPos() {
		return false
	}
	switch donor.abo() {
	case "O":
		return true
	case "A":
		return recipient.abo() == "A" || recipient.abo() == "AB"
	case "B":
		return recipient.abo() == "B" || recipient.abo() == "AB"
	case "AB":
		return recipient.abo() == "AB"
	default:
		return false
	}
}

// RecipientsOf returns every type the given donor can give to.
func RecipientsOf(donor Type) []Type {
	var out []Type
	for _, r := range All {
		if CanDonateTo(donor, r) {
			out = append(out, r)
		}
	}
	return out
}

// DonorsFor returns every type the given recipient can receive from.
func DonorsFor(recipient Type) []Type {
	var out []Type
	for _, d := range All {
		if CanDonateTo(d, recipient) {
			out = append(out, d)
		}
	}
	return out
}
