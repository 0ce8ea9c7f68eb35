package session

import "strings"

// Role is the closed permission enumeration gating protected views.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleMember Role = "member"
	RoleGuest  Role = "guest"
)

// ParseRole normalizes a role claim string. Unknown or empty values fall
// back to guest so a malformed claim can never widen access.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleStaff:
		return RoleStaff
	case RoleMember:
		return RoleMember
	default:
		return RoleGuest
	}
}

// User is the profile record of the authenticated donor or staff member.
// It is always derived from the backend (token claims or the profile
// endpoint), never stored independently.
type User struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	Role         Role   `json:"role"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	BloodType    string `json:"blood_type,omitempty"`
	DateOfBirth  string `json:"date_of_birth,omitempty"`
	Address      string `json:"address,omitempty"`
	LastDonation string `json:"last_donation,omitempty"`
}
