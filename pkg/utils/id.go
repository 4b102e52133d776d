package utils

import "github.com/google/uuid"

// GenerateID returns a new random ride or booking id.
func GenerateID() string {
	return uuid.New().String()
}

// IsValidUUID reports whether id parses as a UUID in any accepted form.
func IsValidUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// SameID compares two ids as UUIDs, so case and braces do not matter.
// Postgres returns lowercase while clients may send either.
func SameID(a, b string) bool {
	ua, err := uuid.Parse(a)
	if err != nil {
		return false
	}
	ub, err := uuid.Parse(b)
	if err != nil {
		return false
	}
	return ua == ub
}
