package utils

import "testing"

func TestSameID(t *testing.T) {
	const id = "3f2b8c1e-7a4d-4e59-9b0a-1c2d3e4f5a6b"

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"Identical", id, id, true},
		{"Upper case", id, "3F2B8C1E-7A4D-4E59-9B0A-1C2D3E4F5A6B", true},
		{"Braced", id, "{" + id + "}", true},
		{"Different", id, GenerateID(), false},
		{"Invalid", "driver-1", "driver-1", false},
		{"Empty", "", id, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameID(tt.a, tt.b); got != tt.want {
				t.Errorf("SameID(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestGenerateIDIsValid(t *testing.T) {
	if id := GenerateID(); !IsValidUUID(id) {
		t.Errorf("GenerateID() = %q is not a UUID", id)
	}
}
