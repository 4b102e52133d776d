package region

import (
	"encoding/json"
	"testing"
)

func TestRanksAreSouthToNorth(t *testing.T) {
	for i, r := range All {
		if r.Rank() != i+1 {
			t.Errorf("%v rank = %d, want %d", r, r.Rank(), i+1)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Region
		wantErr bool
	}{
		{"maputo", Maputo, false},
		{"cabo_delgado", CaboDelgado, false},
		{"Cabo Delgado", CaboDelgado, false},
		{"Zambézia", Zambezia, false},
		{"lisboa", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("Parse(%q) = (%v, %v), want (%v, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestJSONUsesKey(t *testing.T) {
	b, err := json.Marshal(struct {
		R Region `json:"r"`
	}{CaboDelgado})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"r":"cabo_delgado"}` {
		t.Errorf("Marshal = %s", b)
	}

	if _, err := json.Marshal(Region(42)); err == nil {
		t.Error("expected error marshalling an invalid region")
	}
}

func TestScan(t *testing.T) {
	var r Region
	if err := r.Scan([]byte("niassa")); err != nil || r != Niassa {
		t.Errorf("Scan([]byte) = %v, %v", r, err)
	}
	if err := r.Scan(nil); err == nil {
		t.Error("expected error scanning NULL")
	}
	if err := r.Scan(12); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Xai-Xai":            "xai xai",
		"  Chókwè  ":          "chokwe",
		"Mocímboa  da Praia": "mocimboa da praia",
		"Nacala-a-Velha!":    "nacala a velha",
		"São Tomé":           "sao tome",
		"":                   "",
	}
	for in, want := range tests {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
