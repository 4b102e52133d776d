package region

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Region is one of Mozambique's ten provinces. The numeric value is the
// province's south-to-north rank, so comparing two regions compares their
// position along the north-south axis.
type Region int

const (
	Maputo Region = iota + 1
	Gaza
	Inhambane
	Sofala
	Manica
	Tete
	Zambezia
	Nampula
	CaboDelgado
	Niassa
)

// All lists every region in rank order.
var All = []Region{Maputo, Gaza, Inhambane, Sofala, Manica, Tete, Zambezia, Nampula, CaboDelgado, Niassa}

var keys = map[Region]string{
	Maputo:      "maputo",
	Gaza:        "gaza",
	Inhambane:   "inhambane",
	Sofala:      "sofala",
	Manica:      "manica",
	Tete:        "tete",
	Zambezia:    "zambezia",
	Nampula:     "nampula",
	CaboDelgado: "cabo_delgado",
	Niassa:      "niassa",
}

var names = map[Region]string{
	Maputo:      "Maputo",
	Gaza:        "Gaza",
	Inhambane:   "Inhambane",
	Sofala:      "Sofala",
	Manica:      "Manica",
	Tete:        "Tete",
	Zambezia:    "Zambézia",
	Nampula:     "Nampula",
	CaboDelgado: "Cabo Delgado",
	Niassa:      "Niassa",
}

// Rank returns the 1-based south-to-north position.
func (r Region) Rank() int { return int(r) }

// Valid reports whether r is one of the ten known regions.
func (r Region) Valid() bool { return r >= Maputo && r <= Niassa }

// Key is the stable identifier used in storage and on the wire.
func (r Region) Key() string {
	if k, ok := keys[r]; ok {
		return k
	}
	return ""
}

func (r Region) String() string {
	if n, ok := names[r]; ok {
		return n
	}
	return fmt.Sprintf("Region(%d)", int(r))
}

// Parse accepts a region key ("cabo_delgado") or display name ("Cabo Delgado").
func Parse(s string) (Region, error) {
	want := strings.ReplaceAll(normalize(s), " ", "_")
	for _, r := range All {
		if keys[r] == want {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown region %q", s)
}

func (r Region) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid region %d", int(r))
	}
	return []byte(r.Key()), nil
}

func (r *Region) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value stores the region by key.
func (r Region) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid region %d", int(r))
	}
	return r.Key(), nil
}

func (r *Region) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	case nil:
		return fmt.Errorf("region: cannot scan NULL")
	default:
		return fmt.Errorf("region: cannot scan %T", src)
	}
}
