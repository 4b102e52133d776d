package region

import (
	"sort"
	"strings"
	"sync"
)

type phrase struct {
	text   string
	region Region
}

// Classifier resolves free text to a region. Cities are tried first,
// then province names and aliases, then the table default. A phrase
// matches anywhere in the normalized text, so "beiramar" hits "beira".
// Within a tier the longest matching phrase wins. A Classifier is read-only after
// construction and safe for concurrent use.
type Classifier struct {
	version string
	def     Region
	cities  []phrase
	names   []phrase
}

// NewClassifier builds a classifier from a validated table.
func NewClassifier(t *Table) (*Classifier, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	def, _ := Parse(t.Default)

	c := &Classifier{version: t.Version, def: def}
	for _, e := range t.Regions {
		r, _ := Parse(e.Key)
		for _, a := range e.Aliases {
			c.names = append(c.names, phrase{text: normalize(a), region: r})
		}
		for _, city := range e.Cities {
			c.cities = append(c.cities, phrase{text: normalize(city), region: r})
		}
	}
	sortPhrases(c.cities)
	sortPhrases(c.names)
	return c, nil
}

var (
	defaultOnce       sync.Once
	defaultClassifier *Classifier
)

// Default returns the classifier for the embedded table.
func Default() *Classifier {
	defaultOnce.Do(func() {
		t, err := ParseTable(defaultTable)
		if err != nil {
			panic("embedded region table: " + err.Error())
		}
		defaultClassifier, err = NewClassifier(t)
		if err != nil {
			panic("embedded region table: " + err.Error())
		}
	})
	return defaultClassifier
}

// Load returns the embedded classifier when path is empty, otherwise one
// built from the table at path.
func Load(path string) (*Classifier, error) {
	if path == "" {
		return Default(), nil
	}
	t, err := LoadTable(path)
	if err != nil {
		return nil, err
	}
	return NewClassifier(t)
}

// Version identifies the lookup table in use.
func (c *Classifier) Version() string { return c.version }

// DefaultRegion is returned for text nothing in the table matches.
func (c *Classifier) DefaultRegion() Region { return c.def }

// Classify never fails: unmatched or empty text yields the default region.
func (c *Classifier) Classify(text string) Region {
	r, _ := c.Resolve(text)
	return r
}

// Resolve is Classify that also reports whether the table matched.
func (c *Classifier) Resolve(text string) (Region, bool) {
	n := normalize(text)
	if n == "" {
		return c.def, false
	}
	for _, tier := range [][]phrase{c.cities, c.names} {
		for _, p := range tier {
			if strings.Contains(n, p.text) {
				return p.region, true
			}
		}
	}
	return c.def, false
}

func sortPhrases(ps []phrase) {
	sort.SliceStable(ps, func(i, j int) bool {
		if len(ps[i].text) != len(ps[j].text) {
			return len(ps[i].text) > len(ps[j].text)
		}
		return ps[i].text < ps[j].text
	})
}
