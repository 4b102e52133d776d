package matching

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aditya/go-boleia/internal/region"
)

// Tag names the compatibility class of a driver route against a passenger route.
type Tag string

const (
	TagExactMatch      Tag = "exact_match"
	TagSameSegment     Tag = "same_segment"
	TagEmbarkLater     Tag = "embark_later"
	TagDisembarkLater  Tag = "disembark_later"
	TagSameOrigin      Tag = "same_origin"
	TagSameDestination Tag = "same_destination"
	TagSameDirection   Tag = "same_direction"
	TagNotCompatible   Tag = "not_compatible"

	// TagUnranked marks results returned without scoring, when the query
	// does not name both endpoints.
	TagUnranked Tag = "unranked"
)

// Route is a pair of regions travelled from origin to destination.
type Route struct {
	Origin      region.Region `json:"origin"`
	Destination region.Region `json:"destination"`
}

// direction is +1 northbound, -1 southbound, 0 within one region.
func (r Route) direction() int {
	return sign(r.Destination.Rank() - r.Origin.Rank())
}

// Rule pairs a tag with the score it yields. Rules are evaluated in
// slice order and the first whose predicate holds wins.
type Rule struct {
	Tag    Tag `json:"tag" yaml:"tag"`
	Weight int `json:"weight" yaml:"weight"`
}

// DefaultRules is the precedence table, most specific first.
func DefaultRules() []Rule {
	return []Rule{
		{Tag: TagExactMatch, Weight: 100},
		{Tag: TagSameSegment, Weight: 90},
		{Tag: TagEmbarkLater, Weight: 80},
		{Tag: TagDisembarkLater, Weight: 70},
		{Tag: TagSameOrigin, Weight: 60},
		{Tag: TagSameDestination, Weight: 50},
		{Tag: TagSameDirection, Weight: 40},
	}
}

// frame holds the four ranks oriented along the driver's direction of
// travel: for a southbound driver ranks are mirrored so that "later on the
// route" is always a larger number.
type frame struct {
	driver, passenger Route
	do, dd, po, pd    int
}

func newFrame(driver, passenger Route) frame {
	f := frame{
		driver:    driver,
		passenger: passenger,
		do:        driver.Origin.Rank(),
		dd:        driver.Destination.Rank(),
		po:        passenger.Origin.Rank(),
		pd:        passenger.Destination.Rank(),
	}
	if driver.direction() < 0 {
		mirror := len(region.All) + 1
		f.do, f.dd, f.po, f.pd = mirror-f.do, mirror-f.dd, mirror-f.po, mirror-f.pd
	}
	return f
}

var predicates = map[Tag]func(f frame) bool{
	TagExactMatch: func(f frame) bool {
		return f.driver.Origin == f.passenger.Origin && f.driver.Destination == f.passenger.Destination
	},
	// Passenger direction is not consulted: a passenger heading back
	// toward the driver's origin still rides inside the span.
	TagSameSegment: func(f frame) bool {
		return f.po >= f.do && f.pd <= f.dd
	},
	// Any route satisfying this also satisfies same_segment, so with the
	// default ordering it never fires. Kept so reordered tables behave.
	TagEmbarkLater: func(f frame) bool {
		return f.po > f.do && f.pd <= f.dd
	},
	TagDisembarkLater: func(f frame) bool {
		return f.po >= f.do && f.po <= f.dd && f.pd > f.dd
	},
	// Also shadowed under the default ordering: a shared origin always
	// satisfies same_segment or disembark_later.
	TagSameOrigin: func(f frame) bool {
		return f.driver.Origin == f.passenger.Origin
	},
	TagSameDestination: func(f frame) bool {
		return f.driver.Destination == f.passenger.Destination
	},
	TagSameDirection: func(f frame) bool {
		return f.driver.direction() == f.passenger.direction()
	},
}

// Scorer rates driver routes against passenger routes. It is immutable
// and safe for concurrent use.
type Scorer struct {
	rules []Rule
}

// NewScorer builds a scorer from the default table with the given weight
// overrides applied. Weights must stay positive and strictly decreasing
// in precedence order.
func NewScorer(overrides map[Tag]int) (*Scorer, error) {
	rules := DefaultRules()
	for _, tag := range sortedTags(overrides) {
		w := overrides[tag]
		found := false
		for i := range rules {
			if rules[i].Tag == tag {
				rules[i].Weight = w
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown match tag %q", tag)
		}
	}
	if err := validateRules(rules); err != nil {
		return nil, err
	}
	return &Scorer{rules: rules}, nil
}

// DefaultScorer returns a scorer using DefaultRules.
func DefaultScorer() *Scorer {
	return &Scorer{rules: DefaultRules()}
}

func validateRules(rules []Rule) error {
	for i, r := range rules {
		if r.Weight <= 0 {
			return fmt.Errorf("weight for %s must be positive, got %d", r.Tag, r.Weight)
		}
		if i > 0 && r.Weight >= rules[i-1].Weight {
			return fmt.Errorf("weight for %s (%d) must be lower than %s (%d)",
				r.Tag, r.Weight, rules[i-1].Tag, rules[i-1].Weight)
		}
	}
	return nil
}

// Rules returns a copy of the active precedence table.
func (s *Scorer) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Score returns the weight and tag of the first rule the pair satisfies,
// or (0, not_compatible).
func (s *Scorer) Score(driver, passenger Route) (int, Tag) {
	f := newFrame(driver, passenger)
	for _, r := range s.rules {
		if predicates[r.Tag](f) {
			return r.Weight, r.Tag
		}
	}
	return 0, TagNotCompatible
}

// ParseWeights reads overrides of the form "exact_match=100,same_segment=85".
func ParseWeights(s string) (map[Tag]int, error) {
	out := make(map[Tag]int)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("malformed weight %q", pair)
		}
		w, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("weight for %s: %w", k, err)
		}
		out[Tag(strings.TrimSpace(k))] = w
	}
	return out, nil
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

func sortedTags(m map[Tag]int) []Tag {
	tags := make([]Tag, 0, len(m))
	for t := range m {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
