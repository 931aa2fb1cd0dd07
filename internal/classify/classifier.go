package classify

import (
	"strings"

	"github.com/nerrad567/gray-logic-scribe/internal/inventory"
)

// Rule maps a branch name to the keywords that place a location in it.
// Keywords match as case-folded substrings of the location name.
type Rule struct {
	Branch   string
	Keywords []string
}

// Classifier groups locations into named branches using an ordered rule
// list. The first rule with a matching keyword wins; locations matching
// no rule fall into the fallback branch.
type Classifier struct {
	rules    []Rule
	fallback string
}

// New builds a Classifier. Rule order is significant and preserved.
func New(rules []Rule, fallback string) *Classifier {
	return &Classifier{rules: rules, fallback: fallback}
}

// Branches returns every branch name the classifier can produce, in rule
// order with the fallback last. The fallback is omitted if a rule already
// names it.
func (c *Classifier) Branches() []string {
	out := make([]string, 0, len(c.rules)+1)
	seen := make(map[string]bool, len(c.rules)+1)
	for _, r := range c.rules {
		if !seen[r.Branch] {
			out = append(out, r.Branch)
			seen[r.Branch] = true
		}
	}
	if !seen[c.fallback] {
		out = append(out, c.fallback)
	}
	return out
}

// Classify assigns a single location to a branch.
func (c *Classifier) Classify(loc inventory.Location) string {
	name := strings.ToLower(loc.Name)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
				return r.Branch
			}
		}
	}
	return c.fallback
}

// Group classifies every location and returns the branch map. Every
// branch from Branches appears as a key even when empty, and locations
// within a branch keep their input order.
func (c *Classifier) Group(locations []inventory.Location) map[string][]inventory.Location {
	out := make(map[string][]inventory.Location, len(c.rules)+1)
	for _, b := range c.Branches() {
		out[b] = nil
	}
	for _, loc := range locations {
		b := c.Classify(loc)
		out[b] = append(out[b], loc)
	}
	return out
}
