// Package classify groups inventory locations into floor branches.
//
// Rules come from the export configuration as an ordered keyword list.
// Matching is a case-folded substring test against the location name,
// first rule wins. The rule set is deliberately simple; a location
// called "Kitchen Diner" lands wherever "kitchen" lands, and operators
// tune the outcome by reordering rules rather than by writing patterns.
package classify
