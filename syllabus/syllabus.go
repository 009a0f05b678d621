// Package syllabus holds the branch and term catalog subject selections are checked against.
package syllabus

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/boardlens/boardlens/services/resolver"
)

var (
	// ErrUnknownBranch is returned for a branch missing from the catalog.
	ErrUnknownBranch = errors.New("unknown branch")
	// ErrUnknownTerm is returned for a term missing from a branch.
	ErrUnknownTerm = errors.New("unknown term")
	// ErrUnknownSubject is returned for a subject not taught in a branch and term.
	ErrUnknownSubject = errors.New("unknown subject")
)

// Normalize upper-cases and trims a catalog key.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Catalog maps branch to term to subject codes. Keys are normalized.
type Catalog struct {
	entries map[string]map[string][]string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: map[string]map[string][]string{}}
}

// Add appends subjects to a branch and term, skipping ones already present.
func (c *Catalog) Add(branch, term string, subjects ...string) {
	branch, term = Normalize(branch), Normalize(term)
	terms, ok := c.entries[branch]
	if !ok {
		terms = map[string][]string{}
		c.entries[branch] = terms
	}
	terms[term] = lo.Uniq(append(terms[term], lo.Map(subjects, func(s string, _ int) string {
		return Normalize(s)
	})...))
}

// Subjects returns the subjects of a branch and term.
func (c *Catalog) Subjects(branch, term string) ([]string, bool) {
	terms, ok := c.entries[Normalize(branch)]
	if !ok {
		return nil, false
	}
	subjects, ok := terms[Normalize(term)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), subjects...), true
}

// Branches returns the sorted branch names.
func (c *Catalog) Branches() []string {
	branches := lo.Keys(c.entries)
	sort.Strings(branches)
	return branches
}

// Terms returns the sorted terms of a branch.
func (c *Catalog) Terms(branch string) []string {
	terms := lo.Keys(c.entries[Normalize(branch)])
	sort.Strings(terms)
	return terms
}

// Validate checks that sel names a known branch, term and subject.
func (c *Catalog) Validate(sel resolver.SelectionContext) error {
	terms, ok := c.entries[Normalize(sel.Branch)]
	if !ok {
		return errors.Wrapf(ErrUnknownBranch, "%q", sel.Branch)
	}
	subjects, ok := terms[Normalize(sel.Term)]
	if !ok {
		return errors.Wrapf(ErrUnknownTerm, "%q for branch %q", sel.Term, sel.Branch)
	}
	if !lo.Contains(subjects, Normalize(sel.Subject)) {
		return errors.Wrapf(ErrUnknownSubject, "%q in %s %s", sel.Subject, Normalize(sel.Branch), Normalize(sel.Term))
	}
	return nil
}

// Default returns the KTU catalog. The first two terms are common to every branch.
func Default() *Catalog {
	c := NewCatalog()

	s1 := []string{"MAT101", "PHT100", "CYT100", "EST100", "EST110", "HUT101"}
	s2 := []string{"MAT102", "PHT110", "CYT110", "EST102", "HUT102"}
	for _, b := range []string{"CSE", "CE", "ME", "EEE"} {
		c.Add(b, "S1", s1...)
		c.Add(b, "S2", s2...)
	}

	c.Add("CSE", "S3", "MAT203", "CST201", "CST203", "CST205", "EST200", "HUT200", "MCN201")
	c.Add("CSE", "S4", "MAT206", "CST202", "CST204", "CST206", "MCN202", "MCN204", "HUT200")
	c.Add("CSE", "S5", "CST301", "CST303", "CST305", "CST307", "CST309", "MCN301")
	c.Add("CSE", "S6", "CST302", "CST304", "CST306", "CST308", "HUT300")
	c.Add("CSE", "S7", "CST401", "CST403", "CST405", "CST407", "MCN401")
	c.Add("CSE", "S8", "CST402", "CST404", "CST406")

	// EEE follows the ECE course codes.
	c.Add("EEE", "S3", "MAT203", "ECT201", "ECT203", "ECT205", "ECT207", "HUT200", "MCN201")
	c.Add("EEE", "S4", "MAT206", "ECT202", "ECT204", "ECT206", "ECT208", "HUT200", "MCN202")
	c.Add("EEE", "S5", "ECT301", "ECT303", "ECT305", "ECT307", "MCN301")
	c.Add("EEE", "S6", "ECT302", "ECT304", "ECT306", "ECT308", "MCN302")
	c.Add("EEE", "S7", "ECT401", "ECT403", "ECT405", "MCN401")
	c.Add("EEE", "S8", "ECT402", "ECT404")

	c.Add("ME", "S3", "MAT203", "MET201", "MET203", "MET205", "MET207", "HUT200", "MCN201")
	c.Add("ME", "S4", "MAT206", "MET202", "MET204", "MET206", "MET208", "HUT200", "MCN202")
	c.Add("ME", "S5", "MET301", "MET303", "MET305", "MET307", "MCN301")
	c.Add("ME", "S6", "MET302", "MET304", "MET306", "MET308", "MCN302")
	c.Add("ME", "S7", "MET401", "MET403", "MET405", "MCN401")
	c.Add("ME", "S8", "MET402")

	c.Add("CE", "S3", "MAT203", "CET201", "CET203", "CET205", "CET207", "HUT200", "MCN201")
	c.Add("CE", "S4", "MAT206", "CET202", "CET204", "CET206", "CET208", "HUT200", "MCN202")
	c.Add("CE", "S5", "CET301", "CET303", "CET305", "CET307", "CET309", "MCN301")
	c.Add("CE", "S6", "CET302", "CET304", "CET306", "CET308", "MCN302")
	c.Add("CE", "S7", "CET401", "CET403", "CET405", "MCN401")
	c.Add("CE", "S8", "CET402")

	return c
}
