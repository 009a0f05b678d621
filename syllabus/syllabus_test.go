package syllabus

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/boardlens/boardlens/services/resolver"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	test.That(t, c.Branches(), test.ShouldResemble, []string{"CE", "CSE", "EEE", "ME"})
	test.That(t, c.Terms("cse"), test.ShouldResemble, []string{"S1", "S2", "S3", "S4", "S5", "S6", "S7", "S8"})
	test.That(t, c.Terms("civil"), test.ShouldBeEmpty)

	subjects, ok := c.Subjects(" me ", "s1")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, subjects, test.ShouldResemble, []string{"MAT101", "PHT100", "CYT100", "EST100", "EST110", "HUT101"})

	subjects, ok = c.Subjects("ME", "S8")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, subjects, test.ShouldResemble, []string{"MET402"})

	_, ok = c.Subjects("CSE", "S9")
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = c.Subjects("ECE", "S1")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestCatalogAdd(t *testing.T) {
	c := NewCatalog()
	c.Add("cse", "s3", "mat203", "CST201")
	c.Add("CSE", "S3", "CST201", " cst203 ")

	subjects, ok := c.Subjects("CSE", "S3")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, subjects, test.ShouldResemble, []string{"MAT203", "CST201", "CST203"})

	// returned slices are copies
	subjects[0] = "changed"
	again, _ := c.Subjects("CSE", "S3")
	test.That(t, again[0], test.ShouldEqual, "MAT203")
}

func TestValidate(t *testing.T) {
	c := Default()
	test.That(t, c.Validate(resolver.SelectionContext{Subject: "cst201", Branch: "cse", Term: "s3"}), test.ShouldBeNil)

	err := c.Validate(resolver.SelectionContext{Subject: "CST201", Branch: "ECE", Term: "S3"})
	test.That(t, errors.Is(err, ErrUnknownBranch), test.ShouldBeTrue)

	err = c.Validate(resolver.SelectionContext{Subject: "CST201", Branch: "CSE", Term: "S10"})
	test.That(t, errors.Is(err, ErrUnknownTerm), test.ShouldBeTrue)

	err = c.Validate(resolver.SelectionContext{Subject: "MET201", Branch: "CSE", Term: "S3"})
	test.That(t, errors.Is(err, ErrUnknownSubject), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "CSE S3")
}
