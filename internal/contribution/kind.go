package contribution

import (
	"fmt"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
)

// Domain is a moderated directory: its rows are contributions and, once
// approved, canonical entries.
type Domain string

const (
	People    Domain = "people"
	Resources Domain = "resources"
	Apps      Domain = "apps"
)

var Domains = []Domain{People, Resources, Apps}

func ParseDomain(s string) (Domain, error) {
	for _, d := range Domains {
		if string(d) == s {
			return d, nil
		}
	}
	return "", apperr.Validation("unknown directory %q", s)
}

// DomainOf maps a vote or signal target type back to its directory.
func DomainOf(t models.TargetType) (Domain, bool) {
	switch t {
	case models.TargetPerson:
		return People, true
	case models.TargetResource:
		return Resources, true
	case models.TargetApp:
		return Apps, true
	}
	return "", false
}

func (d Domain) Target() models.TargetType {
	switch d {
	case People:
		return models.TargetPerson
	case Resources:
		return models.TargetResource
	case Apps:
		return models.TargetApp
	}
	return ""
}

func (d Domain) blank() models.Entry {
	e, err := models.NewEntry(d.Target())
	if err != nil {
		panic(fmt.Sprintf("contribution: %v", err))
	}
	return e
}

// Ref points at a canonical entry. The only way to get one is from a
// Canonical, so every edit or delete names an entry that was approved when
// the contribution was made.
type Ref struct {
	domain Domain
	id     uint
}

func (r Ref) Domain() Domain { return r.domain }
func (r Ref) ID() uint { return r.id }

// Canonical is an approved entry that has not been deleted.
type Canonical struct {
	entry models.Entry
}

func canonicalFrom(d Domain, e models.Entry) (Canonical, error) {
	if e.Meta().Status != models.StatusApproved || e.Meta().DeletedAt.Valid {
		return Canonical{}, fmt.Errorf("%s %d is not an approved entry", d, e.EntryID())
	}
	return Canonical{entry: e}, nil
}

func (c Canonical) Entry() models.Entry { return c.entry }

func (c Canonical) Ref() Ref {
	d, _ := DomainOf(c.entry.Target())
	return Ref{domain: d, id: c.entry.EntryID()}
}

// Kind is what a pending contribution asks for: NewEntry, EditOf or
// DeleteOf.
type Kind interface {
	contributionType() models.ContributionType
	original() *uint
}

type NewEntry struct{}

type EditOf struct{ Target Ref }

type DeleteOf struct{ Target Ref }

func (NewEntry) contributionType() models.ContributionType { return models.ContributionNew }
func (EditOf) contributionType() models.ContributionType { return models.ContributionEdit }
func (DeleteOf) contributionType() models.ContributionType { return models.ContributionDelete }

func (NewEntry) original() *uint { return nil }

func (k EditOf) original() *uint {
	id := k.Target.id
	return &id
}

func (k DeleteOf) original() *uint {
	id := k.Target.id
	return &id
}

// Pending is a contribution waiting for votes, together with what approving
// it will do.
type Pending struct {
	Kind  Kind
	entry models.Entry
}

func (p Pending) Entry() models.Entry { return p.entry }

// stamp writes the kind onto the row's moderation columns.
func (p Pending) stamp(submittedBy string) {
	meta := p.entry.Meta()
	meta.SubmittedBy = submittedBy
	meta.Status = models.StatusPending
	meta.ContributionType = p.Kind.contributionType()
	meta.OriginalID = p.Kind.original()
}

// pendingFrom reads the kind back from a stored row.
func pendingFrom(d Domain, e models.Entry) (Pending, error) {
	meta := e.Meta()
	if meta.Status != models.StatusPending || meta.DeletedAt.Valid {
		return Pending{}, apperr.Precondition("contribution already approved")
	}
	switch meta.ContributionType {
	case models.ContributionNew, "":
		return Pending{Kind: NewEntry{}, entry: e}, nil
	case models.ContributionEdit, models.ContributionDelete:
		if meta.OriginalID == nil {
			return Pending{}, fmt.Errorf("%s contribution %d has no original", d, e.EntryID())
		}
		ref := Ref{domain: d, id: *meta.OriginalID}
		if meta.ContributionType == models.ContributionEdit {
			return Pending{Kind: EditOf{Target: ref}, entry: e}, nil
		}
		return Pending{Kind: DeleteOf{Target: ref}, entry: e}, nil
	}
	return Pending{}, fmt.Errorf("%s contribution %d has unknown type %q", d, e.EntryID(), meta.ContributionType)
}
