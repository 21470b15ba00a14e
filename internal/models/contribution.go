package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ContributionStatus string

const (
	StatusPending  ContributionStatus = "pending"
	StatusApproved ContributionStatus = "approved"
)

type ContributionType string

const (
	ContributionNew    ContributionType = "new"
	ContributionEdit   ContributionType = "edit"
	ContributionDelete ContributionType = "delete"
)

// Contribution holds the moderation columns shared by people, resources and
// apps. Pending submissions and approved entries live in the same table.
type Contribution struct {
	SubmittedBy      string             `gorm:"not null;index" json:"submittedBy"`
	Status           ContributionStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	ContributionType ContributionType   `gorm:"type:varchar(16);not null" json:"contributionType"`
	OriginalID       *uint              `gorm:"index" json:"originalId,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt     `gorm:"index" json:"-"`
}

// Payload is the user-editable part of a directory entry. Each entry type
// reads the subset of fields it stores; empty strings and nil Tags mean
// "not provided".
type Payload struct {
	Name        string   `json:"name,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	URL         string   `json:"url,omitempty"`
	Image       string   `json:"image,omitempty"`
	Category    string   `json:"category,omitempty"`
	Platform    string   `json:"platform,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Entry is a row of one of the directory tables.
type Entry interface {
	TableName() string
	// Target is the reaction target type the entry's rows are voted and
	// signalled under.
	Target() TargetType
	EntryID() uint
	Meta() *Contribution
	Payload() Payload
	// Apply copies the provided fields of p onto the row.
	Apply(p Payload)
	// Columns lists the payload columns that carry a value, keyed by column
	// name. It is the update set used when an edit is merged.
	Columns() map[string]any
	// Missing names the first required field that is empty, if any.
	Missing() string
}

// NewEntry returns an empty row of the directory table behind t.
func NewEntry(t TargetType) (Entry, error) {
	switch t {
	case TargetPerson:
		return &Person{}, nil
	case TargetResource:
		return &Resource{}, nil
	case TargetApp:
		return &App{}, nil
	}
	return nil, fmt.Errorf("%q is not a directory target", t)
}

func encodeTags(tags []string) datatypes.JSON {
	if tags == nil {
		return nil
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func decodeTags(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil
	}
	return tags
}

func putString(cols map[string]any, column, value string) {
	if value != "" {
		cols[column] = value
	}
}

func putTags(cols map[string]any, tags datatypes.JSON) {
	if len(tags) > 0 {
		cols["tags"] = tags
	}
}

func pick(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
