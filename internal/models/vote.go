package models

import (
	"encoding/json"
	"time"
)

type VoteType string

const (
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
)

func (v VoteType) Valid() bool {
	return v == Upvote || v == Downvote
}

// Vote model - one upvote/downvote per user on a pending contribution.
// TargetType is one of person/resource/app and TargetID the contribution row.
type Vote struct {
	ID         uint       `gorm:"primaryKey"`
	UserID     string     `gorm:"not null;uniqueIndex:idx_vote_user_target,priority:1"`
	TargetType TargetType `gorm:"type:varchar(16);not null;uniqueIndex:idx_vote_user_target,priority:2;index:idx_vote_target,priority:1"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_vote_user_target,priority:3;index:idx_vote_target,priority:2"`
	VoteType   VoteType   `gorm:"type:varchar(16);not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (v *Vote) Polarity() VoteType     { return v.VoteType }
func (v *Vote) SetPolarity(t VoteType) { v.VoteType = t }

func (v *Vote) Bind(userID string, targetType TargetType, targetID uint, t VoteType) {
	v.UserID = userID
	v.TargetType = targetType
	v.TargetID = targetID
	v.VoteType = t
}

// MarshalJSON renders the submission reference the way clients send it:
// exactly one of peopleId, resourceId or appId.
func (v Vote) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"id":        v.ID,
		"userId":    v.UserID,
		"voteType":  v.VoteType,
		"createdAt": v.CreatedAt,
		"updatedAt": v.UpdatedAt,
	}
	switch v.TargetType {
	case TargetPerson:
		out["peopleId"] = v.TargetID
	case TargetResource:
		out["resourceId"] = v.TargetID
	case TargetApp:
		out["appId"] = v.TargetID
	}
	return json.Marshal(out)
}
