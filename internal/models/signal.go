package models

import "time"

type TargetType string

const (
	TargetProject  TargetType = "project"
	TargetIdea     TargetType = "idea"
	TargetPerson   TargetType = "person"
	TargetResource TargetType = "resource"
	TargetApp      TargetType = "app"
)

// Signal model - a like (IsLike=true) or dislike on any piece of content.
// A user holds at most one signal per target.
type Signal struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     string     `gorm:"not null;uniqueIndex:idx_signal_user_target,priority:1" json:"userId"`
	TargetType TargetType `gorm:"type:varchar(16);not null;uniqueIndex:idx_signal_user_target,priority:2;index:idx_signal_target,priority:1" json:"targetType"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_signal_user_target,priority:3;index:idx_signal_target,priority:2" json:"targetId"`
	IsLike     bool       `gorm:"not null" json:"isLike"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (s *Signal) Polarity() bool     { return s.IsLike }
func (s *Signal) SetPolarity(v bool) { s.IsLike = v }

func (s *Signal) Bind(userID string, targetType TargetType, targetID uint, isLike bool) {
	s.UserID = userID
	s.TargetType = targetType
	s.TargetID = targetID
	s.IsLike = isLike
}
