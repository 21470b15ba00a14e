// Package approval decides whether a contribution's votes are enough to
// approve it. Policies are pure: they only look at a vote tally.
package approval

import (
	"fmt"
	"math"

	"github.com/emilythestrangee/community-directory/backend/internal/reaction"
)

const (
	DualThresholdName         = "dual-threshold"
	ThresholdOrPercentageName = "threshold-or-percentage"

	DefaultMinVotes            = 50
	DefaultRatioThreshold      = 3.0
	DefaultThreshold           = 10
	DefaultPercentageThreshold = 70.0
)

// Status is the outcome of evaluating a tally. Concrete statuses carry the
// policy specific diagnostics and are what gets serialized to clients.
type Status interface {
	IsApproved() bool
	// VotesNeeded is the headline "more votes needed" figure; zero once
	// approved.
	VotesNeeded() int
}

type Policy interface {
	Name() string
	Evaluate(t reaction.Tally) Status
}

// DualThreshold approves once there are at least MinVotes votes and upvotes
// outnumber downvotes by at least RatioThreshold to one.
type DualThreshold struct {
	MinVotes       int
	RatioThreshold float64
}

func NewDualThreshold(minVotes int, ratio float64) (DualThreshold, error) {
	if minVotes < 0 {
		return DualThreshold{}, fmt.Errorf("min votes must not be negative, got %d", minVotes)
	}
	if ratio < 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return DualThreshold{}, fmt.Errorf("ratio threshold must be a non-negative number, got %v", ratio)
	}
	return DualThreshold{MinVotes: minVotes, RatioThreshold: ratio}, nil
}

func (DualThreshold) Name() string { return DualThresholdName }

type DualThresholdStatus struct {
	Approved            bool    `json:"approved"`
	Upvotes             int     `json:"upvotes"`
	Downvotes           int     `json:"downvotes"`
	Total               int     `json:"total"`
	MinVotes            int     `json:"minVotes"`
	RatioThreshold      float64 `json:"ratioThreshold"`
	VotesNeededForMin   int     `json:"votesNeededForMin"`
	VotesNeededForRatio int     `json:"votesNeededForRatio"`
	Needed              int     `json:"votesNeeded"`
	MeetsMinVotes       bool    `json:"meetsMinVotes"`
	MeetsRatio          bool    `json:"meetsRatio"`
}

func (s DualThresholdStatus) IsApproved() bool { return s.Approved }
func (s DualThresholdStatus) VotesNeeded() int { return s.Needed }

func (p DualThreshold) Evaluate(t reaction.Tally) Status {
	// upvotes >= ratio*downvotes compared against the ceiling so that
	// fractional ratios behave like the "votes needed" figure says
	requiredUp := int(math.Ceil(p.RatioThreshold * float64(t.Negative)))
	s := DualThresholdStatus{
		Upvotes:             t.Positive,
		Downvotes:           t.Negative,
		Total:               t.Total,
		MinVotes:            p.MinVotes,
		RatioThreshold:      p.RatioThreshold,
		VotesNeededForMin:   max(0, p.MinVotes-t.Total),
		VotesNeededForRatio: max(0, requiredUp-t.Positive),
		MeetsMinVotes:       t.Total >= p.MinVotes,
		MeetsRatio:          t.Positive >= requiredUp,
	}
	s.Needed = max(s.VotesNeededForMin, s.VotesNeededForRatio)
	s.Approved = s.MeetsMinVotes && s.MeetsRatio
	return s
}

// ThresholdOrPercentage approves once upvotes reach Threshold or the share of
// upvotes reaches PercentageThreshold percent.
type ThresholdOrPercentage struct {
	Threshold           int
	PercentageThreshold float64
}

func NewThresholdOrPercentage(threshold int, percentage float64) (ThresholdOrPercentage, error) {
	if threshold < 0 {
		return ThresholdOrPercentage{}, fmt.Errorf("threshold must not be negative, got %d", threshold)
	}
	if !(percentage > 0 && percentage < 100) {
		return ThresholdOrPercentage{}, fmt.Errorf("percentage threshold must be between 0 and 100 exclusive, got %v", percentage)
	}
	return ThresholdOrPercentage{Threshold: threshold, PercentageThreshold: percentage}, nil
}

func (ThresholdOrPercentage) Name() string { return ThresholdOrPercentageName }

type ThresholdStatus struct {
	Approved                 bool    `json:"approved"`
	Upvotes                  int     `json:"upvotes"`
	Downvotes                int     `json:"downvotes"`
	Total                    int     `json:"total"`
	Percentage               float64 `json:"percentage"`
	Threshold                int     `json:"threshold"`
	PercentageThreshold      float64 `json:"percentageThreshold"`
	VotesNeededForThreshold  int     `json:"votesNeededForThreshold"`
	VotesNeededForPercentage int     `json:"votesNeededForPercentage"`
	Needed                   int     `json:"votesNeeded"`
	MeetsThreshold           bool    `json:"meetsThreshold"`
	MeetsPercentage          bool    `json:"meetsPercentage"`
}

func (s ThresholdStatus) IsApproved() bool { return s.Approved }
func (s ThresholdStatus) VotesNeeded() int { return s.Needed }

func (p ThresholdOrPercentage) Evaluate(t reaction.Tally) Status {
	s := ThresholdStatus{
		Upvotes:                 t.Positive,
		Downvotes:               t.Negative,
		Total:                   t.Total,
		Percentage:              t.PercentagePositive,
		Threshold:               p.Threshold,
		PercentageThreshold:     p.PercentageThreshold,
		VotesNeededForThreshold: max(0, p.Threshold-t.Positive),
		MeetsThreshold:          t.Positive >= p.Threshold,
		// an empty tally has no percentage to meet
		MeetsPercentage: t.Total > 0 && t.PercentagePositive >= p.PercentageThreshold,
	}
	s.VotesNeededForPercentage = upvotesToReach(t, p.PercentageThreshold)
	s.Approved = s.MeetsThreshold || s.MeetsPercentage
	if !s.Approved {
		// either bar is enough, so the closer one is what's left
		s.Needed = min(s.VotesNeededForThreshold, s.VotesNeededForPercentage)
	}
	return s
}

// upvotesToReach is the smallest k >= 0 with (up+k)/(total+k) >= pct/100 and
// at least one vote cast.
func upvotesToReach(t reaction.Tally, pct float64) int {
	if t.Total > 0 && t.PercentagePositive >= pct {
		return 0
	}
	k := math.Ceil((pct*float64(t.Total) - 100*float64(t.Positive)) / (100 - pct))
	// guard against float noise putting k one short of the bar
	for k < 1 || float64(t.Positive)+k < pct/100*(float64(t.Total)+k) {
		k++
	}
	return int(k)
}
