// Package voterlist projects a fetched voter list for the review screen. Every
// function here is pure and leaves its input untouched.
package voterlist

import (
	"fmt"
	"strings"

	"election-service/internal/models"
)

// StatusFilter selects a status bucket; FilterAll keeps every record.
type StatusFilter string

const (
	FilterAll      StatusFilter = "all"
	FilterPending  StatusFilter = "pending"
	FilterVerified StatusFilter = "verified"
	FilterRejected StatusFilter = "rejected"
)

// ParseStatusFilter accepts all, pending, verified or rejected; empty means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterVerified, FilterRejected:
		return f, nil
	default:
		return "", fmt.Errorf("unknown status filter %q (want all, pending, verified or rejected)", s)
	}
}

func (f StatusFilter) matches(s models.VerificationStatus) bool {
	if f == FilterAll || f == "" {
		return true
	}
	return string(f) == s.Label()
}

// Filter returns the voters in the status bucket whose username or email contains
// search, ignoring case. Source order is preserved; a blank search matches everyone.
func Filter(voters []*models.Voter, status StatusFilter, search string) []*models.Voter {
	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]*models.Voter, 0, len(voters))
	for _, v := range voters {
		if !status.matches(v.Status) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(v.Username), term) &&
			!strings.Contains(strings.ToLower(v.Email), term) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// StatusCounts are the dashboard totals per bucket.
type StatusCounts struct {
	All      int `json:"all"`
	Pending  int `json:"pending"`
	Verified int `json:"verified"`
	Rejected int `json:"rejected"`
}

func Counts(voters []*models.Voter) StatusCounts {
	c := StatusCounts{All: len(voters)}
	for _, v := range voters {
		switch v.Status {
		case models.StatusPending:
			c.Pending++
		case models.StatusVerified:
			c.Verified++
		case models.StatusRejected:
			c.Rejected++
		}
	}
	return c
}
