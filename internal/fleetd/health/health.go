// Package health derives screen status from heartbeat age and unresolved
// issues. Evaluation is pure: the same screen and instant always yield the
// same status.
package health

import (
	"time"

	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

// Status is a derived screen health state
type Status string

const (
	Online  Status = "online"
	Warning Status = "warning"
	Error   Status = "error"
	Offline Status = "offline"
)

// Statuses lists every status in display order
var Statuses = []Status{Online, Warning, Error, Offline}

// Evaluate returns the status of s at now
func Evaluate(s *screen.Screen, now time.Time) Status {
	if s.LastHeartbeat == nil {
		return Offline
	}

	age := now.Sub(*s.LastHeartbeat)
	interval := s.Interval()

	var base Status
	switch {
	case age <= 2*interval:
		base = Online
	case age <= 4*interval:
		base = Warning
	default:
		base = Offline
	}

	if base != Online {
		return base
	}
	if s.UnresolvedCount(screen.IssueError) > 0 {
		return Error
	}
	if s.UnresolvedCount(screen.IssueWarning) > 0 {
		return Warning
	}
	return Online
}

// Summary aggregates statuses over a set of screens
type Summary struct {
	Total           int
	Online          int
	Warning         int
	Error           int
	Offline         int
	PendingErrors   int
	PendingWarnings int
}

// Count returns the number of screens in status st
func (s Summary) Count(st Status) int {
	switch st {
	case Online:
		return s.Online
	case Warning:
		return s.Warning
	case Error:
		return s.Error
	case Offline:
		return s.Offline
	}
	return 0
}

// Summarize evaluates every screen at now. Pending counts are screens with
// at least one unresolved error or warning, whatever their status.
func Summarize(screens []*screen.Screen, now time.Time) Summary {
	var sum Summary
	for _, s := range screens {
		sum.Total++
		switch Evaluate(s, now) {
		case Online:
			sum.Online++
		case Warning:
			sum.Warning++
		case Error:
			sum.Error++
		case Offline:
			sum.Offline++
		}
		if s.UnresolvedCount(screen.IssueError) > 0 {
			sum.PendingErrors++
		}
		if s.UnresolvedCount(screen.IssueWarning) > 0 {
			sum.PendingWarnings++
		}
	}
	return sum
}
