package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
	"github.com/piragazh/feasto-signage/internal/fleetd/events"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
)

// RecordHeartbeat marks the screen alive at the current time
func (s *Service) RecordHeartbeat(ctx context.Context, id uuid.UUID) (*screen.Screen, error) {
	const op = "ScreenService.RecordHeartbeat"

	sc, err := s.mutate(ctx, op, id, func(sc *screen.Screen, now time.Time) error {
		sc.Heartbeat(now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:      events.ScreenHeartbeat,
		ScreenID:  sc.ID,
		Timestamp: *sc.LastHeartbeat,
	})
	return sc, nil
}

// ReportIssue appends an error or warning reported by the device
func (s *Service) ReportIssue(ctx context.Context, id uuid.UUID, kind screen.IssueKind, message, severity string) (*screen.Issue, error) {
	const op = "ScreenService.ReportIssue"

	var issue screen.Issue
	_, err := s.mutate(ctx, op, id, func(sc *screen.Screen, now time.Time) error {
		var err error
		issue, err = sc.ReportIssue(kind, message, severity, now)
		if err != nil {
			return werrors.NewError(werrors.CodeInvalidInput, err.Error(), op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("screenId", id.String()).
		Str("issueId", issue.ID.String()).
		Str("kind", string(kind)).
		Str("operation", op).
		Msg("issue reported")

	s.publish(ctx, events.Event{
		Type:      events.ScreenIssueReported,
		ScreenID:  id,
		Timestamp: issue.Timestamp,
		Data: map[string]string{
			"issueId": issue.ID.String(),
			"kind":    string(kind),
			"message": issue.Message,
		},
	})
	return &issue, nil
}

// ResolveIssue marks an issue resolved; resolving an already resolved
// issue is a no-op
func (s *Service) ResolveIssue(ctx context.Context, id, issueID uuid.UUID) (*screen.Screen, error) {
	const op = "ScreenService.ResolveIssue"

	resolved := false
	sc, err := s.mutate(ctx, op, id, func(sc *screen.Screen, now time.Time) error {
		changed, err := sc.ResolveIssue(issueID, now)
		if err != nil {
			return werrors.NewError(werrors.CodeNotFound, err.Error(), op, err)
		}
		if !changed {
			return errUnchanged
		}
		resolved = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resolved {
		s.publish(ctx, events.Event{
			Type:      events.ScreenIssueResolved,
			ScreenID:  id,
			Timestamp: s.clock.Now(),
			Data:      map[string]string{"issueId": issueID.String()},
		})
	}
	return sc, nil
}

// ResolveAll resolves every unresolved issue of a kind
func (s *Service) ResolveAll(ctx context.Context, id uuid.UUID, kind screen.IssueKind) (*screen.Screen, error) {
	const op = "ScreenService.ResolveAll"

	if !kind.Valid() {
		return nil, werrors.Validation(op, "kind must be error or warning")
	}

	count := 0
	sc, err := s.mutate(ctx, op, id, func(sc *screen.Screen, now time.Time) error {
		count = sc.ResolveAll(kind, now)
		if count == 0 {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if count > 0 {
		s.publish(ctx, events.Event{
			Type:      events.ScreenIssueResolved,
			ScreenID:  id,
			Timestamp: s.clock.Now(),
			Data:      map[string]string{"kind": string(kind), "count": strconv.Itoa(count)},
		})
	}
	return sc, nil
}

// ClearResolved removes resolved issues from the screen
func (s *Service) ClearResolved(ctx context.Context, id uuid.UUID) (*screen.Screen, error) {
	const op = "ScreenService.ClearResolved"

	return s.mutate(ctx, op, id, func(sc *screen.Screen, now time.Time) error {
		if sc.ClearResolved(now) == 0 {
			return errUnchanged
		}
		return nil
	})
}
