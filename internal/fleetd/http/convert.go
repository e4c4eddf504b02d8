package http

import (
	"time"

	"github.com/google/uuid"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetd/command"
	"github.com/piragazh/feasto-signage/internal/fleetd/content"
	"github.com/piragazh/feasto-signage/internal/fleetd/health"
	"github.com/piragazh/feasto-signage/internal/fleetd/schedule"
	"github.com/piragazh/feasto-signage/internal/fleetd/screen"
	"github.com/piragazh/feasto-signage/internal/fleetd/timeline"
	"github.com/piragazh/feasto-signage/internal/fleetd/wall"
)

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

func screenToAPI(s *screen.Screen, now time.Time) v1alpha1.Screen {
	out := v1alpha1.Screen{
		TypeMeta: v1alpha1.NewTypeMeta("Screen"),
		ObjectMeta: v1alpha1.ObjectMeta{
			ID:        s.ID,
			Name:      s.Name,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
			Version:   s.Version,
		},
		Spec: v1alpha1.ScreenSpec{
			RestaurantID:      s.RestaurantID,
			HeartbeatInterval: s.HeartbeatInterval,
			Wall:              wallConfigToAPI(s.Wall),
			Groups:            s.Groups,
		},
		Status: v1alpha1.ScreenStatus{
			Health:        v1alpha1.HealthStatus(health.Evaluate(s, now)),
			LastHeartbeat: s.LastHeartbeat,
		},
	}
	for _, is := range s.Issues {
		out.Status.Issues = append(out.Status.Issues, v1alpha1.Issue{
			ID:         is.ID,
			Kind:       string(is.Kind),
			Message:    is.Message,
			Severity:   is.Severity,
			Timestamp:  is.Timestamp,
			Resolved:   is.Resolved,
			ResolvedAt: is.ResolvedAt,
		})
	}
	out.Status.PendingCommand = pendingToAPI(s.PendingCommand)
	return out
}

func wallConfigToAPI(w *screen.WallConfig) *v1alpha1.WallConfig {
	if w == nil {
		return nil
	}
	return &v1alpha1.WallConfig{
		Enabled:           w.Enabled,
		WallName:          w.WallName,
		Position:          v1alpha1.Position{Row: w.Position.Row, Col: w.Position.Col},
		GridSize:          v1alpha1.GridSize{Rows: w.GridSize.Rows, Cols: w.GridSize.Cols},
		BezelCompensation: w.BezelCompensation,
		Rotation:          w.Rotation,
	}
}

func wallConfigFromAPI(w *v1alpha1.WallConfig) *screen.WallConfig {
	if w == nil {
		return nil
	}
	return &screen.WallConfig{
		Enabled:           w.Enabled,
		WallName:          w.WallName,
		Position:          screen.Position{Row: w.Position.Row, Col: w.Position.Col},
		GridSize:          screen.GridSize{Rows: w.GridSize.Rows, Cols: w.GridSize.Cols},
		BezelCompensation: w.BezelCompensation,
		Rotation:          w.Rotation,
	}
}

func commandToAPI(e *command.Entry) v1alpha1.Command {
	return v1alpha1.Command{
		TypeMeta:     v1alpha1.NewTypeMeta("Command"),
		ID:           e.ID,
		ScreenID:     e.ScreenID,
		ScreenName:   e.ScreenName,
		RestaurantID: e.RestaurantID,
		Command:      e.Command,
		Params:       e.Params,
		IssuedBy:     e.IssuedBy,
		Status:       string(e.Status),
		IssuedAt:     e.IssuedAt,
		ExecutedAt:   e.ExecutedAt,
		ErrorMessage: e.ErrorMessage,
	}
}

func scheduleToAPI(s schedule.Spec) *v1alpha1.Schedule {
	if !s.Enabled && s.StartDate == nil && s.EndDate == nil && s.Recurring == nil {
		return nil
	}
	out := &v1alpha1.Schedule{
		Enabled:   s.Enabled,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
	}
	if rc := s.Recurring; rc != nil {
		out.Recurring = &v1alpha1.RecurringSchedule{
			Enabled:    rc.Enabled,
			DaysOfWeek: rc.DaysOfWeek,
		}
		for _, tr := range rc.TimeRanges {
			out.Recurring.TimeRanges = append(out.Recurring.TimeRanges, v1alpha1.TimeRange{Start: tr.Start, End: tr.End})
		}
	}
	return out
}

func scheduleFromAPI(s *v1alpha1.Schedule) schedule.Spec {
	if s == nil {
		return schedule.Spec{}
	}
	out := schedule.Spec{
		Enabled:   s.Enabled,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
	}
	if rc := s.Recurring; rc != nil {
		out.Recurring = &schedule.Recurring{
			Enabled:    rc.Enabled,
			DaysOfWeek: rc.DaysOfWeek,
		}
		for _, tr := range rc.TimeRanges {
			out.Recurring.TimeRanges = append(out.Recurring.TimeRanges, schedule.TimeRange{Start: tr.Start, End: tr.End})
		}
	}
	return out
}

func targetToAPI(t content.Target) v1alpha1.ContentTarget {
	return v1alpha1.ContentTarget{Kind: string(t.Kind), WallName: t.WallName, ScreenID: t.ScreenID}
}

func itemToAPI(i *content.Item) v1alpha1.ContentItem {
	return v1alpha1.ContentItem{
		TypeMeta: v1alpha1.NewTypeMeta("ContentItem"),
		ObjectMeta: v1alpha1.ObjectMeta{
			ID:        i.ID,
			Name:      i.Title,
			CreatedAt: i.CreatedAt,
			UpdatedAt: i.UpdatedAt,
			Version:   i.Version,
		},
		Target:       targetToAPI(i.Target),
		Title:        i.Title,
		Description:  i.Description,
		MediaURL:     i.MediaURL,
		MediaType:    string(i.MediaType),
		Duration:     i.Duration,
		Priority:     i.Priority,
		DisplayOrder: i.DisplayOrder,
		Layer:        i.Layer,
		IsActive:     i.IsActive,
		Schedule:     scheduleToAPI(i.Schedule),
		SyncEnabled:  i.SyncEnabled,
	}
}

func itemFromAPI(in *v1alpha1.ContentItem) *content.Item {
	title := in.Title
	if title == "" {
		title = in.Name
	}
	return &content.Item{
		ID: in.ID,
		Target: content.Target{
			Kind:     content.TargetKind(in.Target.Kind),
			WallName: in.Target.WallName,
			ScreenID: in.Target.ScreenID,
		},
		Title:        title,
		Description:  in.Description,
		MediaURL:     in.MediaURL,
		MediaType:    content.MediaType(in.MediaType),
		Duration:     in.Duration,
		Priority:     in.Priority,
		DisplayOrder: in.DisplayOrder,
		Layer:        in.Layer,
		IsActive:     in.IsActive,
		Schedule:     scheduleFromAPI(in.Schedule),
		SyncEnabled:  in.SyncEnabled,
		Version:      in.Version,
	}
}

func playlistToAPI(p *content.Playlist) v1alpha1.Playlist {
	return v1alpha1.Playlist{
		TypeMeta: v1alpha1.NewTypeMeta("Playlist"),
		ObjectMeta: v1alpha1.ObjectMeta{
			ID:        p.ID,
			Name:      p.Name,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
			Version:   p.Version,
		},
		WallName:   p.WallName,
		ContentIDs: p.ContentIDs,
		Loop:       p.Loop,
		Shuffle:    p.Shuffle,
		IsActive:   p.IsActive,
		Schedule:   scheduleToAPI(p.Schedule),
		Priority:   p.Priority,
	}
}

func playlistFromAPI(in *v1alpha1.Playlist) *content.Playlist {
	return &content.Playlist{
		ID:         in.ID,
		WallName:   in.WallName,
		Name:       in.Name,
		ContentIDs: in.ContentIDs,
		Loop:       in.Loop,
		Shuffle:    in.Shuffle,
		IsActive:   in.IsActive,
		Schedule:   scheduleFromAPI(in.Schedule),
		Priority:   in.Priority,
		Version:    in.Version,
	}
}

func summaryToAPI(s health.Summary) v1alpha1.HealthSummary {
	return v1alpha1.HealthSummary{
		TypeMeta:        v1alpha1.NewTypeMeta("HealthSummary"),
		Total:           s.Total,
		Online:          s.Online,
		Warning:         s.Warning,
		Error:           s.Error,
		Offline:         s.Offline,
		PendingErrors:   s.PendingErrors,
		PendingWarnings: s.PendingWarnings,
	}
}

func wallToAPI(w *wall.Wall, now time.Time) v1alpha1.Wall {
	out := v1alpha1.Wall{
		TypeMeta: v1alpha1.NewTypeMeta("Wall"),
		Name:     w.Name,
		GridSize: v1alpha1.GridSize{Rows: w.Grid.Rows, Cols: w.Grid.Cols},
		Cells:    []v1alpha1.WallCell{},
		Complete: w.Complete(),
		Health:   summaryToAPI(w.Health(now)),
	}
	for _, c := range w.Cells() {
		out.Cells = append(out.Cells, v1alpha1.WallCell{
			Position:   v1alpha1.Position{Row: c.Position.Row, Col: c.Position.Col},
			ScreenID:   c.Screen.ID,
			ScreenName: c.Screen.Name,
			Health:     v1alpha1.HealthStatus(health.Evaluate(c.Screen, now)),
		})
	}
	for _, p := range w.Missing() {
		out.Missing = append(out.Missing, v1alpha1.Position{Row: p.Row, Col: p.Col})
	}
	return out
}

func entryToAPI(e timeline.Entry) v1alpha1.TimelineEntry {
	return v1alpha1.TimelineEntry{
		ContentID:   e.ItemID,
		Title:       e.Title,
		MediaURL:    e.MediaURL,
		MediaType:   string(e.MediaType),
		Priority:    e.Priority,
		StartOffset: seconds(e.Start),
		EndOffset:   seconds(e.End),
	}
}

func timelineToAPI(tl *timeline.Timeline) v1alpha1.Timeline {
	out := v1alpha1.Timeline{
		TypeMeta: v1alpha1.NewTypeMeta("Timeline"),
		Target:   tl.Target.String(),
		At:       tl.At,
		Tracks:   []v1alpha1.Track{},
	}
	for _, tr := range tl.Tracks {
		t := v1alpha1.Track{
			Layer:    tr.Layer,
			Loop:     tr.Loop,
			Duration: seconds(tr.Duration),
			Entries:  []v1alpha1.TimelineEntry{},
		}
		for _, e := range tr.Entries {
			t.Entries = append(t.Entries, entryToAPI(e))
		}
		out.Tracks = append(out.Tracks, t)
	}
	if tl.Floor != nil {
		id := tl.Floor.ItemID
		out.Floor = &id
	}
	return out
}

func playbackToAPI(name string, pb timeline.Playback) v1alpha1.NowPlaying {
	out := v1alpha1.NowPlaying{
		TypeMeta:   v1alpha1.NewTypeMeta("NowPlaying"),
		WallName:   name,
		At:         pb.At,
		Idle:       pb.Idle(),
		Finished:   pb.Finished,
		CycleStart: pb.CycleStart,
		Cycle:      pb.Cycle,
		Offset:     seconds(pb.Offset),
		Playing:    []v1alpha1.PlayingEntry{},
	}
	for _, p := range pb.Playing {
		out.Playing = append(out.Playing, v1alpha1.PlayingEntry{
			Layer:  p.Layer,
			Entry:  entryToAPI(p.Entry),
			Offset: seconds(p.Offset),
		})
	}
	return out
}

// parseID reads a uuid path parameter
func parseID(raw, op, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid(op, "invalid "+what+" ID: "+raw)
	}
	return id, nil
}
