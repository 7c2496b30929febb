package importer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"

	"lottery-insight-server/storage"
)

// Scheduler re-imports every registered source on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	importer *Importer
	sources  storage.History
}

// NewScheduler parses schedule (five-field cron or a descriptor like "@daily").
// An empty schedule returns (nil, nil): scheduling is disabled.
func NewScheduler(schedule string, im *Importer, sources storage.History) (*Scheduler, error) {
	if strings.TrimSpace(schedule) == "" {
		return nil, nil
	}
	s := &Scheduler{cron: cron.New(), importer: im, sources: sources}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, err
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	s.cron.Start()
	slog.Info("import schedule started", "tag", "scheduler", "entries", len(s.cron.Entries()))
}

// Stop halts the schedule and waits for a running import to finish.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunOnce re-imports every registered source and returns how many
// succeeded. Failures are logged and do not stop the remaining sources.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	srcs, err := s.sources.ListSources(ctx)
	if err != nil {
		slog.Error("list sources failed", "tag", "scheduler", "err", err)
		return 0
	}
	ok := 0
	for _, src := range srcs {
		mode := ModeCSV
		if src.SourceType == "official_json" {
			mode = ModeJSON
		}
		res, err := s.importer.Import(ctx, Request{GameID: src.GameID, Mode: mode, SourceURL: src.SourceURL, Source: "scheduled_import"})
		if err != nil {
			slog.Warn("scheduled import failed", "tag", "scheduler", "game_id", src.GameID, "url", src.SourceURL, "err", err)
			continue
		}
		ok++
		slog.Debug("scheduled import", "tag", "scheduler", "game_id", src.GameID, "imported", res.Imported)
	}
	return ok
}
