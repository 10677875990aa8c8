package artifacts

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseSchedule accepts a standard 5-field cron expression (minute hour
// day-of-month month day-of-week), e.g. "*/30 * * * *".
func ParseSchedule(schedule string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(strings.TrimSpace(schedule))
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return sched, nil
}

// StartSweeper removes expired runs on schedule until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, schedule string) error {
	if s.TTL <= 0 || strings.TrimSpace(schedule) == "" {
		log.Println("artifact sweep disabled")
		return nil
	}
	sched, err := ParseSchedule(schedule)
	if err != nil {
		return err
	}
	log.Printf("artifact sweep scheduled (cron: %s, ttl: %s)", schedule, s.TTL)

	go func() {
		for {
			now := time.Now()
			timer := time.NewTimer(sched.Next(now).Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			removed, err := s.Sweep()
			if err != nil {
				log.Printf("artifact sweep failed: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("artifact sweep removed %d expired runs", removed)
			}
		}
	}()
	return nil
}
