// Package attendance turns raw time-clock exports into a per-employee,
// per-day attendance ledger and the late, absence and escalation tables
// derived from it.
package attendance

import "fmt"

// Options configures one pipeline run.
type Options struct {
	Columns   ColumnMapping
	Dedup     DedupPolicy
	Lateness  LatenessRule
	Threshold Threshold
	Highlight HighlightSet
}

func DefaultOptions() Options {
	return Options{
		Columns:   DefaultColumnMapping(),
		Dedup:     DedupFirstSeen,
		Lateness:  DefaultLatenessRule(),
		Threshold: DefaultThreshold(),
	}
}

func (o Options) Validate() error {
	if err := o.Columns.Validate(); err != nil {
		return err
	}
	if err := o.Lateness.Validate(); err != nil {
		return err
	}
	if o.Threshold.Days < 0 {
		return fmt.Errorf("absence threshold must not be negative")
	}
	if _, err := ParseDedupPolicy(string(o.Dedup)); err != nil {
		return err
	}
	return nil
}

// Run executes the whole pipeline over the sheets of one upload. Every
// structure it returns is built for this call only.
func Run(sheets []Sheet, opts Options) (Report, NormalizeStats, error) {
	if err := opts.Validate(); err != nil {
		return Report{}, NormalizeStats{}, err
	}
	records, stats := Normalize(sheets, opts.Columns)
	return Derive(records, opts), stats, nil
}

// Derive runs every step after normalization. Feeding it an already
// deduplicated log gives the same report again.
func Derive(records []Record, opts Options) Report {
	records = Deduplicate(records, opts.Dedup)
	roster := NewRoster(records)
	calendar := BuildCalendar(records)
	late := ClassifyLateness(records, roster, opts.Lateness)
	absences, summaries := DeriveAbsences(records, roster, calendar, late)
	escalations := SelectEscalations(summaries, absences, opts.Threshold)
	return Assemble(calendar, late, absences, summaries, escalations, opts.Threshold, opts.Highlight)
}
