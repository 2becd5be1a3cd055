package insights

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/helper"
)

// HistoryView selects the bucket granularity for workload history
type HistoryView string

const (
	Weekly  HistoryView = "weekly"
	Monthly HistoryView = "monthly"
	Yearly  HistoryView = "yearly"
)

// ParseHistoryView validates a view name.
func ParseHistoryView(s string) (HistoryView, error) {
	switch v := HistoryView(s); v {
	case Weekly, Monthly, Yearly:
		return v, nil
	}
	return "", fmt.Errorf("unknown workload view %q (want weekly, monthly or yearly)", s)
}

// Period is one fixed, inclusive time interval
type Period struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside [Start, End].
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Periods returns the buckets for view ending at today, oldest first:
// 7 days, 12 calendar months or 5 calendar years. Each bucket ends at
// 23:59:59 of its last day in today's location.
func Periods(view HistoryView, today time.Time) []Period {
	loc := today.Location()
	y, m, d := today.Date()

	switch view {
	case Monthly:
		periods := make([]Period, 12)
		for i := range periods {
			start := time.Date(y, m-time.Month(11-i), 1, 0, 0, 0, 0, loc)
			periods[i] = Period{
				Key:   start.Format("2006-01"),
				Label: start.Format("Jan"),
				Start: start,
				End:   time.Date(start.Year(), start.Month()+1, 0, 23, 59, 59, 0, loc),
			}
		}
		return periods
	case Yearly:
		periods := make([]Period, 5)
		for i := range periods {
			year := y - (4 - i)
			periods[i] = Period{
				Key:   strconv.Itoa(year),
				Label: strconv.Itoa(year),
				Start: time.Date(year, time.January, 1, 0, 0, 0, 0, loc),
				End:   time.Date(year, time.December, 31, 23, 59, 59, 0, loc),
			}
		}
		return periods
	}

	periods := make([]Period, 7)
	for i := range periods {
		day := time.Date(y, m, d-(6-i), 0, 0, 0, 0, loc)
		periods[i] = Period{
			Key:   helper.FormatDate(day),
			Label: day.Format("Mon"),
			Start: day,
			End:   helper.DayEnd(day),
		}
	}
	return periods
}

// Bucket is a period with pulse counts per workload level
type Bucket struct {
	Period     Period `json:"period"`
	Light      int    `json:"light"`
	Manageable int    `json:"manageable"`
	Overloaded int    `json:"overloaded"`
}

// Total is the number of pulses in the bucket.
func (b Bucket) Total() int {
	return b.Light + b.Manageable + b.Overloaded
}

// Count returns the count for a single level.
func (b Bucket) Count(level domain.WorkloadLevel) int {
	switch level {
	case domain.WorkloadLight:
		return b.Light
	case domain.WorkloadManageable:
		return b.Manageable
	case domain.WorkloadOverloaded:
		return b.Overloaded
	}
	return 0
}

// History counts pulses per level in each period of view. Buckets never
// overlap, so a pulse lands in at most one bucket; pulses outside the
// window or with unparseable dates are not counted.
func History(pulses []domain.WorkloadPulse, view HistoryView, today time.Time) []Bucket {
	periods := Periods(view, today)
	buckets := make([]Bucket, len(periods))
	for i, p := range periods {
		buckets[i].Period = p
	}

	for _, pulse := range pulses {
		day, ok := helper.ParseDate(pulse.Date, today.Location())
		if !ok {
			continue
		}
		for i := range buckets {
			if !buckets[i].Period.Contains(day) {
				continue
			}
			switch pulse.Level {
			case domain.WorkloadLight:
				buckets[i].Light++
			case domain.WorkloadManageable:
				buckets[i].Manageable++
			case domain.WorkloadOverloaded:
				buckets[i].Overloaded++
			}
			break
		}
	}
	return buckets
}

// PeakOverloaded returns the bucket with the strictly greatest overloaded
// count. Ties keep the oldest bucket. The bool is false when no bucket has
// any overloaded pulse.
func PeakOverloaded(buckets []Bucket) (Bucket, bool) {
	var peak Bucket
	found := false
	for _, b := range buckets {
		if b.Overloaded > peak.Overloaded {
			peak = b
			found = true
		}
	}
	return peak, found
}

// MaxTotal is the largest bucket total, at least 1, for proportional bars.
func MaxTotal(buckets []Bucket) int {
	max := 1
	for _, b := range buckets {
		if t := b.Total(); t > max {
			max = t
		}
	}
	return max
}
