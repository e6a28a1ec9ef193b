package schedule

import (
	"log"
	"math"
	"sort"

	"github.com/chris/plana/internal/timewin"
)

// Unscheduled items sort past every real slot and never conflict.
const unscheduledSentinel = 9999

type span struct {
	start int
	end   int
	item  Item
}

func (s *span) duration() int {
	return s.end - s.start
}

func (s *span) scheduled() bool {
	return s.start != unscheduledSentinel
}

// Resolve removes time overlaps between items. Items are processed in
// ascending start order against the already-accepted set; on overlap the
// item with the lower priority score loses. An overlap under half the
// loser's duration truncates the loser's end to the winner's start and
// rewrites its duration_hours; a larger overlap, or a truncation that
// would leave nothing, rejects the loser outright. Ties go to the
// already-accepted item, which by processing order means the earlier
// start wins.
func Resolve(items []Item) []Item {
	if len(items) == 0 {
		return items
	}

	spans := make([]*span, 0, len(items))
	for _, it := range items {
		if it.TimeSlot == "" {
			spans = append(spans, &span{start: unscheduledSentinel, end: unscheduledSentinel, item: it})
			continue
		}
		start, ok := it.StartMinutes()
		if !ok {
			log.Printf("schedule: cannot parse time slot %q for %q, dropping", it.TimeSlot, it.Name)
			continue
		}
		end, _ := it.EndMinutes()
		spans = append(spans, &span{start: start, end: end, item: it})
	}

	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})

	var accepted []*span
	adjusted, removed := 0, 0

	for _, cur := range spans {
		if !cur.scheduled() {
			accepted = append(accepted, cur)
			continue
		}

		rejected := false
		for i := 0; i < len(accepted); i++ {
			kept := accepted[i]
			if !kept.scheduled() {
				continue
			}
			if !(kept.end > cur.start && kept.start < cur.end) {
				continue
			}
			overlap := min(kept.end, cur.end) - max(kept.start, cur.start)

			if priorityScore(&cur.item) > priorityScore(&kept.item) {
				// The incoming item wins; repair or drop the accepted one.
				if float64(overlap) < float64(kept.duration())*0.5 && cur.start > kept.start {
					truncate(kept, cur.start)
					log.Printf("schedule: shortened %q to %s to fit %q",
						kept.item.Name, timewin.ToClock(kept.end), cur.item.Name)
					adjusted++
				} else {
					log.Printf("schedule: %q overlaps %q by %d minutes, removing %q",
						cur.item.Name, kept.item.Name, overlap, kept.item.Name)
					accepted = append(accepted[:i], accepted[i+1:]...)
					i--
					removed++
				}
			} else {
				// The accepted item wins (ties included).
				if float64(overlap) < float64(cur.duration())*0.5 && kept.start > cur.start {
					truncate(cur, kept.start)
					log.Printf("schedule: shortened %q to %s to fit %q",
						cur.item.Name, timewin.ToClock(cur.end), kept.item.Name)
					adjusted++
				} else {
					log.Printf("schedule: %q overlaps %q by %d minutes, skipping %q",
						cur.item.Name, kept.item.Name, overlap, cur.item.Name)
					rejected = true
					removed++
					break
				}
			}
		}
		if !rejected {
			accepted = append(accepted, cur)
		}
	}

	if adjusted > 0 || removed > 0 {
		log.Printf("schedule: conflict resolution adjusted %d and removed %d item(s)", adjusted, removed)
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].start < accepted[j].start
	})
	result := make([]Item, len(accepted))
	for i, s := range accepted {
		result[i] = s.item
	}
	return result
}

func truncate(s *span, newEnd int) {
	s.end = newEnd
	s.item.DurationHours = math.Round(float64(s.duration())/60*100) / 100
}

// priorityScore ranks an item for conflict arbitration: the priority
// weight plus a bonus for detailed descriptions.
func priorityScore(it *Item) int {
	score := 1
	switch it.Priority {
	case "high":
		score = 3
	case "medium":
		score = 2
	}
	descLen := len([]rune(it.Description))
	if descLen > 80 {
		score += 2
	} else if descLen > 50 {
		score += 1
	}
	return score
}
