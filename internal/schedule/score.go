package schedule

// Score rates a conflict-resolved schedule between 0.0 and 1.0. It is
// deterministic: the same items, warnings, and config always produce the
// same score. An empty schedule scores exactly 0.
func Score(items []Item, warnings []string, cfg Config) float64 {
	if len(items) == 0 {
		return 0.0
	}

	score := 0.5

	// Activity count close to the configured band.
	switch {
	case len(items) >= cfg.MinActivities && len(items) <= cfg.MaxActivities:
		score += 0.2
	case len(items) >= cfg.MinActivities-2:
		score += 0.1
	}

	// Description richness against the target midpoint.
	total := 0
	for _, it := range items {
		total += len([]rune(it.Description))
	}
	avg := float64(total) / float64(len(items))
	switch {
	case avg >= float64(cfg.TargetDescriptionLen()):
		score += 0.15
	case avg >= float64(cfg.MinDescriptionLen):
		score += 0.08
	}

	// Coverage of the waking day: distinct start hours out of the
	// expected 16 (07:00-23:00).
	hours := make(map[int]bool)
	for _, it := range items {
		if start, ok := it.StartMinutes(); ok {
			hours[start/60] = true
		}
	}
	coverage := float64(len(hours)) / 16
	if coverage > 1 {
		coverage = 1
	}
	score += coverage * 0.15

	// Warning penalty, capped.
	penalty := float64(len(warnings)) * 0.05
	if penalty > 0.3 {
		penalty = 0.3
	}
	score -= penalty

	if score < 0 {
		return 0.0
	}
	if score > 1 {
		return 1.0
	}
	return score
}
