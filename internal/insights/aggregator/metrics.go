package aggregator

import (
	"sort"
	"strings"

	"briefing-backend/internal/insights/domain"
)

// strategicVsReactive walks messages in chronological order and accumulates
// the gap to the previous message into a strategic or reactive bucket, based
// on the current message's subject. Returns ok=false with fewer than the
// minimum number of dated messages.
func strategicVsReactive(messages []domain.Message, cfg Config) (StrategicVsReactiveValue, bool) {
	dated := datedChronological(messages)
	if len(dated) < cfg.MinMessages {
		return StrategicVsReactiveValue{}, false
	}

	var strategicSeconds, reactiveSeconds float64
	for i := 1; i < len(dated); i++ {
		gap := dated[i].Date.Sub(*dated[i-1].Date).Seconds()
		if gap < 0 {
			gap = 0
		}
		if isStrategic(dated[i].Subject) {
			strategicSeconds += gap
		} else {
			reactiveSeconds += gap
		}
	}

	ratio := 0.0
	if total := strategicSeconds + reactiveSeconds; total > 0 {
		ratio = strategicSeconds / total
	}

	return StrategicVsReactiveValue{
		StrategicSeconds: strategicSeconds,
		ReactiveSeconds:  reactiveSeconds,
		Ratio:            ratio,
		MessageCount:     len(dated),
	}, true
}

// decisionVelocity averages consecutive inter-message gaps within threads,
// excluding gaps outside (0, MaxResponseGapHours] since anything beyond a
// week is not a response. Returns ok=false when no gap qualifies.
func decisionVelocity(messages []domain.Message, cfg Config) (DecisionVelocityValue, bool) {
	threads := map[string][]domain.Message{}
	for _, msg := range messages {
		if msg.ThreadID == "" || msg.Date == nil {
			continue
		}
		threads[msg.ThreadID] = append(threads[msg.ThreadID], msg)
	}

	var totalHours float64
	samples := 0
	for _, thread := range threads {
		if len(thread) < 2 {
			continue
		}
		sort.Slice(thread, func(i, j int) bool {
			return thread[i].Date.Before(*thread[j].Date)
		})
		for i := 1; i < len(thread); i++ {
			gap := thread[i].Date.Sub(*thread[i-1].Date).Hours()
			if gap <= 0 || gap > cfg.MaxResponseGapHours {
				continue
			}
			totalHours += gap
			samples++
		}
	}

	if samples == 0 {
		return DecisionVelocityValue{}, false
	}

	avg := totalHours / float64(samples)
	score := 100 - (avg/24)*cfg.VelocityScalePerDay
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return DecisionVelocityValue{
		AvgResponseHours: avg,
		VelocityScore:    score,
		SampleCount:      samples,
	}, true
}

// relationshipHealth scores how balanced the user's top correspondents are.
// Counterparts with traffic in only one direction are excluded; the top
// counterparts by volume have their min/max balance ratios averaged into a
// 0-100 score. Returns ok=false when no counterpart qualifies.
func relationshipHealth(messages []domain.Message, userEmail string, cfg Config) (RelationshipHealthValue, bool) {
	type tally struct {
		sent     int
		received int
	}
	userEmail = strings.ToLower(userEmail)

	tallies := map[string]*tally{}
	track := func(addr string) *tally {
		if tallies[addr] == nil {
			tallies[addr] = &tally{}
		}
		return tallies[addr]
	}

	for _, msg := range messages {
		from := strings.ToLower(msg.FromEmail)
		to := strings.ToLower(msg.ToEmail)
		if from == "" {
			continue
		}
		if from == userEmail {
			if to != "" && to != userEmail {
				track(to).sent++
			}
		} else {
			track(from).received++
		}
	}

	type scored struct {
		volume  int
		balance float64
	}
	qualifying := []scored{}
	for _, t := range tallies {
		if t.sent == 0 || t.received == 0 {
			continue
		}
		mn, mx := t.sent, t.received
		if mn > mx {
			mn, mx = mx, mn
		}
		qualifying = append(qualifying, scored{
			volume:  t.sent + t.received,
			balance: float64(mn) / float64(mx),
		})
	}
	if len(qualifying) == 0 {
		return RelationshipHealthValue{}, false
	}

	sort.Slice(qualifying, func(i, j int) bool {
		return qualifying[i].volume > qualifying[j].volume
	})
	if len(qualifying) > cfg.TopCounterparts {
		qualifying = qualifying[:cfg.TopCounterparts]
	}

	var sum float64
	for _, q := range qualifying {
		sum += q.balance
	}

	return RelationshipHealthValue{
		HealthScore:      sum / float64(len(qualifying)) * 100,
		CounterpartCount: len(qualifying),
	}, true
}

// isStrategic reports whether a subject carries a strategic keyword
func isStrategic(subject string) bool {
	lower := strings.ToLower(subject)
	for _, kw := range strategicKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// datedChronological filters out undated messages and sorts the rest by date
func datedChronological(messages []domain.Message) []domain.Message {
	dated := make([]domain.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Date != nil {
			dated = append(dated, msg)
		}
	}
	sort.Slice(dated, func(i, j int) bool {
		return dated[i].Date.Before(*dated[j].Date)
	})
	return dated
}
