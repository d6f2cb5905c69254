package training

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Analyzer computes aggregate views over a session list. It is pure: no
// I/O, deterministic for a given list and clock. Streaks and recent
// activity windows depend on "today", so the clock is injectable for tests.
type Analyzer struct {
	NowFunc func() time.Time
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		NowFunc: time.Now,
	}
}

func (a *Analyzer) today() time.Time {
	now := a.NowFunc()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// ComprehensiveStats builds the full summary. An empty list yields the
// zero-valued structure, never an error.
func (a *Analyzer) ComprehensiveStats(sessions []Session) *ComprehensiveStats {
	if len(sessions) == 0 {
		return emptyStats()
	}

	totalSessions := len(sessions)
	var totalTime, totalCalories int
	for _, s := range sessions {
		totalTime += s.Tiempo
		totalCalories += s.Calorias
	}

	mostFrequentType, mostFrequentCount := mostCommonType(sessions)

	return &ComprehensiveStats{
		TotalSessions:         totalSessions,
		TotalTime:             totalTime,
		TotalTimeHours:        round1(float64(totalTime) / 60),
		TotalCalories:         totalCalories,
		AvgSessionTime:        round1(float64(totalTime) / float64(totalSessions)),
		AvgCaloriesPerSession: roundInt(float64(totalCalories) / float64(totalSessions)),
		MostFrequentType:      mostFrequentType,
		MostFrequentCount:     mostFrequentCount,
		ByType:                a.StatsByType(sessions),
		RecentActivity:        a.RecentActivity(sessions),
		WeeklyAverage:         a.WeeklyAverage(sessions),
		MonthlyTotals:         a.MonthlyStats(sessions),
		CurrentStreak:         a.CurrentStreak(sessions),
		LongestStreak:         a.LongestStreak(sessions),
		IntensityDistribution: a.IntensityDistribution(sessions),
	}
}

// StatsByType aggregates per training type, sorted descending by session
// count; ties keep encounter order.
func (a *Analyzer) StatsByType(sessions []Session) []TypeStats {
	if len(sessions) == 0 {
		return []TypeStats{}
	}

	index := map[string]int{}
	result := []TypeStats{}
	for _, s := range sessions {
		i, seen := index[s.Tipo]
		if !seen {
			i = len(result)
			index[s.Tipo] = i
			result = append(result, TypeStats{Tipo: s.Tipo})
		}
		result[i].Sessions++
		result[i].TotalTime += s.Tiempo
		result[i].TotalCalories += s.Calorias
	}

	total := float64(len(sessions))
	for i := range result {
		count := float64(result[i].Sessions)
		result[i].AvgTime = round1(float64(result[i].TotalTime) / count)
		result[i].AvgCalories = roundInt(float64(result[i].TotalCalories) / count)
		result[i].Percentage = round1(count / total * 100)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Sessions > result[j].Sessions
	})
	return result
}

// MonthlyStats groups sessions by calendar month, most recent month first.
// Sessions with unparseable dates are skipped.
func (a *Analyzer) MonthlyStats(sessions []Session) []MonthStats {
	if len(sessions) == 0 {
		return []MonthStats{}
	}

	type monthAgg struct {
		stats MonthStats
		types []Session
	}

	index := map[string]int{}
	months := []monthAgg{}
	for _, s := range sessions {
		date, ok := s.Date()
		if !ok {
			continue
		}
		key := fmt.Sprintf("%d-%02d", date.Year(), int(date.Month()))
		i, seen := index[key]
		if !seen {
			i = len(months)
			index[key] = i
			months = append(months, monthAgg{
				stats: MonthStats{
					Month:       key,
					MonthName:   fmt.Sprintf("%s %d", date.Month().String(), date.Year()),
					Year:        date.Year(),
					MonthNumber: int(date.Month()),
				},
			})
		}
		months[i].stats.Sessions++
		months[i].stats.TotalTime += s.Tiempo
		months[i].stats.TotalCalories += s.Calorias
		months[i].types = append(months[i].types, s)
	}

	result := make([]MonthStats, 0, len(months))
	for _, m := range months {
		if m.stats.Sessions > 0 {
			m.stats.AvgSessionTime = round1(float64(m.stats.TotalTime) / float64(m.stats.Sessions))
			// fixed 30-day month approximation
			m.stats.SessionsPerWeek = round1(float64(m.stats.Sessions) / 30 * 7)
		}
		m.stats.MostCommonType, _ = mostCommonType(m.types)
		result = append(result, m.stats)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Month > result[j].Month
	})
	return result
}

// RecentActivity reports the trailing 7 and 30 calendar day windows.
// A session with date D is in a window of length N iff D >= today-N days.
func (a *Analyzer) RecentActivity(sessions []Session) RecentActivity {
	return RecentActivity{
		Last7Days:  a.activityWindow(sessions, 7),
		Last30Days: a.activityWindow(sessions, 30),
	}
}

func (a *Analyzer) activityWindow(sessions []Session, days int) ActivityWindow {
	cutoff := a.today().AddDate(0, 0, -days)

	var w ActivityWindow
	for _, s := range sessions {
		date, ok := s.Date()
		if !ok || date.Before(cutoff) {
			continue
		}
		w.Sessions++
		w.TotalTime += s.Tiempo
		w.TotalCalories += s.Calorias
	}
	w.AvgPerDay = round1(float64(w.Sessions) / float64(days))
	return w
}

// WeeklyAverage spans [min(fecha), max(fecha)], at least one week.
func (a *Analyzer) WeeklyAverage(sessions []Session) WeeklyAverage {
	dates := validDates(sessions)
	if len(dates) == 0 {
		return WeeklyAverage{}
	}

	minDate, maxDate := dates[0], dates[len(dates)-1]
	totalDays := int(maxDate.Sub(minDate).Hours()/24) + 1
	weeks := math.Max(float64(totalDays)/7, 1)

	var totalTime, totalCalories int
	for _, s := range sessions {
		totalTime += s.Tiempo
		totalCalories += s.Calorias
	}

	return WeeklyAverage{
		Sessions:      round1(float64(len(sessions)) / weeks),
		Time:          round1(float64(totalTime) / weeks),
		Calories:      roundInt(float64(totalCalories) / weeks),
		WeeksAnalyzed: round1(weeks),
	}
}

// CurrentStreak counts consecutive training days backward from the most
// recent session date, but only when that date is today or yesterday.
// A stale streak reports 0, no matter how long it was.
func (a *Analyzer) CurrentStreak(sessions []Session) int {
	dates := validDates(sessions)
	if len(dates) == 0 {
		return 0
	}

	latest := dates[len(dates)-1]
	today := a.today()
	yesterday := today.AddDate(0, 0, -1)
	if !latest.Equal(today) && !latest.Equal(yesterday) {
		return 0
	}

	streak := 0
	expected := latest
	for i := len(dates) - 1; i >= 0; i-- {
		if !dates[i].Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}

// LongestStreak finds the longest run of calendar-consecutive training
// days anywhere in history; minimum 1 if any dated session exists.
func (a *Analyzer) LongestStreak(sessions []Session) int {
	dates := validDates(sessions)
	if len(dates) == 0 {
		return 0
	}

	maxStreak, streak := 1, 1
	for i := 1; i < len(dates); i++ {
		if dates[i].Equal(dates[i-1].AddDate(0, 0, 1)) {
			streak++
			if streak > maxStreak {
				maxStreak = streak
			}
		} else {
			streak = 1
		}
	}
	return maxStreak
}

// IntensityDistribution buckets sessions into the three fixed intensities.
// Sessions with any other label are left out of the buckets and out of the
// percentage denominators of this view.
func (a *Analyzer) IntensityDistribution(sessions []Session) map[string]IntensityStats {
	counts := map[string]int{}
	times := map[string]int{}
	calories := map[string]int{}

	for _, s := range sessions {
		intensity := s.Intensidad
		if intensity == "" {
			intensity = IntensityMedium
		}
		counts[intensity]++
		times[intensity] += s.Tiempo
		calories[intensity] += s.Calorias
	}

	var totalSessions, totalTime int
	for _, intensity := range Intensities {
		totalSessions += counts[intensity]
		totalTime += times[intensity]
	}

	result := make(map[string]IntensityStats, len(Intensities))
	for _, intensity := range Intensities {
		count := counts[intensity]
		stats := IntensityStats{
			Count:         count,
			TotalTime:     times[intensity],
			TotalCalories: calories[intensity],
		}
		if totalSessions > 0 {
			stats.Percentage = round1(float64(count) / float64(totalSessions) * 100)
		}
		if totalTime > 0 {
			stats.TimePercentage = round1(float64(stats.TotalTime) / float64(totalTime) * 100)
		}
		if count > 0 {
			stats.AvgTime = round1(float64(stats.TotalTime) / float64(count))
		}
		result[intensity] = stats
	}
	return result
}

// PerformanceTrends compares the mean session duration of the earlier and
// later half of the sessions within the trailing days window. The
// qualifying sessions are ordered ascending by date before splitting, so
// "improving" always means later sessions got longer.
func (a *Analyzer) PerformanceTrends(sessions []Session, days int) *TrendStats {
	// no data at all reads as stable, not as too-little-data
	if len(sessions) == 0 {
		return &TrendStats{Trend: TrendStable}
	}

	if days <= 0 {
		days = 30
	}
	cutoff := a.today().AddDate(0, 0, -days)

	var recent []Session
	for _, s := range sessions {
		date, ok := s.Date()
		if !ok || date.Before(cutoff) {
			continue
		}
		recent = append(recent, s)
	}

	if len(recent) < 4 {
		return &TrendStats{Trend: TrendInsufficientData}
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Fecha < recent[j].Fecha
	})

	mid := len(recent) / 2
	avgFirst := avgTiempo(recent[:mid])
	avgSecond := avgTiempo(recent[mid:])

	if avgFirst == 0 {
		return &TrendStats{Trend: TrendStable}
	}

	change := (avgSecond - avgFirst) / avgFirst * 100

	trend := TrendStable
	switch {
	case change > 10:
		trend = TrendImproving
	case change < -10:
		trend = TrendDeclining
	}

	return &TrendStats{
		Trend:             trend,
		ChangePercentage:  round1(change),
		AvgTimeFirstHalf:  round1(avgFirst),
		AvgTimeSecondHalf: round1(avgSecond),
	}
}

func avgTiempo(half []Session) float64 {
	if len(half) == 0 {
		return 0
	}
	var sum float64
	for _, s := range half {
		sum += float64(s.Tiempo)
	}
	return sum / float64(len(half))
}

// validDates returns the deduplicated, ascending-sorted session dates.
func validDates(sessions []Session) []time.Time {
	seen := map[time.Time]bool{}
	var dates []time.Time
	for _, s := range sessions {
		date, ok := s.Date()
		if !ok || seen[date] {
			continue
		}
		seen[date] = true
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates
}

// mostCommonType returns the first type to attain the maximum count in
// input order, and that count.
func mostCommonType(sessions []Session) (string, int) {
	if len(sessions) == 0 {
		return "N/A", 0
	}
	counts := map[string]int{}
	best, bestCount := "N/A", 0
	for _, s := range sessions {
		counts[s.Tipo]++
		if counts[s.Tipo] > bestCount {
			best = s.Tipo
			bestCount = counts[s.Tipo]
		}
	}
	return best, bestCount
}

func emptyStats() *ComprehensiveStats {
	intensities := make(map[string]IntensityStats, len(Intensities))
	for _, intensity := range Intensities {
		intensities[intensity] = IntensityStats{}
	}
	return &ComprehensiveStats{
		MostFrequentType:      "N/A",
		ByType:                []TypeStats{},
		MonthlyTotals:         []MonthStats{},
		IntensityDistribution: intensities,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
