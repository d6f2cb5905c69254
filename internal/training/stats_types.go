package training

// ComprehensiveStats is the full summary view served by /api/stats/summary.
type ComprehensiveStats struct {
	TotalSessions         int     `json:"total_sessions"`
	TotalTime             int     `json:"total_time"`
	TotalTimeHours        float64 `json:"total_time_hours"`
	TotalCalories         int     `json:"total_calories"`
	AvgSessionTime        float64 `json:"avg_session_time"`
	AvgCaloriesPerSession int     `json:"avg_calories_per_session"`

	// MostFrequentType is the first type to attain the maximum count
	// in input order.
	MostFrequentType  string `json:"most_frequent_type"`
	MostFrequentCount int    `json:"most_frequent_count"`

	ByType                []TypeStats               `json:"by_type"`
	RecentActivity        RecentActivity            `json:"recent_activity"`
	WeeklyAverage         WeeklyAverage             `json:"weekly_average"`
	MonthlyTotals         []MonthStats              `json:"monthly_totals"`
	CurrentStreak         int                       `json:"current_streak"`
	LongestStreak         int                       `json:"longest_streak"`
	IntensityDistribution map[string]IntensityStats `json:"intensity_distribution"`
}

type TypeStats struct {
	Tipo          string  `json:"tipo"`
	Sessions      int     `json:"sessions"`
	TotalTime     int     `json:"total_time"`
	TotalCalories int     `json:"total_calories"`
	AvgTime       float64 `json:"avg_time"`
	AvgCalories   int     `json:"avg_calories"`
	Percentage    float64 `json:"percentage"`
}

type MonthStats struct {
	Month          string  `json:"month"` // YYYY-MM
	MonthName      string  `json:"month_name"`
	Year           int     `json:"year"`
	MonthNumber    int     `json:"month_number"`
	Sessions       int     `json:"sessions"`
	TotalTime      int     `json:"total_time"`
	TotalCalories  int     `json:"total_calories"`
	AvgSessionTime float64 `json:"avg_session_time"`
	MostCommonType string  `json:"most_common_type"`
	// SessionsPerWeek uses a fixed 30-day month approximation.
	SessionsPerWeek float64 `json:"sessions_per_week"`
}

type RecentActivity struct {
	Last7Days  ActivityWindow `json:"last_7_days"`
	Last30Days ActivityWindow `json:"last_30_days"`
}

type ActivityWindow struct {
	Sessions      int     `json:"sessions"`
	TotalTime     int     `json:"total_time"`
	TotalCalories int     `json:"total_calories"`
	AvgPerDay     float64 `json:"avg_per_day"`
}

type WeeklyAverage struct {
	Sessions      float64 `json:"sessions"`
	Time          float64 `json:"time"`
	Calories      int     `json:"calories"`
	WeeksAnalyzed float64 `json:"weeks_analyzed"`
}

type IntensityStats struct {
	Count          int     `json:"count"`
	Percentage     float64 `json:"percentage"`
	TotalTime      int     `json:"total_time"`
	TimePercentage float64 `json:"time_percentage"`
	TotalCalories  int     `json:"total_calories"`
	AvgTime        float64 `json:"avg_time"`
}

const (
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

type TrendStats struct {
	Trend             string  `json:"trend"`
	ChangePercentage  float64 `json:"change_percentage"`
	AvgTimeFirstHalf  float64 `json:"avg_time_first_period,omitempty"`
	AvgTimeSecondHalf float64 `json:"avg_time_second_period,omitempty"`
}
