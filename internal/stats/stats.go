package stats

type DaysStat struct {
	Period    string `json:"period"` // "week", "month", "year", "all_time"
	DaysDrank int    `json:"days_drank" db:"days_drank"`
	TotalDays int    `json:"total_days"`
}

type UserStats struct {
	TotalDrinks        int     `json:"total_drinks"`
	UniqueTypes        int     `json:"unique_types"`
	TotalDaysDrank     int     `json:"total_days_drank"`
	DaysThisWeek       int     `json:"days_this_week"`
	DaysThisMonth      int     `json:"days_this_month"`
	MaxInDay           int     `json:"max_in_day"`
	CurrentStreak      int     `json:"current_streak"`
	LongestStreak      int     `json:"longest_streak"`
	WeeklyStreakCount  int     `json:"weekly_streak_count"`
	MonthlyStreakCount int     `json:"monthly_streak_count"`
	CheersReceived     int     `json:"cheers_received"`
	AchievementsCount  int     `json:"achievements_count"`
	FriendsCount       int     `json:"friends_count"`
	Rank               int     `json:"rank"`
	Score              float64 `json:"score"`
}
