package gamification

import "time"

const dayLayout = "2006-01-02"

// DayKey returns the calendar day of t in loc, as used by the daily cap.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dayLayout)
}

// StreakLength counts consecutive calendar days ending on today.
// days must be ascending YYYY-MM-DD keys; unparsable keys break the streak.
func StreakLength(days []string, today string) int {
	cur, err := time.Parse(dayLayout, today)
	if err != nil {
		return 0
	}
	streak := 0
	for i := len(days) - 1; i >= 0; i-- {
		d, err := time.Parse(dayLayout, days[i])
		if err != nil {
			break
		}
		if d.After(cur) {
			continue
		}
		if !d.Equal(cur) {
			break
		}
		streak++
		cur = cur.AddDate(0, 0, -1)
	}
	return streak
}
