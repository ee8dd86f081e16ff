package records

import "time"

// Record is one logged set. MuscleValue is always derived server-side
// from weight and reps, a client-supplied value is never trusted.
type Record struct {
	ID          int       `json:"id"`
	UserID      string    `json:"-"`
	ExerciseID  int       `json:"exercise_id"`
	Weight      float64   `json:"weight"`
	Reps        int       `json:"reps"`
	MuscleValue float64   `json:"muscle_value"`
	RecordedAt  time.Time `json:"recorded_at"`
}

func MuscleValueFor(weight float64, reps int) float64 {
	return weight * float64(reps)
}

// SummaryItem is one row of the today view, joined with the exercise.
type SummaryItem struct {
	Category     string  `json:"category"`
	ExerciseName string  `json:"exerciseName"`
	Weight       float64 `json:"weight"`
	Reps         int     `json:"reps"`
	MuscleValue  float64 `json:"muscleValue"`
}

// HistoryItem is one row of the per-date history view.
type HistoryItem struct {
	ID          int     `json:"id"`
	Category    string  `json:"category"`
	Exercise    string  `json:"exercise"`
	Weight      float64 `json:"weight"`
	Reps        int     `json:"reps"`
	MuscleValue float64 `json:"muscle_value"`
}

type CategoryTotal struct {
	Category         string  `json:"category"`
	TotalMuscleValue float64 `json:"total_muscle_value"`
}

// WeeklyCategoryTotal is a grouped aggregation row straight from SQL,
// keyed by ISO week (IYYY-IW, Monday start).
type WeeklyCategoryTotal struct {
	Week     string
	Category string
	Total    float64
}

type WeeklyTotal struct {
	Week  string
	Total float64
}
