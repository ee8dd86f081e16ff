package users

import "time"

// User's Password field always holds the bcrypt hash, never plaintext.
type User struct {
	UserID    string    `json:"user_id"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"-"`
}

// Stats is the small profile summary shown on the settings page.
type Stats struct {
	RegistrationDate string `json:"registrationDate"`
	WorkoutDays      int    `json:"workoutDays"`
}
