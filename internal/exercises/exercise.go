package exercises

// Exercise is a user-defined catalog entry, e.g. "Bench Press" in
// category "chest". Muscle records reference it by id.
type Exercise struct {
	ID       int    `json:"id"`
	UserID   string `json:"-"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Categories the frontend offers. Stored as free text, the list is not
// enforced at the schema level.
var KnownCategories = []string{"chest", "back", "shoulders", "arms", "legs"}
