package roster

// Roster is the result of parsing one block of roster text.
type Roster struct {
	Header  []string // Header row cells (informational, never validated)
	Players []Player // Player rows in input order
	Coach   *Coach   // Head coach, nil when the input has no coach line
	Dropped int      // Data lines silently skipped for having fewer than five fields
}

// Player is one roster entry.
type Player struct {
	Number  string `json:"number"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Birth   string `json:"birth"`
	Country string `json:"country"`
}

// Coach names the head coach.
type Coach struct {
	Name string `json:"name"`
}
