package domain

import "time"

// Fixed quiz configuration: a level serves ten questions and passing
// requires eight correct answers (80%).
const (
	QuestionsPerLevel = 10
	PassingScore      = 8
)

// Ownership binds a record to the actor that created it. Historical records
// may carry only a subset of these fields; Actor.Owns handles the matching.
type Ownership struct {
	OwnerID    string `json:"ownerId,omitempty"`
	OwnerUID   string `json:"ownerUid,omitempty"`
	OwnerEmail string `json:"ownerEmail,omitempty"`
	OwnerName  string `json:"ownerName,omitempty"`
}

// IsZero reports whether no owner field is populated (seed/static content).
func (o Ownership) IsZero() bool {
	return o.OwnerID == "" && o.OwnerUID == "" && o.OwnerEmail == "" && o.OwnerName == ""
}

// Ref returns the most specific populated owner field, used as the bucket
// key when aggregating per-actor activity.
func (o Ownership) Ref() string {
	switch {
	case o.OwnerID != "":
		return o.OwnerID
	case o.OwnerUID != "":
		return o.OwnerUID
	case o.OwnerEmail != "":
		return o.OwnerEmail
	default:
		return o.OwnerName
	}
}

// Question models an MCQ question within a quiz category and level.
// Invariant: Answer equals one of Options.
type Question struct {
	ID        string   `json:"id"`
	Quiz      string   `json:"quiz"`
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	Answer    string   `json:"answer"`
	Level     int      `json:"level"`
	Ownership
	CreatedAt time.Time `json:"createdAt"`
}

// Result is one completed (or time-expired) quiz attempt. Results are
// append-only; they are deleted, never edited.
type Result struct {
	ID string `json:"id"`
	Ownership
	Username  string    `json:"username"`
	Quiz      string    `json:"quiz"`
	Level     int       `json:"level"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is a locally registered account. External actors are never stored
// as rows; they are resolved from their token on each request.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	Username string    `json:"username"`
	Quiz     string    `json:"quiz"`
	Level    int       `json:"level"`
	Score    int       `json:"score"`
	When     time.Time `json:"when"`
}

// Leaderboard is a snapshot of the current ranking, optionally scoped to a
// single quiz category.
type Leaderboard struct {
	Quiz      string             `json:"quiz,omitempty"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
