package domain

import "time"

// Framework names one of the fixed ethical frameworks every option is
// scored against. The set is closed; catalog loading maps raw data onto
// these constants so play-time code never matches strings.
type Framework string

const (
	Deontology       Framework = "deontology"
	Utilitarianism   Framework = "utilitarianism"
	Virtue           Framework = "virtue"
	Consequentialism Framework = "consequentialism"
	Relativism       Framework = "relativism"
)

// Frameworks returns the fixed enumeration order. Profile tie-breaks
// depend on this order being stable.
func Frameworks() []Framework {
	return []Framework{Deontology, Utilitarianism, Virtue, Consequentialism, Relativism}
}

// FrameworkScore is one framework's evaluation of an option.
type FrameworkScore struct {
	Framework   Framework `json:"framework"`
	Score       int       `json:"score"`
	Explanation string    `json:"explanation"`
}

// ValueScore is a named value's signed alignment with an option.
type ValueScore struct {
	Value       string `json:"value"`
	Alignment   int    `json:"alignment"`
	Explanation string `json:"explanation"`
}

// Option is one possible answer to a dilemma. Immutable after catalog load.
type Option struct {
	ID             string           `json:"id"`
	Text           string           `json:"text"`
	OverallScore   int              `json:"overallScore"`
	Feedback       string           `json:"feedback"`
	Frameworks     []FrameworkScore `json:"ethicalAnalysis"`
	Values         []ValueScore     `json:"valueAnalysis"`
	CulturalImpact string           `json:"culturalImpact"`
}

// Dilemma is one round's scenario with 2-4 scored options.
type Dilemma struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Context           string   `json:"context"`
	Category          string   `json:"category"`
	Difficulty        string   `json:"difficulty"`
	Options           []Option `json:"options"`
	LearningObjective string   `json:"learningObjective,omitempty"`
}

// PlayerAnswer is one entry in a player's append-only answer history.
// The wire field keeps the client protocol's single-m spelling.
type PlayerAnswer struct {
	DilemmaID  string    `json:"dilemaId"`
	OptionID   string    `json:"optionId"`
	Score      int       `json:"score"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// EthicalProfile summarizes a player's historical choices: per-framework
// averages over every answered dilemma plus the dominant framework.
type EthicalProfile struct {
	Scores   map[Framework]int `json:"scores"`
	Dominant Framework         `json:"dominantFramework"`
}

// Player is one connected participant. The ID is the connection id and is
// owned exclusively by that connection for its lifetime.
type Player struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Score   int             `json:"score"`
	Answers []PlayerAnswer  `json:"answers"`
	Profile *EthicalProfile `json:"ethicalProfile,omitempty"`
}

// RoomStatus is the one-way room lifecycle: waiting -> playing -> finished.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
)

// Room groups a bounded set of players around one fixed dilemma slice.
// Players are owned by the registry; the room only holds membership.
type Room struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	CreatorID    string     `json:"creatorId"`
	Players      []*Player  `json:"players"`
	MaxPlayers   int        `json:"maxPlayers"`
	Difficulty   string     `json:"difficulty"`
	Status       RoomStatus `json:"status"`
	CurrentIndex int        `json:"currentDilemaIndex"`
	Dilemmas     []Dilemma  `json:"-"`
	// Answers is the per-room ledger: connection id -> dilemma id -> option id.
	Answers    map[string]map[string]string `json:"-"`
	CreatedAt  time.Time                    `json:"createdAt"`
	FinishedAt time.Time                    `json:"-"`
}

// RoomSnapshot is a point-in-time copy of a room for broadcasting. It
// shares no mutable state with the live Room, so encoding it on a writer
// goroutine is safe while the room keeps changing under its lock.
type RoomSnapshot struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	CreatorID    string     `json:"creatorId"`
	Players      []Player   `json:"players"`
	MaxPlayers   int        `json:"maxPlayers"`
	Difficulty   string     `json:"difficulty"`
	Status       RoomStatus `json:"status"`
	CurrentIndex int        `json:"currentDilemaIndex"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Snapshot copies the room and its members into value types. The caller
// must hold whatever lock guards the room.
func (r *Room) Snapshot() RoomSnapshot {
	players := make([]Player, len(r.Players))
	for i, p := range r.Players {
		players[i] = *p
		players[i].Answers = append([]PlayerAnswer(nil), p.Answers...)
	}
	return RoomSnapshot{
		ID:           r.ID,
		Name:         r.Name,
		CreatorID:    r.CreatorID,
		Players:      players,
		MaxPlayers:   r.MaxPlayers,
		Difficulty:   r.Difficulty,
		Status:       r.Status,
		CurrentIndex: r.CurrentIndex,
		CreatedAt:    r.CreatedAt,
	}
}

// HasPlayer reports whether the connection id is a current member.
func (r *Room) HasPlayer(connID string) bool {
	for _, p := range r.Players {
		if p.ID == connID {
			return true
		}
	}
	return false
}

// Summary returns the discovery view of the room.
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:          r.ID,
		Name:        r.Name,
		PlayerCount: len(r.Players),
		MaxPlayers:  r.MaxPlayers,
		Difficulty:  r.Difficulty,
		Status:      r.Status,
	}
}

// RoomSummary is the discovery view of a room.
type RoomSummary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	PlayerCount int        `json:"playerCount"`
	MaxPlayers  int        `json:"maxPlayers"`
	Difficulty  string     `json:"difficulty"`
	Status      RoomStatus `json:"status"`
}

// RankedPlayer is one row of a score snapshot or final ranking.
type RankedPlayer struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Score   int             `json:"score"`
	Profile *EthicalProfile `json:"ethicalProfile,omitempty"`
}
