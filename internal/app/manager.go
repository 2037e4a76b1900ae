// Package app contains the room/session lifecycle core: the room manager
// owns every room and the player registry, applies scoring, and is the
// only writer of shared game state.
package app

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"dilemma-arena/internal/catalog"
	"dilemma-arena/internal/domain"
)

const (
	defaultCapacity = 4
	defaultDilemmas = 5
	roomCodeLength  = 4
	roomCodeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// RoomIndex marks discoverable rooms in an external index (e.g. Redis).
// All calls are best-effort; the in-memory room map stays authoritative.
type RoomIndex interface {
	MarkOpen(roomID string)
	Clear(roomID string)
}

// Options tunes the manager. Zero values fall back to defaults.
type Options struct {
	DefaultCapacity int
	DefaultDilemmas int
	Index           RoomIndex
	Clock           func() time.Time
	Rand            *rand.Rand
}

// RoomManager owns the room collection and the player registry. Every
// read-then-write sequence, including the "all answered, advance the
// round" step, runs under one mutex so two near-simultaneous last answers
// can never double-advance a room.
type RoomManager struct {
	catalog     *catalog.Catalog
	broadcaster Broadcaster
	index       RoomIndex
	now         func() time.Time
	rnd         *rand.Rand
	capacity    int
	dilemmas    int

	mu      sync.Mutex
	rooms   map[string]*domain.Room
	players map[string]*domain.Player
}

func NewRoomManager(cat *catalog.Catalog, broadcaster Broadcaster, opts Options) *RoomManager {
	if opts.DefaultCapacity <= 0 {
		opts.DefaultCapacity = defaultCapacity
	}
	if opts.DefaultDilemmas <= 0 {
		opts.DefaultDilemmas = defaultDilemmas
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RoomManager{
		catalog:     cat,
		broadcaster: broadcaster,
		index:       opts.Index,
		now:         opts.Clock,
		rnd:         opts.Rand,
		capacity:    opts.DefaultCapacity,
		dilemmas:    opts.DefaultDilemmas,
		rooms:       make(map[string]*domain.Room),
		players:     make(map[string]*domain.Player),
	}
}

// RegisterPlayer upserts the player for a connection. Re-registering only
// refreshes the display name; score and history are kept.
func (m *RoomManager) RegisterPlayer(connID, name string) *domain.Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registerLocked(connID, name)
}

func (m *RoomManager) registerLocked(connID, name string) *domain.Player {
	if player, ok := m.players[connID]; ok {
		if name != "" {
			player.Name = name
		}
		return player
	}
	player := &domain.Player{ID: connID, Name: name, Answers: []domain.PlayerAnswer{}}
	m.players[connID] = player
	return player
}

// CreateRoom builds a waiting room owned by the creator's connection. The
// creator must have registered first. Room codes are short shareable
// letter codes; a collision just rolls a new code.
func (m *RoomManager) CreateRoom(connID, playerName string, maxPlayers int, difficulty string, dilemmaCount int) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creator, ok := m.players[connID]
	if !ok {
		return nil, domain.ErrPlayerNotRegistered
	}
	if playerName != "" {
		creator.Name = playerName
	}
	if maxPlayers <= 0 {
		maxPlayers = m.capacity
	}
	if dilemmaCount <= 0 {
		dilemmaCount = m.dilemmas
	}

	var roomID string
	for {
		roomID = m.newRoomCode()
		if _, taken := m.rooms[roomID]; !taken {
			break
		}
	}

	room := &domain.Room{
		ID:         roomID,
		Name:       creator.Name + "'s room",
		CreatorID:  connID,
		Players:    []*domain.Player{creator},
		MaxPlayers: maxPlayers,
		Difficulty: difficulty,
		Status:     domain.StatusWaiting,
		Dilemmas:   m.catalog.ForGame(dilemmaCount),
		Answers:    make(map[string]map[string]string),
		CreatedAt:  m.now(),
	}
	m.rooms[roomID] = room

	if m.index != nil {
		m.index.MarkOpen(roomID)
	}
	m.broadcaster.Send(connID, Event{Type: EventRoomCreated, Payload: RoomCreatedPayload{RoomID: roomID}})
	m.broadcastOpenRoomsLocked()
	return room, nil
}

// JoinRoom adds a connection to a waiting room. Joining a room you are
// already in only refreshes the display name; the last write wins.
func (m *RoomManager) JoinRoom(connID, roomID, playerName string) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if room.Status != domain.StatusWaiting {
		return nil, domain.ErrGameAlreadyStarted
	}
	if room.HasPlayer(connID) {
		m.registerLocked(connID, playerName)
		return room, nil
	}
	if len(room.Players) >= room.MaxPlayers {
		return nil, domain.ErrRoomFull
	}

	player := m.registerLocked(connID, playerName)
	room.Players = append(room.Players, player)

	m.broadcastRoomLocked(room, Event{Type: EventRoomUpdated, Payload: room.Snapshot()})
	m.broadcastOpenRoomsLocked()
	return room, nil
}

// StartGame moves a waiting room into play and deals the first dilemma.
// Only the creator may start (non-creators get ErrUnauthorized).
func (m *RoomManager) StartGame(connID, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if room.Status != domain.StatusWaiting {
		return domain.ErrGameAlreadyStarted
	}
	if room.CreatorID != connID {
		return domain.ErrUnauthorized
	}

	room.Status = domain.StatusPlaying
	room.CurrentIndex = 0
	room.Answers = make(map[string]map[string]string)

	if m.index != nil {
		m.index.Clear(roomID)
	}
	m.broadcastRoomLocked(room, Event{Type: EventGameStarted, Payload: GameStartedPayload{
		Dilemma:  room.Dilemmas[0],
		RoomInfo: roomInfoFor(room),
	}})
	m.broadcastOpenRoomsLocked()
	return nil
}

// SubmitAnswer records one choice for the current round. A repeat
// submission for an already-answered dilemma is a silent no-op, never a
// second score. When the last member answers, scoring, profile recompute
// and round advancement happen here as one step under the manager lock.
func (m *RoomManager) SubmitAnswer(connID, roomID, dilemmaID, optionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if _, ok := m.players[connID]; !ok {
		return domain.ErrPlayerNotFound
	}
	if room.Status != domain.StatusPlaying {
		return domain.ErrGameNotInProgress
	}
	if !room.HasPlayer(connID) {
		return domain.ErrPlayerNotFound
	}

	current := room.Dilemmas[room.CurrentIndex]
	if current.ID != dilemmaID {
		return domain.ErrDilemmaMismatch
	}
	if _, ok := m.catalog.Option(dilemmaID, optionID); !ok {
		return domain.ErrOptionNotFound
	}

	answers, ok := room.Answers[connID]
	if !ok {
		answers = make(map[string]string)
		room.Answers[connID] = answers
	}
	if _, answered := answers[dilemmaID]; answered {
		return nil
	}
	answers[dilemmaID] = optionID

	for _, p := range room.Players {
		if _, ok := room.Answers[p.ID][dilemmaID]; !ok {
			return nil
		}
	}
	m.scoreRoundLocked(room, current)
	m.advanceLocked(room)
	return nil
}

func (m *RoomManager) scoreRoundLocked(room *domain.Room, dilemma domain.Dilemma) {
	now := m.now()
	for _, player := range room.Players {
		optionID := room.Answers[player.ID][dilemma.ID]
		option, ok := m.catalog.Option(dilemma.ID, optionID)
		if !ok {
			continue
		}
		player.Score += option.OverallScore
		player.Answers = append(player.Answers, domain.PlayerAnswer{
			DilemmaID:  dilemma.ID,
			OptionID:   optionID,
			Score:      option.OverallScore,
			AnsweredAt: now,
		})

		// Full recompute over the whole history, not a patch of the
		// latest answer; the profile stays a pure function of history.
		chosen := make([]domain.Option, 0, len(player.Answers))
		for _, answer := range player.Answers {
			if opt, ok := m.catalog.Option(answer.DilemmaID, answer.OptionID); ok {
				chosen = append(chosen, opt)
			}
		}
		player.Profile = domain.ComputeProfile(chosen)
	}
}

func (m *RoomManager) advanceLocked(room *domain.Room) {
	room.CurrentIndex++
	if room.CurrentIndex < len(room.Dilemmas) {
		m.broadcastRoomLocked(room, Event{Type: EventNextDilemma, Payload: NextDilemmaPayload{
			Dilemma:      room.Dilemmas[room.CurrentIndex],
			RoomInfo:     roomInfoFor(room),
			PlayerScores: rankedPlayers(room),
		}})
		return
	}

	room.Status = domain.StatusFinished
	room.FinishedAt = m.now()
	m.broadcastRoomLocked(room, Event{Type: EventGameFinished, Payload: GameFinishedPayload{
		Ranking: rankedPlayers(room),
	}})
	m.broadcastOpenRoomsLocked()
}

// DisconnectPlayer drops a connection for good: out of the registry and
// out of every room. A departing creator tears the whole room down; any
// other departure just shrinks the member list. No grace period.
func (m *RoomManager) DisconnectPlayer(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, registered := m.players[connID]
	delete(m.players, connID)

	changed := false
	for roomID, room := range m.rooms {
		if !room.HasPlayer(connID) {
			continue
		}
		changed = true
		remaining := room.Players[:0]
		for _, p := range room.Players {
			if p.ID != connID {
				remaining = append(remaining, p)
			}
		}
		room.Players = remaining

		if room.CreatorID == connID {
			delete(m.rooms, roomID)
			if m.index != nil {
				m.index.Clear(roomID)
			}
			m.broadcastRoomLocked(room, Event{Type: EventRoomClosed, Payload: RoomClosedPayload{
				Message: "The room creator disconnected.",
			}})
		} else {
			m.broadcastRoomLocked(room, Event{Type: EventRoomUpdated, Payload: room.Snapshot()})
		}
	}
	if changed || registered {
		m.broadcastOpenRoomsLocked()
	}
}

// OpenRooms lists waiting rooms for discovery, oldest first.
func (m *RoomManager) OpenRooms() []domain.RoomSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openRoomsLocked()
}

// Rooms lists every live room, including playing and retained finished
// ones, oldest first.
func (m *RoomManager) Rooms() []domain.RoomSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.RoomSummary, 0, len(m.rooms))
	for _, room := range m.rooms {
		out = append(out, room.Summary())
	}
	sortSummaries(m.rooms, out)
	return out
}

// SweepFinishedBefore removes finished rooms whose game ended before
// cutoff. Finished rooms are retained for late result viewing until the
// sweep reaps them. Returns how many rooms were removed.
func (m *RoomManager) SweepFinishedBefore(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for roomID, room := range m.rooms {
		if room.Status != domain.StatusFinished || !room.FinishedAt.Before(cutoff) {
			continue
		}
		delete(m.rooms, roomID)
		if m.index != nil {
			m.index.Clear(roomID)
		}
		removed++
	}
	if removed > 0 {
		m.broadcastOpenRoomsLocked()
	}
	return removed
}

func (m *RoomManager) openRoomsLocked() []domain.RoomSummary {
	out := make([]domain.RoomSummary, 0, len(m.rooms))
	for _, room := range m.rooms {
		if room.Status == domain.StatusWaiting {
			out = append(out, room.Summary())
		}
	}
	sortSummaries(m.rooms, out)
	return out
}

func (m *RoomManager) broadcastOpenRoomsLocked() {
	m.broadcaster.SendAll(Event{Type: EventRoomsUpdated, Payload: m.openRoomsLocked()})
}

func (m *RoomManager) broadcastRoomLocked(room *domain.Room, event Event) {
	for _, p := range room.Players {
		m.broadcaster.Send(p.ID, event)
	}
}

func (m *RoomManager) newRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		code[i] = roomCodeLetters[m.rnd.Intn(len(roomCodeLetters))]
	}
	return string(code)
}

func roomInfoFor(room *domain.Room) RoomInfo {
	return RoomInfo{
		CurrentDilemaIndex: room.CurrentIndex + 1,
		TotalDilemas:       len(room.Dilemmas),
	}
}

// rankedPlayers sorts by score descending; the stable sort keeps join
// order for ties.
func rankedPlayers(room *domain.Room) []domain.RankedPlayer {
	ranked := make([]domain.RankedPlayer, 0, len(room.Players))
	for _, p := range room.Players {
		ranked = append(ranked, domain.RankedPlayer{ID: p.ID, Name: p.Name, Score: p.Score, Profile: p.Profile})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func sortSummaries(rooms map[string]*domain.Room, out []domain.RoomSummary) {
	sort.Slice(out, func(i, j int) bool {
		ri, rj := rooms[out[i].ID], rooms[out[j].ID]
		if !ri.CreatedAt.Equal(rj.CreatedAt) {
			return ri.CreatedAt.Before(rj.CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}
