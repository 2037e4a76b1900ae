package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"dilemma-arena/internal/app"
	"dilemma-arena/internal/catalog"
	"dilemma-arena/internal/domain"
)

func TestRegisterPlayerIdempotent(t *testing.T) {
	m, _, _ := newTestManager(t, nil)

	first := m.RegisterPlayer("c1", "Alice")
	first.Score = 42

	again := m.RegisterPlayer("c1", "Alicia")
	if again != first {
		t.Fatalf("expected same player instance on re-register")
	}
	if again.Name != "Alicia" {
		t.Fatalf("expected name refresh, got %s", again.Name)
	}
	if again.Score != 42 {
		t.Fatalf("expected score kept across re-register, got %d", again.Score)
	}
}

func TestCreateRoomRequiresRegistration(t *testing.T) {
	m, _, _ := newTestManager(t, nil)

	if _, err := m.CreateRoom("ghost", "Ghost", 4, "medium", 5); !errors.Is(err, domain.ErrPlayerNotRegistered) {
		t.Fatalf("expected ErrPlayerNotRegistered, got %v", err)
	}
}

func TestCreateRoom(t *testing.T) {
	m, rec, _ := newTestManager(t, nil)
	m.RegisterPlayer("c1", "Alice")

	room, err := m.CreateRoom("c1", "Alice", 3, "hard", 2)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if len(room.ID) != 4 {
		t.Fatalf("expected 4-letter room code, got %q", room.ID)
	}
	for _, r := range room.ID {
		if r < 'A' || r > 'Z' {
			t.Fatalf("expected uppercase letters only, got %q", room.ID)
		}
	}
	if room.Status != domain.StatusWaiting || room.CurrentIndex != 0 {
		t.Fatalf("expected fresh waiting room, got %+v", room)
	}
	if len(room.Players) != 1 || room.Players[0].ID != "c1" {
		t.Fatalf("expected creator as sole member, got %+v", room.Players)
	}
	if len(room.Dilemmas) != 2 {
		t.Fatalf("expected 2 dilemmas, got %d", len(room.Dilemmas))
	}

	created := rec.eventsFor("c1", app.EventRoomCreated)
	if len(created) != 1 {
		t.Fatalf("expected one room_created for creator, got %d", len(created))
	}
	if rec.broadcastCount(app.EventRoomsUpdated) == 0 {
		t.Fatalf("expected rooms_updated broadcast after create")
	}
}

func TestJoinRoomErrors(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	m.RegisterPlayer("c1", "Alice")
	room, err := m.CreateRoom("c1", "Alice", 2, "medium", 1)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	if _, err := m.JoinRoom("c2", "ZZZZ", "Bob"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	if _, err := m.JoinRoom("c2", room.ID, "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	// maxPlayers=2, third join must be rejected.
	if _, err := m.JoinRoom("c3", room.ID, "Carol"); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if len(room.Players) != 2 {
		t.Fatalf("capacity invariant broken: %d members", len(room.Players))
	}

	// Rejoining never duplicates membership, but the display name is
	// last-write-wins even for an existing member.
	if _, err := m.JoinRoom("c2", room.ID, "Bobby"); err != nil {
		t.Fatalf("idempotent join: %v", err)
	}
	if len(room.Players) != 2 {
		t.Fatalf("expected no duplicate member, got %d", len(room.Players))
	}
	if room.Players[1].Name != "Bobby" {
		t.Fatalf("expected rejoin to refresh display name, got %s", room.Players[1].Name)
	}

	if err := m.StartGame("c1", room.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.JoinRoom("c4", room.ID, "Dave"); !errors.Is(err, domain.ErrGameAlreadyStarted) {
		t.Fatalf("expected ErrGameAlreadyStarted, got %v", err)
	}
}

func TestStartGameCreatorOnly(t *testing.T) {
	m, rec, _ := newTestManager(t, nil)
	m.RegisterPlayer("c1", "Alice")
	room, _ := m.CreateRoom("c1", "Alice", 4, "medium", 3)
	if _, err := m.JoinRoom("c2", room.ID, "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := m.StartGame("c2", room.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-creator, got %v", err)
	}
	if room.Status != domain.StatusWaiting {
		t.Fatalf("failed start must not change state, got %s", room.Status)
	}

	if err := m.StartGame("c1", "ZZZZ"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	if err := m.StartGame("c1", room.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if room.Status != domain.StatusPlaying {
		t.Fatalf("expected playing, got %s", room.Status)
	}
	if err := m.StartGame("c1", room.ID); !errors.Is(err, domain.ErrGameAlreadyStarted) {
		t.Fatalf("expected ErrGameAlreadyStarted on restart, got %v", err)
	}

	for _, conn := range []string{"c1", "c2"} {
		started := rec.eventsFor(conn, app.EventGameStarted)
		if len(started) != 1 {
			t.Fatalf("expected one game_started for %s, got %d", conn, len(started))
		}
		payload := started[0].Payload.(app.GameStartedPayload)
		if payload.Dilemma.ID != room.Dilemmas[0].ID {
			t.Fatalf("expected first dilemma %s, got %s", room.Dilemmas[0].ID, payload.Dilemma.ID)
		}
		if payload.RoomInfo.CurrentDilemaIndex != 1 || payload.RoomInfo.TotalDilemas != 3 {
			t.Fatalf("unexpected room info %+v", payload.RoomInfo)
		}
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	m.RegisterPlayer("c1", "Alice")
	room, _ := m.CreateRoom("c1", "Alice", 4, "medium", 2)

	if err := m.SubmitAnswer("c1", "ZZZZ", "1", "a"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if err := m.SubmitAnswer("ghost", room.ID, "1", "a"); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}

	// Room still waiting: even a registered non-participant gets the
	// game-state error.
	m.RegisterPlayer("c9", "Nosy")
	if err := m.SubmitAnswer("c9", room.ID, "1", "a"); !errors.Is(err, domain.ErrGameNotInProgress) {
		t.Fatalf("expected ErrGameNotInProgress, got %v", err)
	}

	if err := m.StartGame("c1", room.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.SubmitAnswer("c9", room.ID, room.Dilemmas[0].ID, "a"); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound for non-member, got %v", err)
	}

	// Stale dilemma id leaves all state untouched.
	if err := m.SubmitAnswer("c1", room.ID, room.Dilemmas[1].ID, "a"); !errors.Is(err, domain.ErrDilemmaMismatch) {
		t.Fatalf("expected ErrDilemmaMismatch, got %v", err)
	}
	if room.CurrentIndex != 0 || len(room.Answers) != 0 {
		t.Fatalf("mismatch must not mutate state: idx=%d ledger=%v", room.CurrentIndex, room.Answers)
	}

	if err := m.SubmitAnswer("c1", room.ID, room.Dilemmas[0].ID, "nope"); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected ErrOptionNotFound, got %v", err)
	}
}

func TestDuplicateAnswerNotDoubleScored(t *testing.T) {
	m, _, cat := newTestManager(t, nil)
	room := startedRoom(t, m, 1, "c1", "c2")
	dilemma := room.Dilemmas[0]
	optA, _ := cat.Option(dilemma.ID, "a")

	if err := m.SubmitAnswer("c1", room.ID, dilemma.ID, "a"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// Repeat submission is a silent no-op, even with a different option.
	if err := m.SubmitAnswer("c1", room.ID, dilemma.ID, "c"); err != nil {
		t.Fatalf("repeat submit: %v", err)
	}
	if err := m.SubmitAnswer("c2", room.ID, dilemma.ID, "a"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	for _, conn := range []string{"c1", "c2"} {
		p := m.RegisterPlayer(conn, "")
		if p.Score != optA.OverallScore {
			t.Fatalf("%s scored %d, want %d exactly once", conn, p.Score, optA.OverallScore)
		}
		if len(p.Answers) != 1 || p.Answers[0].OptionID != "a" {
			t.Fatalf("%s history %+v, want single answer for option a", conn, p.Answers)
		}
	}
}

func TestRoundAdvanceBroadcastsExactlyOne(t *testing.T) {
	m, rec, _ := newTestManager(t, nil)
	room := startedRoom(t, m, 2, "c1", "c2")

	submitRound(t, m, room, map[string]string{"c1": "a", "c2": "b"})
	if room.CurrentIndex != 1 {
		t.Fatalf("expected index advanced by exactly 1, got %d", room.CurrentIndex)
	}
	if n := rec.eventsFor("c1", app.EventNextDilemma); len(n) != 1 {
		t.Fatalf("expected exactly one next_dilema, got %d", len(n))
	}
	if n := rec.eventsFor("c1", app.EventGameFinished); len(n) != 0 {
		t.Fatalf("expected no game_finished mid-game, got %d", len(n))
	}

	submitRound(t, m, room, map[string]string{"c1": "a", "c2": "b"})
	if room.Status != domain.StatusFinished {
		t.Fatalf("expected finished, got %s", room.Status)
	}
	if n := rec.eventsFor("c1", app.EventNextDilemma); len(n) != 1 {
		t.Fatalf("expected next_dilema count unchanged, got %d", len(n))
	}
	if n := rec.eventsFor("c1", app.EventGameFinished); len(n) != 1 {
		t.Fatalf("expected exactly one game_finished, got %d", len(n))
	}
}

func TestSingleDilemmaGameFinishes(t *testing.T) {
	m, rec, cat := newTestManager(t, nil)
	room := startedRoom(t, m, 1, "c1", "c2")
	dilemma := room.Dilemmas[0]

	submitRound(t, m, room, map[string]string{"c1": "a", "c2": "c"})

	finished := rec.eventsFor("c2", app.EventGameFinished)
	if len(finished) != 1 {
		t.Fatalf("expected exactly one game_finished, got %d", len(finished))
	}
	ranking := finished[0].Payload.(app.GameFinishedPayload).Ranking
	if len(ranking) != 2 {
		t.Fatalf("expected both players ranked, got %+v", ranking)
	}
	optA, _ := cat.Option(dilemma.ID, "a")
	optC, _ := cat.Option(dilemma.ID, "c")
	if ranking[0].ID != "c1" || ranking[0].Score != optA.OverallScore {
		t.Fatalf("expected c1 leading with %d, got %+v", optA.OverallScore, ranking[0])
	}
	if ranking[1].ID != "c2" || ranking[1].Score != optC.OverallScore {
		t.Fatalf("expected c2 with %d, got %+v", optC.OverallScore, ranking[1])
	}
	if ranking[0].Profile == nil || ranking[0].Profile.Dominant == "" {
		t.Fatalf("expected computed profile in final ranking, got %+v", ranking[0].Profile)
	}
}

func TestRankingTieKeepsJoinOrder(t *testing.T) {
	m, rec, _ := newTestManager(t, nil)
	room := startedRoom(t, m, 1, "c1", "c2", "c3")

	submitRound(t, m, room, map[string]string{"c1": "b", "c2": "b", "c3": "b"})

	ranking := rec.eventsFor("c1", app.EventGameFinished)[0].Payload.(app.GameFinishedPayload).Ranking
	for i, want := range []string{"c1", "c2", "c3"} {
		if ranking[i].ID != want {
			t.Fatalf("tied ranking should keep join order, got %+v", ranking)
		}
	}
}

func TestProfileMatchesHistoryRecompute(t *testing.T) {
	m, _, cat := newTestManager(t, nil)
	room := startedRoom(t, m, 3, "c1", "c2")

	for _, opt := range []string{"a", "c", "b"} {
		submitRound(t, m, room, map[string]string{"c1": opt, "c2": "b"})
	}

	player := m.RegisterPlayer("c1", "")
	chosen := make([]domain.Option, 0, len(player.Answers))
	for _, answer := range player.Answers {
		opt, ok := cat.Option(answer.DilemmaID, answer.OptionID)
		if !ok {
			t.Fatalf("history references unknown option %+v", answer)
		}
		chosen = append(chosen, opt)
	}
	want := domain.ComputeProfile(chosen)
	if player.Profile == nil || player.Profile.Dominant != want.Dominant {
		t.Fatalf("profile diverged from history recompute: %+v vs %+v", player.Profile, want)
	}
	for fw, avg := range want.Scores {
		if player.Profile.Scores[fw] != avg {
			t.Fatalf("framework %s: got %d want %d", fw, player.Profile.Scores[fw], avg)
		}
	}
}

func TestRoomUpdatedPayloadIsSnapshot(t *testing.T) {
	m, rec, _ := newTestManager(t, nil)
	m.RegisterPlayer("c1", "Alice")
	room, _ := m.CreateRoom("c1", "Alice", 4, "medium", 1)
	if _, err := m.JoinRoom("c2", room.ID, "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}

	updated := rec.eventsFor("c1", app.EventRoomUpdated)
	if len(updated) != 1 {
		t.Fatalf("expected one room_updated, got %d", len(updated))
	}
	snap, ok := updated[0].Payload.(domain.RoomSnapshot)
	if !ok {
		t.Fatalf("expected RoomSnapshot payload, got %T", updated[0].Payload)
	}
	if len(snap.Players) != 2 {
		t.Fatalf("expected 2 members in snapshot, got %d", len(snap.Players))
	}

	// Later mutations must not bleed into an already-emitted payload.
	if _, err := m.JoinRoom("c3", room.ID, "Carol"); err != nil {
		t.Fatalf("join: %v", err)
	}
	m.RegisterPlayer("c2", "Bobby")
	if len(snap.Players) != 2 {
		t.Fatalf("emitted payload tracked later joins, got %d members", len(snap.Players))
	}
	if snap.Players[1].Name != "Bob" {
		t.Fatalf("emitted payload tracked later rename, got %s", snap.Players[1].Name)
	}
}

func TestRoomUpdatedEncodesSafelyDuringChurn(t *testing.T) {
	cat, err := catalog.Load(context.Background(), catalog.NewStaticSource(), false)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	b := &encodingBroadcaster{}
	m := app.NewRoomManager(cat, b, app.Options{})

	m.RegisterPlayer("creator", "Alice")
	room, err := m.CreateRoom("creator", "Alice", 64, "medium", 1)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		connID := fmt.Sprintf("c%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.JoinRoom(connID, room.ID, "Player "+connID); err != nil {
				t.Errorf("join %s: %v", connID, err)
				return
			}
			m.DisconnectPlayer(connID)
		}()
	}
	wg.Wait()
	b.wg.Wait()
}

func TestDisconnectNonCreator(t *testing.T) {
	m, rec, _ := newTestManager(t, nil)
	m.RegisterPlayer("c1", "Alice")
	room, _ := m.CreateRoom("c1", "Alice", 4, "medium", 2)
	if _, err := m.JoinRoom("c2", room.ID, "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}

	m.DisconnectPlayer("c2")

	if len(room.Players) != 1 || room.Players[0].ID != "c1" {
		t.Fatalf("expected only creator left, got %+v", room.Players)
	}
	if room.Status != domain.StatusWaiting {
		t.Fatalf("room must survive a non-creator departure, got %s", room.Status)
	}
	if len(rec.eventsFor("c1", app.EventRoomUpdated)) == 0 {
		t.Fatalf("expected room_updated for remaining member")
	}
	// The departed connection is gone from the registry too.
	if err := m.StartGame("c1", room.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.SubmitAnswer("c2", room.ID, room.Dilemmas[0].ID, "a"); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound after disconnect, got %v", err)
	}
}

func TestDisconnectCreatorClosesRoom(t *testing.T) {
	m, rec, _ := newTestManager(t, nil)
	m.RegisterPlayer("c1", "Alice")
	room, _ := m.CreateRoom("c1", "Alice", 4, "medium", 2)
	if _, err := m.JoinRoom("c2", room.ID, "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}

	m.DisconnectPlayer("c1")

	if len(rec.eventsFor("c2", app.EventRoomClosed)) != 1 {
		t.Fatalf("expected room_closed for remaining member")
	}
	if _, err := m.JoinRoom("c3", room.ID, "Carol"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected room gone after creator disconnect, got %v", err)
	}
}

func TestOpenRoomsListsOnlyWaiting(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	m.RegisterPlayer("c1", "Alice")
	m.RegisterPlayer("c2", "Bob")
	waiting, _ := m.CreateRoom("c1", "Alice", 4, "medium", 1)
	playing, _ := m.CreateRoom("c2", "Bob", 4, "medium", 1)
	if err := m.StartGame("c2", playing.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	open := m.OpenRooms()
	if len(open) != 1 || open[0].ID != waiting.ID {
		t.Fatalf("expected only the waiting room, got %+v", open)
	}
	if all := m.Rooms(); len(all) != 2 {
		t.Fatalf("expected both rooms in full listing, got %+v", all)
	}
}

func TestSweepReapsRetainedFinishedRooms(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }
	m, _, _ := newTestManager(t, clock)

	room := startedRoom(t, m, 1, "c1", "c2")
	submitRound(t, m, room, map[string]string{"c1": "a", "c2": "a"})
	if room.Status != domain.StatusFinished {
		t.Fatalf("expected finished room, got %s", room.Status)
	}

	// Finished rooms are retained for late result viewing.
	if removed := m.SweepFinishedBefore(current.Add(-time.Minute)); removed != 0 {
		t.Fatalf("expected retention before cutoff, removed %d", removed)
	}
	if all := m.Rooms(); len(all) != 1 {
		t.Fatalf("expected room retained, got %+v", all)
	}

	current = current.Add(15 * time.Minute)
	if removed := m.SweepFinishedBefore(current.Add(-10 * time.Minute)); removed != 1 {
		t.Fatalf("expected one room reaped, removed %d", removed)
	}
	if all := m.Rooms(); len(all) != 0 {
		t.Fatalf("expected empty listing after sweep, got %+v", all)
	}
}

// startedRoom creates a room with the given members and starts the game.
// The first connection id is the creator.
func startedRoom(t *testing.T, m *app.RoomManager, dilemmas int, conns ...string) *domain.Room {
	t.Helper()
	m.RegisterPlayer(conns[0], "Player "+conns[0])
	room, err := m.CreateRoom(conns[0], "Player "+conns[0], len(conns), "medium", dilemmas)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	for _, conn := range conns[1:] {
		if _, err := m.JoinRoom(conn, room.ID, "Player "+conn); err != nil {
			t.Fatalf("join %s: %v", conn, err)
		}
	}
	if err := m.StartGame(conns[0], room.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	return room
}

func submitRound(t *testing.T, m *app.RoomManager, room *domain.Room, choices map[string]string) {
	t.Helper()
	dilemma := room.Dilemmas[room.CurrentIndex]
	for conn, opt := range choices {
		if err := m.SubmitAnswer(conn, room.ID, dilemma.ID, opt); err != nil {
			t.Fatalf("submit %s: %v", conn, err)
		}
	}
}

func newTestManager(t *testing.T, clock func() time.Time) (*app.RoomManager, *recorder, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.Load(context.Background(), catalog.NewStaticSource(), false)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	rec := &recorder{}
	return app.NewRoomManager(cat, rec, app.Options{Clock: clock}), rec, cat
}

// encodingBroadcaster marshals every payload on its own goroutine, the
// way the websocket writer encodes events outside the manager lock. Run
// under the race detector it catches payloads sharing live room state.
type encodingBroadcaster struct {
	wg sync.WaitGroup
}

func (b *encodingBroadcaster) Send(connID string, event app.Event) { b.encode(event) }

func (b *encodingBroadcaster) SendAll(event app.Event) { b.encode(event) }

func (b *encodingBroadcaster) encode(event app.Event) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		_, _ = json.Marshal(event)
	}()
}

// recorder is a Broadcaster fake capturing every emitted event.
type recorder struct {
	mu     sync.Mutex
	sent   map[string][]app.Event
	global []app.Event
}

func (r *recorder) Send(connID string, event app.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = make(map[string][]app.Event)
	}
	r.sent[connID] = append(r.sent[connID], event)
}

func (r *recorder) SendAll(event app.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = append(r.global, event)
}

func (r *recorder) eventsFor(connID, eventType string) []app.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []app.Event
	for _, ev := range r.sent[connID] {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) broadcastCount(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.global {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}
