package room

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/ThakurMayank5/Telestrations-Server/internal/errors"
)

// WordSource supplies the seed prompts of a new game.
type WordSource interface {
	Draw(n int) []string
}

type entry struct {
	mu   sync.Mutex
	room *Room
	gone bool
}

// Store owns every room, keyed by code. Each room has its own lock so
// mutations of one room never interleave while distinct rooms proceed
// independently.
//
// Lock order: an entry lock may be held while taking the store lock, never
// the reverse.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]*entry
	words    WordSource
	limits   Limits
	newCode  func() string
	onRemove []func(code string)
	logger   *zap.Logger
}

func NewStore(words WordSource, limits Limits, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		rooms:   make(map[string]*entry),
		words:   words,
		limits:  limits.withDefaults(),
		newCode: randomCode,
		logger:  logger,
	}
}

// OnRemove registers fn to run whenever a room leaves the store. Hooks run
// while the room's lock is held.
func (s *Store) OnRemove(fn func(code string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemove = append(s.onRemove, fn)
}

// SetLimits changes the limits applied to rooms created from now on.
func (s *Store) SetLimits(limits Limits) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits = limits.withDefaults()
}

// CreateRoom allocates a fresh code and a lobby hosted by hostConn.
func (s *Store) CreateRoom(hostConn, hostName string, opts Options) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := s.newCode()
	for s.rooms[code] != nil {
		code = s.newCode()
	}
	r := New(code, hostConn, hostName, opts, s.limits)
	s.rooms[code] = &entry{room: r}

	s.logger.Info("room created",
		zap.String("room", code),
		zap.String("host", hostName),
		zap.Bool("public", opts.IsPublic))
	return r.Snapshot()
}

func (s *Store) get(code string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[code]
}

// Do runs fn with exclusive access to the room. A room left without players
// is removed from the store once fn returns.
func (s *Store) Do(code string, fn func(r *Room) error) error {
	e := s.get(code)
	if e == nil {
		return apperrors.New(apperrors.ErrRoomNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone {
		return apperrors.New(apperrors.ErrRoomNotFound)
	}

	err := fn(e.room)
	if len(e.room.Players) == 0 {
		s.removeLocked(code, e, "empty")
	}
	return err
}

// removeLocked deletes the room. The caller holds e.mu.
func (s *Store) removeLocked(code string, e *entry, reason string) {
	e.gone = true
	s.mu.Lock()
	if s.rooms[code] == e {
		delete(s.rooms, code)
	}
	hooks := append([]func(string){}, s.onRemove...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(code)
	}
	s.logger.Info("room removed", zap.String("room", code), zap.String("reason", reason))
}

// DeleteIfAbandoned removes the room when none of its players is connected
// and waiting, checked under the room lock, reports false. A nil waiting
// counts as false.
func (s *Store) DeleteIfAbandoned(code string, waiting func() bool) bool {
	e := s.get(code)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone || e.room.ConnectedCount() > 0 {
		return false
	}
	if waiting != nil && waiting() {
		return false
	}
	s.removeLocked(code, e, "abandoned")
	return true
}

func (s *Store) Exists(code string) bool {
	return s.get(code) != nil
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Start begins a game on a room already held through Do.
func (s *Store) Start(r *Room) error {
	return r.Start(s.words.Draw)
}

func (s *Store) Snapshot(code string) (Snapshot, error) {
	var snap Snapshot
	err := s.Do(code, func(r *Room) error {
		snap = r.Snapshot()
		return nil
	})
	return snap, err
}

func (s *Store) JoinRoom(code, conn, name string) (Snapshot, error) {
	var snap Snapshot
	err := s.Do(code, func(r *Room) error {
		if err := r.Join(conn, name); err != nil {
			return err
		}
		snap = r.Snapshot()
		return nil
	})
	return snap, err
}

func (s *Store) RemovePlayer(code, conn string) (Removal, error) {
	var res Removal
	err := s.Do(code, func(r *Room) error {
		removed, ok := r.Remove(conn)
		if !ok {
			return apperrors.New(apperrors.ErrPlayerNotFound)
		}
		res = removed
		return nil
	})
	return res, err
}

func (s *Store) ReconnectPlayer(code, name, conn string) (Snapshot, error) {
	var snap Snapshot
	err := s.Do(code, func(r *Room) error {
		if _, err := r.Reconnect(name, conn); err != nil {
			return err
		}
		snap = r.Snapshot()
		return nil
	})
	return snap, err
}

func (s *Store) StartGame(code string) error {
	return s.Do(code, s.Start)
}

func (s *Store) PlayerTask(code, conn string) (Task, error) {
	var task Task
	err := s.Do(code, func(r *Room) error {
		t, err := r.TaskFor(conn)
		task = t
		return err
	})
	return task, err
}

func (s *Store) SubmitResponse(code, conn, payload string) (bool, error) {
	var all bool
	err := s.Do(code, func(r *Room) error {
		done, err := r.Submit(conn, payload)
		all = done
		return err
	})
	return all, err
}

func (s *Store) NextRound(code string) (bool, error) {
	var over bool
	err := s.Do(code, func(r *Room) error {
		if r.Status != StatusPlaying {
			return apperrors.New(apperrors.ErrGameNotInProgress)
		}
		over = r.NextRound()
		return nil
	})
	return over, err
}

func (s *Store) Results(code string) ([]ChainResult, error) {
	var out []ChainResult
	err := s.Do(code, func(r *Room) error {
		if r.Status != StatusResults {
			return apperrors.New(apperrors.ErrResultsUnavailable)
		}
		out = r.Results()
		return nil
	})
	return out, err
}

func (s *Store) ReturnToLobby(code string) error {
	return s.Do(code, func(r *Room) error {
		r.ResetToLobby()
		return nil
	})
}

// PublicLobbies lists public rooms still waiting in the lobby, by code.
func (s *Store) PublicLobbies() []LobbySummary {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.rooms))
	for _, e := range s.rooms {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]LobbySummary, 0)
	for _, e := range entries {
		e.mu.Lock()
		r := e.room
		if !e.gone && r.IsPublic && r.Status == StatusLobby && len(r.Players) < r.limits.MaxPlayers {
			out = append(out, r.Summary())
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
