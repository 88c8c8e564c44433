package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Phase represents the game's current position in the round cycle
type Phase string

const (
	PhaseWaitingForPlayers Phase = "WAITING_FOR_PLAYERS"
	PhaseAllocation        Phase = "ALLOCATION"
	PhaseEventDrawn        Phase = "EVENT_DRAWN"
	PhaseEventResolution   Phase = "EVENT_RESOLUTION"
	PhaseRoundEnd          Phase = "ROUND_END"
	PhaseGameOver          Phase = "GAME_OVER"
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// Category identifies a bucket of committed coins. CategoryTotal is only
// valid inside event effects, where it targets the liquid balance directly.
type Category string

const (
	CategoryFood      Category = "food"
	CategoryShort     Category = "short"
	CategoryLong      Category = "long"
	CategoryEmergency Category = "emergency"
	CategoryTotal     Category = "total"
)

// Allocation is a participant's proposed split of this round's budget
type Allocation struct {
	Food      int `json:"food"`
	Short     int `json:"short"`
	Long      int `json:"long"`
	Emergency int `json:"emergency"`
}

// Total returns the sum across all four categories
func (a Allocation) Total() int {
	return a.Food + a.Short + a.Long + a.Emergency
}

// Get returns the amount allocated to a category
func (a Allocation) Get(c Category) int {
	switch c {
	case CategoryFood:
		return a.Food
	case CategoryShort:
		return a.Short
	case CategoryLong:
		return a.Long
	case CategoryEmergency:
		return a.Emergency
	}
	return 0
}

// Set overwrites the amount allocated to a category
func (a *Allocation) Set(c Category, v int) {
	switch c {
	case CategoryFood:
		a.Food = v
	case CategoryShort:
		a.Short = v
	case CategoryLong:
		a.Long = v
	case CategoryEmergency:
		a.Emergency = v
	}
}

// Balances holds a participant's invested principal per category.
// Food is deliberately absent: food payments settle against the food
// balance, they are never banked.
type Balances struct {
	Short     int `json:"short"`
	Long      int `json:"long"`
	Emergency int `json:"emergency"`
}

// Total returns the sum of all invested balances
func (b Balances) Total() int {
	return b.Short + b.Long + b.Emergency
}

// Get returns the balance for a category
func (b Balances) Get(c Category) int {
	switch c {
	case CategoryShort:
		return b.Short
	case CategoryLong:
		return b.Long
	case CategoryEmergency:
		return b.Emergency
	}
	return 0
}

// Debit removes up to requested coins from a category and returns the
// amount actually removed. Balances never go negative.
func (b *Balances) Debit(c Category, requested int) int {
	if requested <= 0 {
		return 0
	}
	available := b.Get(c)
	paid := requested
	if paid > available {
		paid = available
	}
	switch c {
	case CategoryShort:
		b.Short -= paid
	case CategoryLong:
		b.Long -= paid
	case CategoryEmergency:
		b.Emergency -= paid
	}
	return paid
}

// Credit adds coins to a category
func (b *Balances) Credit(c Category, amount int) {
	switch c {
	case CategoryShort:
		b.Short += amount
	case CategoryLong:
		b.Long += amount
	case CategoryEmergency:
		b.Emergency += amount
	}
}

// Adjustment is an audit record of an automatic event effect applied to a
// participant's liquid coins or round allocation
type Adjustment struct {
	Category Category `json:"category"`
	From     int      `json:"from"`
	To       int      `json:"to"`
}

// ActionKind identifies the shape of decision a pending action demands
type ActionKind string

const (
	ActionDistributeLoss ActionKind = "DISTRIBUTE_LOSS"
	ActionCoverLoss      ActionKind = "COVER_SPECIFIC_LOSS"
	ActionAllocateBonus  ActionKind = "ALLOCATE_BONUS"
)

// PendingAction is a decision a participant owes before the round can close
type PendingAction struct {
	Kind           ActionKind `json:"kind"`
	Amount         int        `json:"amount"`
	TargetCategory Category   `json:"targetCategory,omitempty"` // COVER_SPECIFIC_LOSS only
}

// Participant is a player in the game
type Participant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LiquidCoins int    `json:"liquidCoins"`
	NextIncome  int    `json:"nextIncome"`
	RoundBudget int    `json:"roundBudget"`

	// FoodBalance is signed: positive is debt carried forward, negative is
	// pre-paid credit.
	FoodBalance  int      `json:"foodBalance"`
	EventDebt    int      `json:"eventDebt"`
	EventDebtLog []string `json:"eventDebtLog,omitempty"`

	Balances          Balances       `json:"categoryBalances"`
	CurrentAllocation *Allocation    `json:"currentAllocation,omitempty"`
	PendingAction     *PendingAction `json:"pendingAction,omitempty"`
	Adjustments       []Adjustment   `json:"allocationAdjustments,omitempty"`
	HasResolved       bool           `json:"hasResolved"`
	FoodCostWaived    bool           `json:"foodCostWaived"`

	LastRoundSummary []SummaryEntry `json:"lastRoundSummary,omitempty"`
}

// clone returns a deep copy of the participant
func (p *Participant) clone() *Participant {
	cp := *p
	if p.CurrentAllocation != nil {
		alloc := *p.CurrentAllocation
		cp.CurrentAllocation = &alloc
	}
	if p.PendingAction != nil {
		action := *p.PendingAction
		cp.PendingAction = &action
	}
	cp.EventDebtLog = append([]string(nil), p.EventDebtLog...)
	cp.Adjustments = append([]Adjustment(nil), p.Adjustments...)
	cp.LastRoundSummary = append([]SummaryEntry(nil), p.LastRoundSummary...)
	return &cp
}

// LeaderboardEntry is one row of the end-of-game leaderboard
type LeaderboardEntry struct {
	Name       string `json:"name"`
	TotalCoins int    `json:"totalCoins"`
}

// GameState is the single shared game record. All mutation goes through the
// store's transactional primitive; nothing outside a transaction may write it.
type GameState struct {
	Phase        Phase                   `json:"phase"`
	CurrentRound int                     `json:"currentRound"`
	Players      map[string]*Participant `json:"players"`
	GMAuthorized bool                    `json:"gmAuthorized"`
	CurrentEvent *Event                  `json:"currentEvent,omitempty"`
	LastModified time.Time               `json:"lastModifiedAt"`
	Leaderboard  []LeaderboardEntry      `json:"leaderboard"`
}

// NewGameState returns the initial state of a game
func NewGameState() *GameState {
	return &GameState{
		Phase:       PhaseWaitingForPlayers,
		Players:     make(map[string]*Participant),
		Leaderboard: []LeaderboardEntry{},
	}
}

// Clone returns a deep copy of the state. Transforms always run against a
// clone so a failed transaction leaves the committed record untouched.
func (s *GameState) Clone() *GameState {
	cp := *s
	cp.Players = make(map[string]*Participant, len(s.Players))
	for id, p := range s.Players {
		cp.Players[id] = p.clone()
	}
	if s.CurrentEvent != nil {
		ev := *s.CurrentEvent
		cp.CurrentEvent = &ev
	}
	cp.Leaderboard = append([]LeaderboardEntry(nil), s.Leaderboard...)
	return &cp
}

// Participant returns the participant with the given id
func (s *GameState) Participant(id string) (*Participant, error) {
	p, ok := s.Players[id]
	if !ok {
		return nil, fmt.Errorf("%w: participant %s", ErrNotFound, id)
	}
	return p, nil
}

// FindByName returns the participant with the given name, compared
// case-insensitively, or nil
func (s *GameState) FindByName(name string) *Participant {
	for _, p := range s.Players {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// sortedPlayers returns participants ordered by id so that transforms and
// summaries iterate deterministically
func (s *GameState) sortedPlayers() []*Participant {
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	players := make([]*Participant, 0, len(ids))
	for _, id := range ids {
		players = append(players, s.Players[id])
	}
	return players
}

// allAllocated reports whether every participant has submitted an allocation
func (s *GameState) allAllocated() bool {
	for _, p := range s.Players {
		if p.CurrentAllocation == nil {
			return false
		}
	}
	return true
}

// allResolved reports whether no participant still owes a pending decision
func (s *GameState) allResolved() bool {
	for _, p := range s.Players {
		if p.PendingAction != nil {
			return false
		}
	}
	return true
}
