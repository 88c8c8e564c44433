package engine

import (
	rand "math/rand/v2"
)

// EffectKind discriminates the event effect variants
type EffectKind string

const (
	EffectCoinChange    EffectKind = "COIN_CHANGE"
	EffectRuleChange    EffectKind = "RULE_CHANGE"
	EffectIncomeBoost   EffectKind = "INCOME_BOOST"
	EffectWaiveFoodCost EffectKind = "WAIVE_FOOD_COST"
)

// Effect is the tagged effect descriptor of an event card.
//
//   - COIN_CHANGE: Value coins against Category; CategoryTotal targets the
//     liquid balance. ParticipantChoice puts every participant on a
//     distribute-loss decision, Coverable on a cover-loss decision.
//   - RULE_CHANGE: Category (short or long) earns income at NewRatio for
//     this round only.
//   - INCOME_BOOST: Value added to next round's income.
//   - WAIVE_FOOD_COST: next round's food cost is zero.
type Effect struct {
	Kind              EffectKind `json:"kind"`
	Category          Category   `json:"category,omitempty"`
	Value             int        `json:"value,omitempty"`
	NewRatio          int        `json:"newRatio,omitempty"`
	ParticipantChoice bool       `json:"isParticipantChoice,omitempty"`
	Coverable         bool       `json:"isCoverable,omitempty"`
}

// Event is an immutable catalog entry drawn once per round
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Effect      Effect `json:"effect"`
}

// Catalog is the pool of event cards a round's event is drawn from
type Catalog struct {
	events []Event
}

// NewCatalog creates a catalog from the given events
func NewCatalog(events []Event) *Catalog {
	return &Catalog{events: append([]Event(nil), events...)}
}

// DefaultCatalog returns the built-in pool of ten event cards
func DefaultCatalog() *Catalog {
	return NewCatalog([]Event{
		{
			ID:          "event-01",
			Title:       "Fire!",
			Description: "You must lose 5 coins. Choose which categories to deduct from.",
			Effect:      Effect{Kind: EffectCoinChange, Category: CategoryTotal, Value: -5, ParticipantChoice: true},
		},
		{
			ID:          "event-02",
			Title:       "Interest Rate Change",
			Description: "Short-term investment rule change for this round: every 4 coins = +1 income.",
			Effect:      Effect{Kind: EffectRuleChange, Category: CategoryShort, NewRatio: 4},
		},
		{
			ID:          "event-03",
			Title:       "Dividend Cut",
			Description: "Long-term investment rule change for this round: every 5 coins = +1 income.",
			Effect:      Effect{Kind: EffectRuleChange, Category: CategoryLong, NewRatio: 5},
		},
		{
			ID:          "event-04",
			Title:       "Found a Wallet",
			Description: "You receive a reward of 3 coins.",
			Effect:      Effect{Kind: EffectCoinChange, Category: CategoryTotal, Value: 3},
		},
		{
			ID:          "event-05",
			Title:       "Scammed!",
			Description: "Lose 3 coins from short-term. You can use your emergency fund to cover this loss.",
			Effect:      Effect{Kind: EffectCoinChange, Category: CategoryShort, Value: -3, Coverable: true},
		},
		{
			ID:          "event-06",
			Title:       "Inflation",
			Description: "Lose 2 coins from long-term. You can use your emergency fund to cover this loss.",
			Effect:      Effect{Kind: EffectCoinChange, Category: CategoryLong, Value: -2, Coverable: true},
		},
		{
			ID:          "event-07",
			Title:       "Friend Buys Lunch",
			Description: "Receive 3 coins for food/housing. Added to your total.",
			Effect:      Effect{Kind: EffectCoinChange, Category: CategoryTotal, Value: 3},
		},
		{
			ID:          "event-08",
			Title:       "Inheritance",
			Description: "Your income for the next round is boosted by 10 coins.",
			Effect:      Effect{Kind: EffectIncomeBoost, Value: 10},
		},
		{
			ID:          "event-09",
			Title:       "Friend Pays You Back",
			Description: "Receive 2 coins.",
			Effect:      Effect{Kind: EffectCoinChange, Category: CategoryTotal, Value: 2},
		},
		{
			ID:          "event-10",
			Title:       "Free Food for a Year!",
			Description: "Your food/housing cost is waived for the next round.",
			Effect:      Effect{Kind: EffectWaiveFoodCost},
		},
	})
}

// Len returns the number of events in the catalog
func (c *Catalog) Len() int {
	return len(c.events)
}

// Events returns a copy of the catalog's events
func (c *Catalog) Events() []Event {
	return append([]Event(nil), c.events...)
}

// Add appends an event to the catalog
func (c *Catalog) Add(ev Event) {
	c.events = append(c.events, ev)
}

// Draw picks an event uniformly at random
func (c *Catalog) Draw(rng *rand.Rand) Event {
	return c.events[rng.IntN(len(c.events))]
}
