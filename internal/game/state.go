package game

import (
	"time"

	"oremarket/internal/catalog"
)

type OwnerType string

const (
	OwnerPlayer  OwnerType = "player"
	OwnerCompany OwnerType = "company"
)

// OrderMode selects solo-scale or company bulk sizing.
type OrderMode string

const (
	ModeSolo    OrderMode = "solo"
	ModeCompany OrderMode = "company"
)

// Resource is one ore in the registry: its static definition plus the
// mutable market fields.
type Resource struct {
	Key        string  `json:"key"`
	Display    string  `json:"display"`
	Symbol     string  `json:"symbol"`
	BaseMin    float64 `json:"baseMin"`
	BaseMax    float64 `json:"baseMax"`
	Demand     float64 `json:"demand"`
	Commonness float64 `json:"commonness"`
	Volatility float64 `json:"volatility"`
	CrashDepth float64 `json:"crashDepth"`
	Recovery   float64 `json:"recovery"`
	MaxSupply  float64 `json:"maxSupply"`

	StockLevel      float64   `json:"stockLevel"`
	EventMultiplier float64   `json:"eventMultiplier"`
	History         []float64 `json:"history"`
}

func newResource(key string, o catalog.Ore) *Resource {
	r := &Resource{Key: key, EventMultiplier: 1, History: []float64{}}
	r.applyDefinition(o)
	r.StockLevel = o.StockLevel
	if r.StockLevel <= 0 {
		r.StockLevel = catalog.DefaultStockLevel
	}
	r.StockLevel = clamp(r.StockLevel, MinStockLevel, MaxStockLevel)
	return r
}

// applyDefinition replaces the static fields and keeps market state.
func (r *Resource) applyDefinition(o catalog.Ore) {
	r.Display = o.Display
	r.Symbol = o.Symbol
	r.BaseMin = o.Min()
	r.BaseMax = o.Max()
	r.Demand = o.Demand
	r.Commonness = o.Commonness
	r.Volatility = o.Volatility
	r.CrashDepth = o.CrashDepth
	r.Recovery = o.Recovery
	r.MaxSupply = o.MaxSupply
}

func (r *Resource) pushHistory(price float64) {
	r.History = append(r.History, price)
	if over := len(r.History) - MaxHistory; over > 0 {
		r.History = append([]float64(nil), r.History[over:]...)
	}
}

// Order is a request for a quantity of one resource.
type Order struct {
	ID            string     `json:"id"`
	Resource      string     `json:"resource"`
	Tier          float64    `json:"tier"`
	Qty           int64      `json:"qty"`
	PriceAtCreate float64    `json:"priceAtCreate"`
	Total         float64    `json:"total"`
	LockedPrice   float64    `json:"lockedPrice"`
	Accepted      bool       `json:"accepted"`
	Completed     bool       `json:"completed"`
	OwnerType     OwnerType  `json:"ownerType"`
	CompanyID     string     `json:"companyId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	AcceptedAt    *time.Time `json:"acceptedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	FinalPayout   float64    `json:"finalPayout,omitempty"`
}

// Status names the lifecycle state.
func (o *Order) Status() string {
	switch {
	case o.Completed:
		return "completed"
	case o.Accepted:
		return "accepted"
	default:
		return "pending"
	}
}

// Investment is a buy-in on a resource by the player or a company.
type Investment struct {
	ID        string    `json:"id"`
	OwnerType OwnerType `json:"ownerType"`
	OwnerID   string    `json:"ownerId"`
	Resource  string    `json:"resource"`
	Qty       int64     `json:"qty"`
	BuyPrice  float64   `json:"buyPrice"`
	Amount    float64   `json:"amount"`
	BuyTime   time.Time `json:"buyTime"`
}

// Company is a shared fund pool.
type Company struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	NetWorth    float64   `json:"netWorth"`
	Members     []string  `json:"members"`
	External    bool      `json:"external,omitempty"`
	PFMilestone int       `json:"pfMilestone,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (c *Company) hasMember(name string) bool {
	for _, m := range c.Members {
		if m == name {
			return true
		}
	}
	return false
}

func (c *Company) removeMember(name string) {
	kept := c.Members[:0]
	for _, m := range c.Members {
		if m != name {
			kept = append(kept, m)
		}
	}
	c.Members = kept
}

// Player is the local player.
type Player struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Balance           float64 `json:"balance"`
	XP                int64   `json:"xp"`
	Level             int     `json:"level"`
	CompanyID         string  `json:"companyId,omitempty"`
	NetWorthMilestone float64 `json:"netWorthMilestone,omitempty"`
}

// Settings are the player-adjustable loop options.
type Settings struct {
	AutoTick   bool   `json:"autoTick"`
	AutoOrders bool   `json:"autoOrders"`
	TickMs     int64  `json:"tickMs"`
	Rarity     string `json:"rarity"`
}

// State is the full persisted simulation state.
type State struct {
	Version       int                  `json:"version"`
	Player        *Player              `json:"player"`
	Resources     map[string]*Resource `json:"resources"`
	Orders        []*Order             `json:"orders"`
	Companies     []*Company           `json:"companies"`
	Investments   []*Investment        `json:"investments"`
	Shocks        []*Shock             `json:"shocks"`
	Settings      Settings             `json:"settings"`
	LastAutoOrder time.Time            `json:"lastAutoOrder"`
	LastTick      time.Time            `json:"lastTick"`
}

const stateVersion = 2

func (st *State) company(id string) *Company {
	if id == "" {
		return nil
	}
	for _, c := range st.Companies {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (st *State) orderIndex(id string) int {
	for i, o := range st.Orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func (st *State) investmentIndex(id string) int {
	for i, inv := range st.Investments {
		if inv.ID == id {
			return i
		}
	}
	return -1
}
