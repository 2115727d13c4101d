package game

import "time"

type Dashboard struct {
	Player      PlayerView       `json:"player"`
	NetWorth    float64          `json:"net_worth"`
	Company     *CompanyListing  `json:"company,omitempty"`
	Market      []ResourceView   `json:"market"`
	Orders      []OrderView      `json:"orders"`
	Investments []InvestmentView `json:"investments"`
	Settings    Settings         `json:"settings"`
	LastTick    time.Time        `json:"last_tick"`
}

type PlayerView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Balance     float64   `json:"balance"`
	XP          int64     `json:"xp"`
	Level       int       `json:"level"`
	NextLevelXP int64     `json:"next_level_xp"`
	Tiers       []float64 `json:"tiers"`
	CompanyID   string    `json:"company_id,omitempty"`
}

type ResourceView struct {
	Key             string    `json:"key"`
	Display         string    `json:"display"`
	Symbol          string    `json:"symbol"`
	Price           float64   `json:"price"`
	StockLevel      float64   `json:"stock_level"`
	Scarcity        float64   `json:"scarcity"`
	EventMultiplier float64   `json:"event_multiplier"`
	History         []float64 `json:"history,omitempty"`
}

type OrderView struct {
	ID            string     `json:"id"`
	Resource      string     `json:"resource"`
	Display       string     `json:"display"`
	Tier          float64    `json:"tier"`
	Qty           int64      `json:"qty"`
	Status        string     `json:"status"`
	OwnerType     OwnerType  `json:"owner_type"`
	CompanyID     string     `json:"company_id,omitempty"`
	PriceAtCreate float64    `json:"price_at_create"`
	Total         float64    `json:"total"`
	LockedPrice   float64    `json:"locked_price,omitempty"`
	CurrentPayout float64    `json:"current_payout"`
	FinalPayout   float64    `json:"final_payout,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

type InvestmentView struct {
	ID           string    `json:"id"`
	OwnerType    OwnerType `json:"owner_type"`
	OwnerID      string    `json:"owner_id"`
	Resource     string    `json:"resource"`
	Qty          int64     `json:"qty"`
	BuyPrice     float64   `json:"buy_price"`
	CurrentPrice float64   `json:"current_price"`
	Value        float64   `json:"value"`
	Unrealized   float64   `json:"unrealized"`
	BuyTime      time.Time `json:"buy_time"`
}

func (s *Simulation) resourceView(r *Resource, withHistory bool) ResourceView {
	v := ResourceView{
		Key:             r.Key,
		Display:         r.Display,
		Symbol:          r.Symbol,
		Price:           Price(r, 1),
		StockLevel:      r.StockLevel,
		Scarcity:        Scarcity(r),
		EventMultiplier: r.EventMultiplier,
	}
	if withHistory {
		v.History = append([]float64(nil), r.History...)
	}
	return v
}

// Market lists every resource in key order.
func (s *Simulation) Market() []ResourceView {
	out := make([]ResourceView, 0, len(s.state.Resources))
	for _, k := range s.resourceKeys() {
		out = append(out, s.resourceView(s.state.Resources[k], false))
	}
	return out
}

// ResourceDetail includes the price history.
func (s *Simulation) ResourceDetail(key string) (ResourceView, error) {
	r, err := s.Resource(key)
	if err != nil {
		return ResourceView{}, err
	}
	return s.resourceView(r, true), nil
}

func (s *Simulation) orderView(o *Order) OrderView {
	v := OrderView{
		ID:            o.ID,
		Resource:      o.Resource,
		Display:       o.Resource,
		Tier:          o.Tier,
		Qty:           o.Qty,
		Status:        o.Status(),
		OwnerType:     o.OwnerType,
		CompanyID:     o.CompanyID,
		PriceAtCreate: o.PriceAtCreate,
		Total:         o.Total,
		LockedPrice:   o.LockedPrice,
		FinalPayout:   o.FinalPayout,
		CreatedAt:     o.CreatedAt,
		CompletedAt:   o.CompletedAt,
	}
	if r, ok := s.state.Resources[o.Resource]; ok {
		v.Display = r.Display
		if !o.Completed {
			mult := 1.0
			if o.OwnerType == OwnerCompany {
				mult = ProsperityFactor(s.state.company(o.CompanyID))
			}
			v.CurrentPayout = Price(r, o.Tier) * float64(o.Qty) * mult
		}
	}
	return v
}

// Orders lists the board newest first.
func (s *Simulation) Orders() []OrderView {
	out := make([]OrderView, 0, len(s.state.Orders))
	for _, o := range s.state.Orders {
		out = append(out, s.orderView(o))
	}
	return out
}

// Investments lists open investments with their unrealized P&L.
func (s *Simulation) Investments() []InvestmentView {
	out := make([]InvestmentView, 0, len(s.state.Investments))
	for _, inv := range s.state.Investments {
		v := InvestmentView{
			ID:           inv.ID,
			OwnerType:    inv.OwnerType,
			OwnerID:      inv.OwnerID,
			Resource:     inv.Resource,
			Qty:          inv.Qty,
			BuyPrice:     inv.BuyPrice,
			CurrentPrice: inv.BuyPrice,
			Value:        s.investmentValue(inv),
			Unrealized:   s.UnrealizedPL(inv),
			BuyTime:      inv.BuyTime,
		}
		if r, ok := s.state.Resources[inv.Resource]; ok {
			v.CurrentPrice = Price(r, 1)
		}
		out = append(out, v)
	}
	return out
}

// Dashboard summarises the whole game for one screen.
func (s *Simulation) Dashboard() Dashboard {
	p := s.state.Player
	d := Dashboard{
		Player: PlayerView{
			ID:          p.ID,
			Name:        p.Name,
			Balance:     p.Balance,
			XP:          p.XP,
			Level:       p.Level,
			NextLevelXP: s.NextLevelXP(),
			Tiers:       UnlockedTiers(p.Level),
			CompanyID:   p.CompanyID,
		},
		NetWorth:    s.NetWorth(),
		Market:      s.Market(),
		Orders:      s.Orders(),
		Investments: s.Investments(),
		Settings:    s.state.Settings,
		LastTick:    s.state.LastTick,
	}
	for _, c := range s.Companies() {
		if c.Joined {
			c := c
			d.Company = &c
			break
		}
	}
	return d
}
