package game

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ProsperityFactor is 1 + log2(1 + netWorth/10000), never below 1. A nil
// company has factor 1.
func ProsperityFactor(c *Company) float64 {
	if c == nil {
		return 1
	}
	pf := 1 + math.Log2(1+c.NetWorth/PFScale)
	if !finite(pf) || pf < 1 {
		return 1
	}
	return pf
}

// checkPFMilestone notifies the first time a company's factor crosses each
// whole number from 2 upward.
func (s *Simulation) checkPFMilestone(c *Company, before float64) {
	pf := ProsperityFactor(c)
	whole := int(math.Floor(pf))
	if whole < 2 || whole <= c.PFMilestone || pf <= before {
		return
	}
	c.PFMilestone = whole
	s.emit(Event{Kind: EventPFMilestone, Company: c.Name, PF: pf})
}

// CreateCompany charges the founding fee and makes the player the sole
// member. The player leaves any company they were in.
func (s *Simulation) CreateCompany(now time.Time, name string) (*Company, error) {
	name = strings.TrimSpace(name)
	if err := validateEntityName(name); err != nil {
		return nil, err
	}
	p := s.state.Player
	if p.Balance < CompanyFee {
		return nil, fmt.Errorf("%w: founding a company costs %.0f", ErrInsufficientFunds, CompanyFee)
	}
	p.Balance -= CompanyFee
	s.leaveCurrent()
	c := &Company{
		ID:        newID("c"),
		Name:      name,
		Members:   []string{p.Name},
		CreatedAt: now,
	}
	s.state.Companies = append(s.state.Companies, c)
	p.CompanyID = c.ID
	s.emit(Event{Kind: EventCompanyCreated, Company: name, Player: p.Name})
	return c, nil
}

// adopt returns the local company with id, cloning a stub from the server
// listing when only the listing knows it.
func (s *Simulation) adopt(now time.Time, id string) (*Company, error) {
	if c := s.state.company(id); c != nil {
		return c, nil
	}
	for _, sc := range s.server.Companies {
		if sc.ID != id {
			continue
		}
		c := &Company{
			ID:        sc.ID,
			Name:      sc.Name,
			NetWorth:  math.Max(0, sc.NetWorth),
			Members:   []string{},
			External:  true,
			CreatedAt: now,
		}
		s.state.Companies = append(s.state.Companies, c)
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCompanyNotFound, id)
}

// JoinCompany adds the player to a company. Joining twice is a no-op.
func (s *Simulation) JoinCompany(now time.Time, id string) (*Company, error) {
	c, err := s.adopt(now, id)
	if err != nil {
		return nil, err
	}
	p := s.state.Player
	if p.CompanyID != c.ID {
		s.leaveCurrent()
	}
	if !c.hasMember(p.Name) {
		c.Members = append(c.Members, p.Name)
	}
	p.CompanyID = c.ID
	return c, nil
}

// LeaveCompany removes the player from their company. The company keeps its
// funds.
func (s *Simulation) LeaveCompany() error {
	if s.state.Player.CompanyID == "" {
		return ErrNoCompany
	}
	s.leaveCurrent()
	return nil
}

func (s *Simulation) leaveCurrent() {
	p := s.state.Player
	if c := s.state.company(p.CompanyID); c != nil {
		c.removeMember(p.Name)
	}
	p.CompanyID = ""
}

// Transfer moves funds from the player to a company's pool. It cannot be
// reversed.
func (s *Simulation) Transfer(now time.Time, id string, amount float64) (*Company, error) {
	if !validAmount(amount) {
		return nil, ErrInvalidAmount
	}
	p := s.state.Player
	if p.Balance < amount {
		return nil, fmt.Errorf("%w: balance is %.2f", ErrInsufficientFunds, p.Balance)
	}
	c, err := s.adopt(now, id)
	if err != nil {
		return nil, err
	}
	before := ProsperityFactor(c)
	p.Balance -= amount
	c.NetWorth += amount
	s.emit(Event{Kind: EventTransfer, Player: p.Name, Company: c.Name, Amount: amount})
	s.checkPFMilestone(c, before)
	s.settleCompanies()
	return c, nil
}

// DissolveCompany winds up a company the player belongs to.
func (s *Simulation) DissolveCompany(id string) error {
	c := s.state.company(id)
	if c == nil {
		return fmt.Errorf("%w: %s", ErrCompanyNotFound, id)
	}
	if !c.hasMember(s.state.Player.Name) && s.state.Player.CompanyID != c.ID {
		return ErrNotMember
	}
	s.dissolve(c)
	return nil
}

// dissolve liquidates the company's investments into its pool, drops its
// open orders, detaches the player and removes the company. Remaining funds
// are forfeited.
func (s *Simulation) dissolve(c *Company) {
	kept := s.state.Investments[:0]
	for _, inv := range s.state.Investments {
		if inv.OwnerType == OwnerCompany && inv.OwnerID == c.ID {
			c.NetWorth += s.investmentValue(inv)
			continue
		}
		kept = append(kept, inv)
	}
	s.state.Investments = kept

	orders := s.state.Orders[:0]
	for _, o := range s.state.Orders {
		if o.OwnerType == OwnerCompany && o.CompanyID == c.ID && !o.Completed {
			continue
		}
		orders = append(orders, o)
	}
	s.state.Orders = orders

	if s.state.Player.CompanyID == c.ID {
		s.state.Player.CompanyID = ""
	}
	for i, cc := range s.state.Companies {
		if cc == c {
			s.state.Companies = append(s.state.Companies[:i], s.state.Companies[i+1:]...)
			break
		}
	}
	s.emit(Event{Kind: EventCompanyDestroyed, Company: c.Name, NetWorth: c.NetWorth})
}

// settleCompanies dissolves every company whose pool has gone negative.
func (s *Simulation) settleCompanies() {
	var broke []*Company
	for _, c := range s.state.Companies {
		if c.NetWorth < 0 {
			broke = append(broke, c)
		}
	}
	for _, c := range broke {
		s.dissolve(c)
	}
}

// CompanyListing is a company as shown in the directory.
type CompanyListing struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	NetWorth float64  `json:"net_worth"`
	PF       float64  `json:"pf"`
	Members  []string `json:"members"`
	Local    bool     `json:"local"`
	Joined   bool     `json:"joined"`
}

// Companies merges local companies with server-listed ones not yet adopted.
func (s *Simulation) Companies() []CompanyListing {
	out := make([]CompanyListing, 0, len(s.state.Companies)+len(s.server.Companies))
	seen := make(map[string]bool)
	for _, c := range s.state.Companies {
		seen[c.ID] = true
		out = append(out, CompanyListing{
			ID:       c.ID,
			Name:     c.Name,
			NetWorth: c.NetWorth,
			PF:       ProsperityFactor(c),
			Members:  append([]string(nil), c.Members...),
			Local:    true,
			Joined:   s.state.Player.CompanyID == c.ID,
		})
	}
	for _, sc := range s.server.Companies {
		if seen[sc.ID] {
			continue
		}
		c := &Company{NetWorth: sc.NetWorth}
		out = append(out, CompanyListing{
			ID:       sc.ID,
			Name:     sc.Name,
			NetWorth: sc.NetWorth,
			PF:       ProsperityFactor(c),
			Members:  []string{},
		})
	}
	return out
}
