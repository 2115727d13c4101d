package game

import (
	"fmt"
	"math"
	"time"
)

// InvestRequest is a buy-in on a resource.
type InvestRequest struct {
	Resource string    `json:"resource"`
	Amount   float64   `json:"amount"`
	Owner    OwnerType `json:"owner"`
}

type impactBand struct {
	Spike    float64
	SpikeFor time.Duration
	Crash    float64
}

// bandFor sizes the market impact of an investment by amount.
func bandFor(amount float64) impactBand {
	switch {
	case amount < 5_000:
		return impactBand{Spike: 0.05, SpikeFor: 8 * time.Second, Crash: 0.05}
	case amount < 50_000:
		return impactBand{Spike: 0.15, SpikeFor: 15 * time.Second, Crash: 0.12}
	default:
		return impactBand{Spike: 0.35, SpikeFor: 25 * time.Second, Crash: 0.25}
	}
}

const investRecovery = 30 * time.Second

// Invest buys units at a discount to the current tier-1 price and debits
// the full amount from the player or the player's company. Nothing changes
// unless every check passes.
func (s *Simulation) Invest(now time.Time, req InvestRequest) (*Investment, error) {
	r, err := s.Resource(req.Resource)
	if err != nil {
		return nil, err
	}
	if !validAmount(req.Amount) {
		return nil, ErrInvalidAmount
	}
	owner := req.Owner
	if owner == "" {
		owner = OwnerPlayer
	}
	if owner != OwnerPlayer && owner != OwnerCompany {
		return nil, ErrInvalidOwner
	}

	p := s.state.Player
	var comp *Company
	if owner == OwnerCompany {
		if p.CompanyID == "" {
			return nil, ErrNoCompany
		}
		if comp = s.state.company(p.CompanyID); comp == nil {
			return nil, ErrCompanyNotFound
		}
	}

	buy := Price(r, 1) * InvestDiscount
	qty := int64(math.Floor(req.Amount / buy))
	if qty < 1 {
		return nil, ErrBelowOneUnit
	}

	ownerID := p.ID
	if comp != nil {
		if comp.NetWorth < req.Amount {
			return nil, fmt.Errorf("%w: company has %.2f", ErrInsufficientFunds, comp.NetWorth)
		}
		comp.NetWorth -= req.Amount
		ownerID = comp.ID
	} else {
		if p.Balance < req.Amount {
			return nil, fmt.Errorf("%w: balance is %.2f", ErrInsufficientFunds, p.Balance)
		}
		p.Balance -= req.Amount
	}

	inv := &Investment{
		ID:        newID("inv"),
		OwnerType: owner,
		OwnerID:   ownerID,
		Resource:  r.Key,
		Qty:       qty,
		BuyPrice:  buy,
		Amount:    req.Amount,
		BuyTime:   now,
	}
	s.state.Investments = append(s.state.Investments, inv)
	s.scheduleImpact(now, inv)
	s.emit(Event{Kind: EventInvestment, Player: p.Name, Amount: req.Amount, Ore: r.Key})
	return inv, nil
}

// scheduleImpact queues the spike and the crash that follows it. Stock
// levels are left alone.
func (s *Simulation) scheduleImpact(now time.Time, inv *Investment) {
	band := bandFor(inv.Amount)
	if inv.OwnerType == OwnerCompany {
		band.Spike *= 2
		band.Crash = math.Min(band.Crash*2, 0.9)
	}
	s.schedule(&Shock{
		Resource:  inv.Resource,
		Shape:     ShapeDecay,
		Magnitude: band.Spike,
		Start:     now,
		Duration:  band.SpikeFor,
		Steps:     defaultShockSteps,
		Source:    "investment",
	})
	s.schedule(&Shock{
		Resource:  inv.Resource,
		Shape:     ShapeCrash,
		Magnitude: band.Crash,
		Start:     now.Add(band.SpikeFor),
		Duration:  investRecovery,
		Steps:     defaultShockSteps,
		Source:    "investment",
	})
	s.Advance(now)
}

// SellInvestment closes an investment at the current price and returns the
// proceeds. A removed resource sells at its buy price; a vanished company's
// proceeds go to the player.
func (s *Simulation) SellInvestment(id string) (float64, error) {
	i := s.state.investmentIndex(id)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvestmentNotFound, id)
	}
	inv := s.state.Investments[i]
	proceeds := s.investmentValue(inv)

	if inv.OwnerType == OwnerCompany {
		if comp := s.state.company(inv.OwnerID); comp != nil {
			comp.NetWorth += proceeds
		} else {
			s.state.Player.Balance += proceeds
		}
	} else {
		s.state.Player.Balance += proceeds
	}
	s.state.Investments = append(s.state.Investments[:i], s.state.Investments[i+1:]...)
	return proceeds, nil
}

func (s *Simulation) investmentValue(inv *Investment) float64 {
	unit := inv.BuyPrice
	if r, ok := s.state.Resources[inv.Resource]; ok {
		unit = Price(r, 1)
	}
	return math.Round(unit * float64(inv.Qty))
}

// UnrealizedPL is the current value of an investment minus its cost basis.
func (s *Simulation) UnrealizedPL(inv *Investment) float64 {
	return s.investmentValue(inv) - inv.BuyPrice*float64(inv.Qty)
}
