package game

import (
	"sort"
)

var netWorthMilestones = []float64{
	50_000,
	100_000,
	250_000,
	500_000,
	1_000_000,
	2_500_000,
	5_000_000,
	10_000_000,
}

// NetWorth is the player's balance, plus completed orders revalued at
// today's prices, plus a quarter of their company's pool.
func (s *Simulation) NetWorth() float64 {
	p := s.state.Player
	total := p.Balance
	for _, o := range s.state.Orders {
		if !o.Completed {
			continue
		}
		if r, ok := s.state.Resources[o.Resource]; ok {
			total += float64(o.Qty) * Price(r, o.Tier)
		}
	}
	if c := s.state.company(p.CompanyID); c != nil {
		total += CompanyShare * c.NetWorth
	}
	return total
}

func (s *Simulation) checkNetWorthMilestone() {
	nw := s.NetWorth()
	p := s.state.Player
	reached := 0.0
	for _, m := range netWorthMilestones {
		if nw >= m {
			reached = m
		}
	}
	if reached <= p.NetWorthMilestone {
		return
	}
	p.NetWorthMilestone = reached
	s.emit(Event{Kind: EventNetWorthMilestone, Player: p.Name, NetWorth: nw})
}

// LeaderboardRow is one ranked entry.
type LeaderboardRow struct {
	Rank     int     `json:"rank"`
	Name     string  `json:"name"`
	Level    int     `json:"level,omitempty"`
	NetWorth float64 `json:"net_worth"`
	You      bool    `json:"you,omitempty"`
}

// Leaderboard is the combined player and company ranking.
type Leaderboard struct {
	Players   []LeaderboardRow `json:"players"`
	Companies []LeaderboardRow `json:"companies"`
}

const (
	leaderboardPlayers   = 10
	leaderboardCompanies = 6
)

// Leaderboard ranks the first server players with the local player, and the
// first server companies, by net worth.
func (s *Simulation) Leaderboard() Leaderboard {
	lb := Leaderboard{Players: []LeaderboardRow{}, Companies: []LeaderboardRow{}}
	for i, sp := range s.server.Players {
		if i == leaderboardPlayers {
			break
		}
		lb.Players = append(lb.Players, LeaderboardRow{Name: sp.Name, Level: sp.Level, NetWorth: sp.NetWorth})
	}
	p := s.state.Player
	lb.Players = append(lb.Players, LeaderboardRow{Name: p.Name, Level: p.Level, NetWorth: s.NetWorth(), You: true})
	for i, sc := range s.server.Companies {
		if i == leaderboardCompanies {
			break
		}
		lb.Companies = append(lb.Companies, LeaderboardRow{Name: sc.Name, NetWorth: sc.NetWorth})
	}
	rank(lb.Players)
	rank(lb.Companies)
	return lb
}

func rank(rows []LeaderboardRow) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].NetWorth > rows[j].NetWorth })
	for i := range rows {
		rows[i].Rank = i + 1
	}
}
