package game

import (
	"math"
	"strings"
)

// XPCurve selects the level requirement function.
type XPCurve string

const (
	CurveQuadratic   XPCurve = "quadratic"
	CurveExponential XPCurve = "exponential"
)

// MaxLevel bounds the level-up loop.
const MaxLevel = 10_000

// ParseCurve defaults unknown names to the exponential curve.
func ParseCurve(name string) XPCurve {
	if XPCurve(strings.ToLower(strings.TrimSpace(name))) == CurveQuadratic {
		return CurveQuadratic
	}
	return CurveExponential
}

// Required is the cumulative XP needed to hold level.
func (c XPCurve) Required(level int) int64 {
	if level < 1 {
		level = 1
	}
	l := float64(level)
	if c == CurveQuadratic {
		return int64(math.Round(50 * l * l))
	}
	v := 100 * math.Pow(1.25, l-1)
	if v > math.MaxInt64/2 {
		return math.MaxInt64 / 2
	}
	return int64(math.Round(v))
}

// LevelFor is the highest level whose requirement for the next level is
// not yet met, starting at 1.
func (c XPCurve) LevelFor(xp int64) int {
	level := 1
	for level < MaxLevel && xp >= c.Required(level+1) {
		level++
	}
	return level
}

// addXP grants xp and levels the player up as many times as it covers.
// It returns the number of levels gained.
func (s *Simulation) addXP(amount int64) int {
	p := s.state.Player
	p.XP += amount
	if p.XP < 0 {
		p.XP = 0
	}
	gained := 0
	for p.Level < MaxLevel && p.XP >= s.curve.Required(p.Level+1) {
		p.Level++
		gained++
	}
	if gained > 0 {
		s.emit(Event{Kind: EventLevelUp, Player: p.Name, Level: p.Level})
	}
	return gained
}

// AddXP is the exported form used by hosts and tests.
func (s *Simulation) AddXP(amount int64) int {
	return s.addXP(amount)
}

// NextLevelXP is the total XP needed to reach the next level.
func (s *Simulation) NextLevelXP() int64 {
	return s.curve.Required(s.state.Player.Level + 1)
}
