package game

import "testing"

func TestCurveRequirements(t *testing.T) {
	cases := []struct {
		curve XPCurve
		level int
		want  int64
	}{
		{CurveExponential, 1, 100},
		{CurveExponential, 2, 125},
		{CurveExponential, 3, 156},
		{CurveQuadratic, 1, 50},
		{CurveQuadratic, 2, 200},
		{CurveQuadratic, 10, 5000},
	}
	for _, tc := range cases {
		if got := tc.curve.Required(tc.level); got != tc.want {
			t.Fatalf("%s Required(%d)=%d want %d", tc.curve, tc.level, got, tc.want)
		}
	}
}

func TestParseCurveDefaultsToExponential(t *testing.T) {
	if ParseCurve("Quadratic") != CurveQuadratic {
		t.Fatalf("expected quadratic")
	}
	if ParseCurve("linear") != CurveExponential {
		t.Fatalf("unknown curve should fall back to exponential")
	}
}

func TestLevelUpExactlyAtBoundary(t *testing.T) {
	sim := newTestSim(t, nil)
	p := sim.State().Player
	need := sim.Curve().Required(p.Level+1) - p.XP
	if gained := sim.AddXP(need); gained != 1 {
		t.Fatalf("gained %d levels want 1", gained)
	}
	if p.Level != 2 {
		t.Fatalf("level=%d want 2", p.Level)
	}
	if p.XP != sim.Curve().Required(2) {
		t.Fatalf("xp=%d want %d", p.XP, sim.Curve().Required(2))
	}
	if kinds := eventKinds(sim.Drain()); kinds[EventLevelUp] != 1 {
		t.Fatalf("expected one levelUp event, got %v", kinds)
	}
}

func TestLargeGrantJumpsSeveralLevels(t *testing.T) {
	sim := newTestSim(t, nil)
	p := sim.State().Player
	gained := sim.AddXP(10_000)
	if gained < 2 {
		t.Fatalf("expected a multi-level jump, gained %d", gained)
	}
	if p.Level != sim.Curve().LevelFor(p.XP) {
		t.Fatalf("level %d disagrees with LevelFor(%d)=%d", p.Level, p.XP, sim.Curve().LevelFor(p.XP))
	}
	if p.XP != 10_000 {
		t.Fatalf("xp=%d want 10000", p.XP)
	}
}
