package world

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fortiblox/critters/internal/types"
	"github.com/fortiblox/critters/pkg/species"
	"github.com/fortiblox/critters/pkg/vm"
)

// newTestEnv returns an empty w x h environment with no critters.
func newTestEnv(w, h int) *Environment {
	e := &Environment{
		width:  w,
		height: h,
		grid:   make([]int, w*h),
		rng:    NewRandom(1),
		log:    zerolog.Nop(),
	}
	for i := range e.grid {
		e.grid[i] = vacant
	}
	return e
}

// spawn adds a critter of s at p facing h.
func spawn(t *testing.T, e *Environment, s *species.Species, p types.Point, h types.Heading) *Critter {
	t.Helper()
	if _, ok := e.roster.Lookup(s.Name); !ok {
		e.roster = append(e.roster, s)
	}
	c := &Critter{ID: ID(len(e.critters)), Species: s, Heading: h, LastFed: NeverFed}
	e.critters = append(e.critters, c)
	if err := e.Place(c.ID, p); err != nil {
		t.Fatalf("Place(%d, %v) failed: %v", c.ID, p, err)
	}
	return c
}

func position(t *testing.T, c *Critter) types.Point {
	t.Helper()
	p, ok := c.Position()
	if !ok {
		t.Fatalf("critter %d is not on the grid", c.ID)
	}
	return p
}

func testRoster() species.Roster {
	return species.Roster{
		species.MustParse("Rover\nifenemy 0 4\nifrandom 5\nhop\neat\nleft\ngo 1"),
		species.MustParse("Spinner\nifenemy 0 4\nright\ngo 1\ninfect\ngo 1"),
		species.MustParse("Counter\ninc r1\nifeq r1 r2 +2\nhop\nright"),
	}
}

func TestHopEachHeading(t *testing.T) {
	tests := []struct {
		heading types.Heading
		want    types.Point
	}{
		{types.Front, types.Point{X: 1, Y: 0}},
		{types.FrontRight, types.Point{X: 2, Y: 0}},
		{types.Right, types.Point{X: 2, Y: 1}},
		{types.RearRight, types.Point{X: 2, Y: 2}},
		{types.Rear, types.Point{X: 1, Y: 2}},
		{types.RearLeft, types.Point{X: 0, Y: 2}},
		{types.Left, types.Point{X: 0, Y: 1}},
		{types.FrontLeft, types.Point{X: 0, Y: 0}},
	}
	hopper := species.MustParse("Hopper\nhop\ngo 1")

	for _, tt := range tests {
		t.Run(tt.heading.String(), func(t *testing.T) {
			e := newTestEnv(3, 3)
			c := spawn(t, e, hopper, types.Point{X: 1, Y: 1}, tt.heading)

			e.AdvanceEpoch()

			if got := position(t, c); got != tt.want {
				t.Errorf("Position() = %v, want %v", got, tt.want)
			}
			if c.Heading != tt.heading {
				t.Errorf("Heading = %v, want %v", c.Heading, tt.heading)
			}
			if _, ok := e.Cell(types.Point{X: 1, Y: 1}); ok {
				t.Error("old cell still occupied")
			}
			if got, ok := e.Cell(tt.want); !ok || got != c {
				t.Errorf("Cell(%v) = %v, want critter %d", tt.want, got, c.ID)
			}
		})
	}
}

func TestHopAcrossEpochs(t *testing.T) {
	e := newTestEnv(4, 4)
	c := spawn(t, e, species.MustParse("Walker\nhop\nright\ngo 1"), types.Point{X: 0, Y: 3}, types.Front)

	// hop, right, hop, right, ...: the critter zigzags up and to the right.
	want := []struct {
		pos     types.Point
		heading types.Heading
	}{
		{types.Point{X: 0, Y: 2}, types.Front},
		{types.Point{X: 0, Y: 2}, types.FrontRight},
		{types.Point{X: 1, Y: 1}, types.FrontRight},
		{types.Point{X: 1, Y: 1}, types.Right},
		{types.Point{X: 2, Y: 1}, types.Right},
	}
	for i, w := range want {
		e.AdvanceEpoch()
		if got := position(t, c); got != w.pos || c.Heading != w.heading {
			t.Errorf("epoch %d: at %v facing %v, want %v facing %v", i, got, c.Heading, w.pos, w.heading)
		}
	}
}

func TestHopBlocked(t *testing.T) {
	e := newTestEnv(3, 3)
	a := spawn(t, e, species.MustParse("A\nhop"), types.Point{X: 1, Y: 1}, types.Front)
	b := spawn(t, e, species.MustParse("B\nleft"), types.Point{X: 1, Y: 0}, types.Front)
	wall := spawn(t, e, species.MustParse("C\nhop"), types.Point{X: 0, Y: 0}, types.Left)

	e.AdvanceEpoch()

	if got := position(t, a); got != (types.Point{X: 1, Y: 1}) {
		t.Errorf("blocked critter moved to %v", got)
	}
	if got := position(t, b); got != (types.Point{X: 1, Y: 0}) {
		t.Errorf("turning critter moved to %v", got)
	}
	if got := position(t, wall); got != (types.Point{X: 0, Y: 0}) {
		t.Errorf("critter hopped off the grid to %v", got)
	}
}

func TestRegisterScenarioOneEpoch(t *testing.T) {
	s := species.MustParse(`Registers
write r1 1
write r2 2
write r10 8
add r1 r10
ifeq r1 r2 +3
inc r2
go -2
write r3 4`)
	e, err := New(Config{Width: 5, Height: 5, Critters: 1, Seed: 3}, species.Roster{s})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c := e.Critter(0)
	if c.Cursor != 0 {
		t.Fatalf("initial Cursor = %d, want 0", c.Cursor)
	}

	report := e.AdvanceEpoch()

	want := [species.NumRegisters]int64{9, 9, 4, 0, 0, 0, 0, 0, 0, 8}
	if c.Registers != want {
		t.Errorf("Registers = %v, want %v", c.Registers, want)
	}
	if report.Turns != 1 || len(report.Faults) != 0 {
		t.Errorf("report = %+v, want one clean turn", report)
	}
	if e.Epoch() != 1 {
		t.Errorf("Epoch() = %d, want 1", e.Epoch())
	}
}

func TestSense(t *testing.T) {
	// Each program jumps to line 3 (left) when its test holds, else hops.
	tests := []struct {
		name    string
		program string
		want    types.Heading
	}{
		{"wall ahead", "ifwall 0 3\nhop\nleft", types.FrontLeft},
		{"ally right", "ifally 90 3\nhop\nleft", types.FrontLeft},
		{"enemy rear", "ifenemy 180 3\nhop\nleft", types.FrontLeft},
		{"empty rear-right", "ifempty 135 3\nhop\nleft", types.FrontLeft},
		{"wall front-left", "ifwall -45 3\nhop\nleft", types.FrontLeft},
		{"no enemy right", "ifenemy 90 3\nhop\nleft", types.Front},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(3, 3)
			self := species.MustParse("Self\n" + tt.program)
			c := spawn(t, e, self, types.Point{X: 0, Y: 0}, types.Front)
			spawn(t, e, self, types.Point{X: 1, Y: 0}, types.Left)
			spawn(t, e, species.MustParse("Other\nleft"), types.Point{X: 0, Y: 1}, types.Front)

			e.AdvanceEpoch()
			if c.Heading != tt.want {
				t.Errorf("Heading = %v, want %v", c.Heading, tt.want)
			}
		})
	}
}

func TestEat(t *testing.T) {
	e := newTestEnv(3, 3)
	eater := spawn(t, e, species.MustParse("Eater\neat\nleft"), types.Point{X: 1, Y: 1}, types.Front)
	prey := spawn(t, e, species.MustParse("Prey\nhop"), types.Point{X: 1, Y: 0}, types.Front)

	e.AdvanceEpoch()

	if !prey.Dead {
		t.Fatal("prey survived")
	}
	if _, ok := prey.Position(); ok {
		t.Error("dead prey still on the grid")
	}
	if _, ok := e.Cell(types.Point{X: 1, Y: 0}); ok {
		t.Error("prey cell still occupied")
	}
	if eater.LastFed != 0 {
		t.Errorf("LastFed = %d, want 0", eater.LastFed)
	}
	if name, ok := e.Winner(); !ok || name != "Eater" {
		t.Errorf("Winner() = %q, %v, want Eater", name, ok)
	}
}

func TestEatNonEnemyIsNoop(t *testing.T) {
	e := newTestEnv(3, 3)
	s := species.MustParse("Pack\neat")
	a := spawn(t, e, s, types.Point{X: 1, Y: 1}, types.Front)
	b := spawn(t, e, s, types.Point{X: 1, Y: 0}, types.Rear)
	empty := spawn(t, e, s, types.Point{X: 2, Y: 2}, types.Right)

	e.AdvanceEpoch()

	for _, c := range []*Critter{a, b, empty} {
		if c.Dead {
			t.Errorf("critter %d died", c.ID)
		}
		if c.LastFed != NeverFed {
			t.Errorf("critter %d LastFed = %d, want untouched", c.ID, c.LastFed)
		}
		if c.Cursor != 2 {
			t.Errorf("critter %d Cursor = %d, want 2", c.ID, c.Cursor)
		}
	}
}

func TestIsWellFed(t *testing.T) {
	const fed = 100
	c := &Critter{LastFed: fed}
	tests := []struct {
		epoch int64
		want  bool
	}{
		{fed - 1, false},
		{fed, false},
		{fed + 1, true},
		{fed + 15, true},
		{fed + WellFedEpochs, true},
		{fed + WellFedEpochs + 1, false},
	}
	for _, tt := range tests {
		if got := c.IsWellFed(tt.epoch); got != tt.want {
			t.Errorf("IsWellFed(%d) = %v, want %v", tt.epoch, got, tt.want)
		}
	}

	never := &Critter{LastFed: NeverFed}
	for _, epoch := range []int64{0, 1, 30, 1 << 40} {
		if never.IsWellFed(epoch) {
			t.Errorf("unfed critter IsWellFed(%d) = true", epoch)
		}
	}
}

func TestBonusTurn(t *testing.T) {
	e := newTestEnv(1, 6)
	c := spawn(t, e, species.MustParse("Runner\nhop\ngo 1"), types.Point{X: 0, Y: 5}, types.Front)
	c.LastFed = -1

	report := e.AdvanceEpoch()

	if got := position(t, c); got != (types.Point{X: 0, Y: 3}) {
		t.Errorf("Position() = %v, want (0,3)", got)
	}
	if report.Turns != 2 || report.BonusTurns != 1 {
		t.Errorf("Turns, BonusTurns = %d, %d, want 2, 1", report.Turns, report.BonusTurns)
	}

	// Epoch 29 is the last one in the window.
	e.epoch = 29
	report = e.AdvanceEpoch()
	if report.BonusTurns != 1 {
		t.Errorf("epoch 29 BonusTurns = %d, want 1", report.BonusTurns)
	}
	report = e.AdvanceEpoch()
	if report.BonusTurns != 0 {
		t.Errorf("epoch 30 BonusTurns = %d, want 0", report.BonusTurns)
	}
}

func TestBonusTurnUsesPreTurnSnapshot(t *testing.T) {
	e := newTestEnv(3, 3)
	eater := spawn(t, e, species.MustParse("Eater\neat\nleft\nleft\nleft"), types.Point{X: 1, Y: 1}, types.Front)
	spawn(t, e, species.MustParse("Prey\nright"), types.Point{X: 1, Y: 0}, types.Front)

	// Eating at epoch 0 does not grant a bonus turn in epoch 0.
	report := e.AdvanceEpoch()
	if report.BonusTurns != 0 {
		t.Errorf("epoch 0 BonusTurns = %d, want 0", report.BonusTurns)
	}
	if eater.Cursor != 2 {
		t.Errorf("epoch 0 Cursor = %d, want 2", eater.Cursor)
	}

	// Epoch 1 is the first well-fed epoch: two left turns.
	report = e.AdvanceEpoch()
	if report.BonusTurns != 1 {
		t.Errorf("epoch 1 BonusTurns = %d, want 1", report.BonusTurns)
	}
	if eater.Heading != types.Left {
		t.Errorf("Heading = %v, want %v", eater.Heading, types.Left)
	}
}

func TestBonusTurnOrdering(t *testing.T) {
	// The fed critter hops twice before the watcher runs, so the watcher
	// already sees it in the cell ahead.
	e := newTestEnv(1, 4)
	fed := spawn(t, e, species.MustParse("Fed\nhop\ngo 1"), types.Point{X: 0, Y: 3}, types.Front)
	fed.LastFed = -1
	watcher := spawn(t, e, species.MustParse("Watcher\nifenemy 0 3\nhop\nright"), types.Point{X: 0, Y: 0}, types.Rear)

	e.AdvanceEpoch()

	if got := position(t, fed); got != (types.Point{X: 0, Y: 1}) {
		t.Errorf("fed Position() = %v, want (0,1)", got)
	}
	if got := position(t, watcher); got != (types.Point{X: 0, Y: 0}) {
		t.Errorf("watcher Position() = %v, want (0,0)", got)
	}
	if watcher.Heading != types.RearLeft {
		t.Errorf("watcher Heading = %v, want %v", watcher.Heading, types.RearLeft)
	}
}

func TestInfect(t *testing.T) {
	e := newTestEnv(3, 3)
	// The victim runs first, so its first turn uses its own program.
	victim := spawn(t, e, species.MustParse("Victim\nright\nright"), types.Point{X: 1, Y: 0}, types.Front)
	carrier := species.MustParse("Carrier\ninfect 3\nhop\nleft")
	spawn(t, e, carrier, types.Point{X: 1, Y: 1}, types.Front)

	e.AdvanceEpoch()

	if victim.Species != carrier {
		t.Fatalf("victim Species = %s, want Carrier", victim.Species.Name)
	}
	if victim.Cursor != 3 {
		t.Errorf("victim Cursor = %d, want 3", victim.Cursor)
	}
	if victim.Dead {
		t.Error("victim died")
	}

	// Next epoch the victim runs the carrier program from line 3.
	e.AdvanceEpoch()
	if victim.Heading != types.Front {
		t.Errorf("victim Heading = %v, want %v", victim.Heading, types.Front)
	}
	if name, ok := e.Winner(); !ok || name != "Carrier" {
		t.Errorf("Winner() = %q, %v, want Carrier", name, ok)
	}
}

func TestInfectNonEnemyIsNoop(t *testing.T) {
	e := newTestEnv(3, 3)
	s := species.MustParse("Pack\ninfect 1")
	// Creation order is turn order: the ally has already taken its turn when
	// the critter behind it infects, so a wrongly applied infection would
	// leave its cursor rewound to line 1.
	ally := spawn(t, e, s, types.Point{X: 1, Y: 0}, types.Front)
	behind := spawn(t, e, s, types.Point{X: 1, Y: 1}, types.Front)
	open := spawn(t, e, s, types.Point{X: 0, Y: 2}, types.Front)
	wall := spawn(t, e, s, types.Point{X: 2, Y: 2}, types.Right)

	report := e.AdvanceEpoch()
	if len(report.Faults) != 0 {
		t.Fatalf("Faults = %v, want none", report.Faults)
	}

	for _, c := range []*Critter{ally, behind, open, wall} {
		if c.Species != s {
			t.Errorf("critter %d Species = %s, want Pack", c.ID, c.Species.Name)
		}
		if c.Cursor != 2 {
			t.Errorf("critter %d Cursor = %d, want 2", c.ID, c.Cursor)
		}
		if c.Dead {
			t.Errorf("critter %d died", c.ID)
		}
	}
	if _, ok := e.Cell(types.Point{X: 0, Y: 1}); ok {
		t.Error("empty cell ahead became occupied")
	}
}

func TestInfectDefaultTarget(t *testing.T) {
	e := newTestEnv(3, 3)
	victim := spawn(t, e, species.MustParse("Victim\nright"), types.Point{X: 1, Y: 0}, types.Front)
	spawn(t, e, species.MustParse("Carrier\nleft\ninfect"), types.Point{X: 1, Y: 1}, types.FrontRight)

	// Epoch 0: the carrier turns to face the victim. Epoch 1: it infects.
	e.AdvanceEpoch()
	e.AdvanceEpoch()

	if victim.Species.Name != "Carrier" {
		t.Fatalf("victim Species = %s, want Carrier", victim.Species.Name)
	}
	if victim.Cursor != 0 {
		t.Errorf("victim Cursor = %d, want 0", victim.Cursor)
	}
}

func TestFaultIsolation(t *testing.T) {
	e := newTestEnv(3, 3)
	victim := spawn(t, e, species.MustParse("Victim\nleft"), types.Point{X: 1, Y: 0}, types.Left)
	broken := spawn(t, e, species.MustParse("Broken\ninfect 9"), types.Point{X: 1, Y: 1}, types.Front)
	runner := spawn(t, e, species.MustParse("Runner\nhop"), types.Point{X: 2, Y: 2}, types.Front)

	report := e.AdvanceEpoch()

	if len(report.Faults) != 1 {
		t.Fatalf("Faults = %v, want one", report.Faults)
	}
	f := report.Faults[0]
	if f.ID != broken.ID || f.Species != "Broken" || f.Line != 1 || f.Epoch != 0 {
		t.Errorf("fault = %+v, want Broken line 1 epoch 0", f)
	}
	if !errors.Is(f.Err, vm.ErrInfectTarget) {
		t.Errorf("fault error = %v, want %v", f.Err, vm.ErrInfectTarget)
	}
	if victim.Species.Name != "Victim" {
		t.Error("faulted infection was applied")
	}
	if got := position(t, runner); got != (types.Point{X: 2, Y: 1}) {
		t.Errorf("runner Position() = %v, want (2,1)", got)
	}
	if e.Epoch() != 1 {
		t.Errorf("Epoch() = %d, want 1", e.Epoch())
	}
}

func TestWinner(t *testing.T) {
	e := newTestEnv(3, 1)
	a := spawn(t, e, species.MustParse("A\nleft"), types.Point{X: 0, Y: 0}, types.Front)
	b := spawn(t, e, species.MustParse("B\nleft"), types.Point{X: 2, Y: 0}, types.Front)

	if _, ok := e.Winner(); ok {
		t.Error("Winner() found with two species alive")
	}
	b.Dead = true
	if name, ok := e.Winner(); !ok || name != "A" {
		t.Errorf("Winner() = %q, %v, want A", name, ok)
	}
	a.Dead = true
	if name, ok := e.Winner(); ok {
		t.Errorf("Winner() = %q after extinction, want none", name)
	}
}

func TestWinnerUnnamedSpecies(t *testing.T) {
	e := newTestEnv(3, 1)
	unnamed := species.New("", species.MustParse("X\nleft").Program)
	spawn(t, e, unnamed, types.Point{X: 0, Y: 0}, types.Front)
	spawn(t, e, unnamed, types.Point{X: 2, Y: 0}, types.Front)

	if name, ok := e.Winner(); !ok || name != "" {
		t.Errorf("Winner() = %q, %v, want the unnamed species", name, ok)
	}
}

func TestCensus(t *testing.T) {
	e := newTestEnv(4, 1)
	a := species.MustParse("A\nleft")
	b := species.MustParse("B\nleft")
	spawn(t, e, b, types.Point{X: 0, Y: 0}, types.Front)
	spawn(t, e, a, types.Point{X: 1, Y: 0}, types.Front)
	dead := spawn(t, e, a, types.Point{X: 2, Y: 0}, types.Front)
	dead.Dead = true

	got := e.Census()
	want := []SpeciesCount{{"B", 1}, {"A", 1}}
	if len(got) != len(want) {
		t.Fatalf("Census() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Census()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if e.Alive() != 2 {
		t.Errorf("Alive() = %d, want 2", e.Alive())
	}
}

func TestNew(t *testing.T) {
	roster := testRoster()
	e, err := New(Config{Seed: 42}, roster)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if e.Width() != DefaultWidth || e.Height() != DefaultHeight {
		t.Errorf("shape = %dx%d, want %dx%d", e.Width(), e.Height(), DefaultWidth, DefaultHeight)
	}
	if got := len(e.Critters()); got != 50 {
		t.Errorf("len(Critters()) = %d, want 50", got)
	}

	seen := make(map[types.Point]bool)
	for _, c := range e.Critters() {
		p := position(t, c)
		if seen[p] {
			t.Errorf("two critters at %v", p)
		}
		seen[p] = true
		if got, _ := e.Cell(p); got != c {
			t.Errorf("Cell(%v) does not hold critter %d", p, c.ID)
		}
		if !c.Heading.Valid() {
			t.Errorf("critter %d has invalid heading %d", c.ID, c.Heading)
		}
		if c.LastFed != NeverFed || c.Cursor != 0 {
			t.Errorf("critter %d not freshly initialized: %+v", c.ID, c)
		}
	}
}

func TestNewErrors(t *testing.T) {
	roster := testRoster()
	dup := species.Roster{roster[0], species.MustParse("Rover\nhop")}
	tests := []struct {
		name   string
		cfg    Config
		roster species.Roster
		want   error
	}{
		{"empty roster", Config{}, nil, ErrEmptyRoster},
		{"duplicate names", Config{}, dup, ErrDuplicateSpecies},
		{"bad shape", Config{Width: -1, Height: 4}, roster, ErrInvalidShape},
		{"too many", Config{Width: 2, Height: 2, Critters: 5}, roster, ErrGridFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, tt.roster)
			if !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDefaultCritterCount(t *testing.T) {
	tests := []struct {
		w, h, want int
	}{
		{30, 20, 50},
		{1, 1, 2},
		{3, 3, 2},
		{6, 5, 2},
		{9, 2, 2},
		{10, 3, 2},
		{7, 6, 4},
	}
	for _, tt := range tests {
		if got := DefaultCritterCount(tt.w, tt.h); got != tt.want {
			t.Errorf("DefaultCritterCount(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestFullGrid(t *testing.T) {
	e, err := New(Config{Width: 3, Height: 2, Critters: 6, Seed: 9}, testRoster())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			if _, ok := e.Cell(types.Point{X: x, Y: y}); !ok {
				t.Errorf("Cell(%d,%d) empty on a full grid", x, y)
			}
		}
	}
}

func TestDeterminism(t *testing.T) {
	run := func(seed uint64) []types.Hash {
		e, err := New(Config{Width: 12, Height: 10, Seed: seed}, testRoster())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		digests := []types.Hash{e.Digest()}
		for i := 0; i < 200; i++ {
			e.AdvanceEpoch()
			digests = append(digests, e.Digest())
		}
		return digests
	}

	a, b := run(7), run(7)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("epoch %d: digests differ for the same seed", i)
		}
	}
	if c := run(8); c[0] == a[0] {
		t.Error("different seeds produced the same initial state")
	}
}

func TestPlace(t *testing.T) {
	e := newTestEnv(2, 2)
	a := spawn(t, e, species.MustParse("A\nleft"), types.Point{X: 0, Y: 0}, types.Front)
	b := spawn(t, e, species.MustParse("B\nleft"), types.Point{X: 1, Y: 0}, types.Front)

	tests := []struct {
		name string
		id   ID
		p    types.Point
		want error
	}{
		{"occupied", a.ID, types.Point{X: 1, Y: 0}, ErrOccupied},
		{"off grid", a.ID, types.Point{X: 2, Y: 0}, ErrOutOfBounds},
		{"unknown", 7, types.Point{X: 1, Y: 1}, ErrUnknownCritter},
		{"same cell", b.ID, types.Point{X: 1, Y: 0}, nil},
		{"move", a.ID, types.Point{X: 1, Y: 1}, nil},
	}
	for _, tt := range tests {
		if err := e.Place(tt.id, tt.p); !errors.Is(err, tt.want) {
			t.Errorf("%s: Place() error = %v, want %v", tt.name, err, tt.want)
		}
	}
	if _, ok := e.Cell(types.Point{X: 0, Y: 0}); ok {
		t.Error("Place left the old cell occupied")
	}

	b.Dead = true
	if err := e.Place(b.ID, types.Point{X: 0, Y: 0}); !errors.Is(err, ErrDeadCritter) {
		t.Errorf("Place(dead) error = %v, want %v", err, ErrDeadCritter)
	}
}

func TestFrame(t *testing.T) {
	e := newTestEnv(3, 2)
	a := species.MustParse("A\nleft")
	spawn(t, e, a, types.Point{X: 2, Y: 1}, types.Front)
	spawn(t, e, a, types.Point{X: 0, Y: 0}, types.Rear)

	f := e.Frame()
	if f.Width != 3 || f.Height != 2 || f.Epoch != 0 {
		t.Errorf("Frame() header = %dx%d epoch %d", f.Width, f.Height, f.Epoch)
	}
	if len(f.Cells) != 2 {
		t.Fatalf("len(Cells) = %d, want 2", len(f.Cells))
	}
	// Cells come out in row-major order.
	if f.Cells[0].X != 0 || f.Cells[0].Y != 0 || f.Cells[0].ID != 1 {
		t.Errorf("Cells[0] = %+v, want critter 1 at (0,0)", f.Cells[0])
	}
	if f.Cells[1].Color != a.Color {
		t.Errorf("Cells[1].Color = %v, want %v", f.Cells[1].Color, a.Color)
	}
	if f.Winner != "A" {
		t.Errorf("Winner = %q, want A", f.Winner)
	}
	if f.Digest != e.Digest() {
		t.Error("frame digest does not match Digest()")
	}
}
