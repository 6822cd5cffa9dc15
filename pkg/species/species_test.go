package species

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fortiblox/critters/internal/types"
)

const registerProgram = `Heyo
write r1 1
write r2 2
write r10 8
add r1 r10
ifeq r1 r2 +3
inc r2
go -2
write r3 4
`

func TestParseRegisterProgram(t *testing.T) {
	s, err := Parse("", registerProgram)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Name != "Heyo" {
		t.Errorf("Name = %q, want %q", s.Name, "Heyo")
	}
	if s.Program.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", s.Program.Len())
	}

	ins, _ := s.Program.At(3)
	if ins.Op != OpWrite || ins.Args[0].Reg != 9 || ins.Args[1].Literal != 8 {
		t.Errorf("line 3 = %v, want write r10 8", ins)
	}

	ins, _ = s.Program.At(5)
	if ins.Op != OpIfEq {
		t.Fatalf("line 5 op = %v, want ifeq", ins.Op)
	}
	if got := ins.Args[2].Target; got != (Target{Mode: TargetForward, Value: 3}) {
		t.Errorf("line 5 target = %+v, want +3", got)
	}

	ins, _ = s.Program.At(7)
	if got := ins.Args[0].Target; got != (Target{Mode: TargetBackward, Value: 2}) {
		t.Errorf("line 7 target = %+v, want -2", got)
	}

	if _, ok := s.Program.At(0); ok {
		t.Error("At(0) should be out of range")
	}
	if _, ok := s.Program.At(9); ok {
		t.Error("At(9) should be out of range")
	}
}

func TestParseStopsAtBlankLine(t *testing.T) {
	s, err := Parse("", "Hop\nhop\ngo 1\n\nthis is not code\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Program.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Program.Len())
	}
}

func TestParseTolerantWhitespace(t *testing.T) {
	s, err := Parse("", "Trap\r\nifenemy 0 4\r\nleft\r\ngo 1\r\neat\r\ngo 1\r\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Name != "Trap" {
		t.Errorf("Name = %q, want Trap", s.Name)
	}
	if s.Program.Len() != 5 {
		t.Errorf("Len() = %d, want 5", s.Program.Len())
	}
}

func TestParseOperands(t *testing.T) {
	s := MustParse("Ops\ninfect\ninfect r4\nifwall -45 12\nifrandom r10\nifempty 90 +0\nwrite r1 -9223372036854775808\n")

	tests := []struct {
		line int
		want string
	}{
		{1, "infect"},
		{2, "infect r4"},
		{3, "ifwall 315 12"},
		{4, "ifrandom r10"},
		{5, "ifempty 90 +0"},
		{6, "write r1 -9223372036854775808"},
	}
	for _, tt := range tests {
		ins, ok := s.Program.At(tt.line)
		if !ok {
			t.Fatalf("line %d missing", tt.line)
		}
		if got := ins.String(); got != tt.want {
			t.Errorf("line %d = %q, want %q", tt.line, got, tt.want)
		}
	}

	ins, _ := s.Program.At(3)
	if ins.Args[0].Bearing != types.Bearing(315) {
		t.Errorf("bearing = %d, want 315", ins.Args[0].Bearing)
	}
	ins, _ = s.Program.At(4)
	if ins.Args[0].Target != (Target{Mode: TargetIndirect, Value: 9}) {
		t.Errorf("indirect target = %+v, want register index 9", ins.Args[0].Target)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		line    int
		token   string
		wantErr error
	}{
		{"empty", "", 1, "", ErrMissingName},
		{"blank name", "   \nhop\n", 1, "", ErrMissingName},
		{"unknown mnemonic", "X\nhop\njump 3\n", 3, "jump", ErrUnknownMnemonic},
		{"register zero", "X\ninc r0\n", 2, "r0", ErrBadRegister},
		{"register eleven", "X\ninc r11\n", 2, "r11", ErrBadRegister},
		{"register no prefix", "X\nadd 1 r2\n", 2, "1", ErrBadRegister},
		{"bad literal", "X\nwrite r1 ten\n", 2, "ten", ErrBadLiteral},
		{"bad bearing", "X\nifempty 30 1\n", 2, "30", ErrBadBearing},
		{"bearing not int", "X\nifempty front 1\n", 2, "front", ErrBadBearing},
		{"bad target", "X\ngo +x\n", 2, "+x", ErrBadTarget},
		{"bad indirect", "X\ngo r12\n", 2, "r12", ErrBadRegister},
		{"missing operand", "X\ngo\n", 2, "go", ErrArity},
		{"extra operand", "X\nhop 1\n", 2, "hop 1", ErrArity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test.cri", tt.text)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error %T is not *ParseError", err)
			}
			if perr.Line != tt.line {
				t.Errorf("Line = %d, want %d", perr.Line, tt.line)
			}
			if perr.Token != tt.token {
				t.Errorf("Token = %q, want %q", perr.Token, tt.token)
			}
			if perr.Source != "test.cri" {
				t.Errorf("Source = %q, want test.cri", perr.Source)
			}
		})
	}
}

func TestColorDeterministic(t *testing.T) {
	a := ColorOf("Rover")
	b := ColorOf("Rover")
	if a != b {
		t.Errorf("ColorOf not deterministic: %v vs %v", a, b)
	}
	if ColorOf("Rover") == ColorOf("FlyTrap") {
		t.Error("different names produced the same color")
	}
	if s := MustParse("Rover\nhop\n"); s.Color != a {
		t.Errorf("species color = %v, want %v", s.Color, a)
	}
}

func TestDigest(t *testing.T) {
	a := MustParse("A\nhop\ngo 1\n")
	b := MustParse("A\nhop   \ngo 1\r\n")
	c := MustParse("A\nhop\ngo 2\n")

	if a.Digest() != b.Digest() {
		t.Error("equivalent sources produced different digests")
	}
	if a.Digest() == c.Digest() {
		t.Error("different programs produced the same digest")
	}

	reparsed, err := Parse("", a.Source())
	if err != nil {
		t.Fatalf("Parse(Source()) failed: %v", err)
	}
	if reparsed.Digest() != a.Digest() {
		t.Error("Source() did not round trip")
	}
}

func TestRoster(t *testing.T) {
	r := Roster{
		MustParse("Food\nleft\ngo 1\n"),
		MustParse("Hop\nhop\ngo 1\n"),
		MustParse("Rover\nhop\n"),
	}

	if got := r.Names(); len(got) != 3 || got[0] != "Food" || got[2] != "Rover" {
		t.Errorf("Names() = %v", got)
	}
	if s, ok := r.Lookup("Hop"); !ok || s.Name != "Hop" {
		t.Errorf("Lookup(Hop) = %v, %v", s, ok)
	}
	if _, ok := r.Lookup("Nope"); ok {
		t.Error("Lookup(Nope) should fail")
	}

	f := r.Filter("Rover", "Food", "Missing")
	if len(f) != 2 || f[0].Name != "Food" || f[1].Name != "Rover" {
		t.Errorf("Filter() = %v, want [Food Rover]", f.Names())
	}
	if len(r.Filter()) != 3 {
		t.Error("empty Filter() should keep everything")
	}
	if r.Digest() == r.Filter("Food").Digest() {
		t.Error("different rosters produced the same digest")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a_food.cri":  "Food\nleft\ngo 1\n",
		"b_hop.cri":   "Hop\nhop\ngo 1\n",
		"c_bad.cri":   "Broken\nwrite r99 1\n",
		"d_dup.cri":   "Food\nright\n",
		"notes.txt":   "ignored\n",
		"e_rover.cri": "Rover\nifenemy 0 4\nhop\ngo 1\neat\ngo 1\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	roster, errs := LoadDir(dir, zerolog.Nop())
	if got := roster.Names(); len(got) != 3 || got[0] != "Food" || got[1] != "Hop" || got[2] != "Rover" {
		t.Errorf("loaded %v, want [Food Hop Rover]", got)
	}
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
	if !errors.Is(errs[0], ErrBadRegister) {
		t.Errorf("first error = %v, want ErrBadRegister", errs[0])
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.cri")); err == nil {
		t.Error("LoadFile(missing) should fail")
	}
}

func TestShippedSpecies(t *testing.T) {
	roster, errs := LoadDir(filepath.Join("..", "..", "species"), zerolog.Nop())
	if len(errs) != 0 {
		t.Fatalf("shipped species failed to load: %v", errs)
	}
	for _, name := range []string{"Food", "Hop", "FlyTrap", "Rover", "Rover2", "Spiral"} {
		if _, ok := roster.Lookup(name); !ok {
			t.Errorf("shipped species %s missing from %v", name, roster.Names())
		}
	}
}
