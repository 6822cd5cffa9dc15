package species

import (
	"strconv"
	"strings"

	"github.com/fortiblox/critters/internal/types"
)

// NumRegisters is the number of registers each critter owns.
const NumRegisters = 10

// TargetMode selects how a jump target resolves to a line.
type TargetMode uint8

const (
	TargetIndirect TargetMode = iota + 1 // line held in a register
	TargetForward                        // current line + offset
	TargetBackward                       // current line - offset
	TargetAbsolute                       // literal line number
)

// Target is a jump destination. Value is a 0-indexed register for
// TargetIndirect and a line count otherwise.
type Target struct {
	Mode  TargetMode
	Value int64
}

func (t Target) String() string {
	switch t.Mode {
	case TargetIndirect:
		return "r" + strconv.FormatInt(t.Value+1, 10)
	case TargetForward:
		return "+" + strconv.FormatInt(t.Value, 10)
	case TargetBackward:
		return "-" + strconv.FormatInt(t.Value, 10)
	default:
		return strconv.FormatInt(t.Value, 10)
	}
}

// Operand is one decoded operand. Only the field matching Kind is meaningful.
type Operand struct {
	Kind    OperandKind
	Reg     int // 0-indexed register
	Literal int64
	Bearing types.Bearing
	Target  Target
}

// Reg returns a register operand for 0-indexed register i.
func Reg(i int) Operand { return Operand{Kind: KindRegister, Reg: i} }

// Lit returns a literal operand.
func Lit(v int64) Operand { return Operand{Kind: KindLiteral, Literal: v} }

// Bear returns a bearing operand.
func Bear(b types.Bearing) Operand { return Operand{Kind: KindBearing, Bearing: b} }

// Jump returns a jump target operand.
func Jump(mode TargetMode, v int64) Operand {
	return Operand{Kind: KindTarget, Target: Target{Mode: mode, Value: v}}
}

func (o Operand) String() string {
	switch o.Kind {
	case KindRegister:
		return "r" + strconv.Itoa(o.Reg+1)
	case KindLiteral:
		return strconv.FormatInt(o.Literal, 10)
	case KindBearing:
		return strconv.Itoa(int(o.Bearing))
	case KindTarget:
		return o.Target.String()
	default:
		return "?"
	}
}

// Instruction is a decoded program line.
type Instruction struct {
	Op   Opcode
	Args []Operand
}

// String renders the instruction in canonical source form.
func (in Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())
	for _, a := range in.Args {
		sb.WriteByte(' ')
		sb.WriteString(a.String())
	}
	return sb.String()
}

// Program is an ordered instruction sequence. Line n (1-indexed) is Program[n-1].
type Program []Instruction

// Len returns the number of lines.
func (p Program) Len() int { return len(p) }

// At returns the instruction at 1-indexed line n.
func (p Program) At(n int) (Instruction, bool) {
	if n < 1 || n > len(p) {
		return Instruction{}, false
	}
	return p[n-1], true
}
