package species

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fortiblox/critters/internal/types"
)

// Parse errors.
var (
	ErrMissingName     = errors.New("missing species name")
	ErrUnknownMnemonic = errors.New("unknown mnemonic")
	ErrArity           = errors.New("wrong number of operands")
	ErrBadRegister     = errors.New("invalid register")
	ErrBadLiteral      = errors.New("invalid literal")
	ErrBadBearing      = errors.New("invalid bearing")
	ErrBadTarget       = errors.New("invalid jump target")
)

// ParseError reports a malformed species source. Line is 1-indexed within the
// source text, so the name is line 1 and the first instruction line 2.
type ParseError struct {
	Source string
	Line   int
	Token  string
	Err    error
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	if e.Source != "" {
		sb.WriteString(e.Source)
		sb.WriteByte(':')
	}
	fmt.Fprintf(&sb, "%d: %v", e.Line, e.Err)
	if e.Token != "" {
		fmt.Fprintf(&sb, " %q", e.Token)
	}
	return sb.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes species source text. The first line is the name; instruction
// lines follow until the first blank line or the end of text. source names the
// origin (usually a file path) for error messages and may be empty.
func Parse(source, text string) (*Species, error) {
	lines := strings.Split(text, "\n")
	name := strings.TrimSpace(lines[0])
	if name == "" {
		return nil, &ParseError{Source: source, Line: 1, Err: ErrMissingName}
	}

	var program Program
	for i, raw := range lines[1:] {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			break
		}
		ins, token, err := parseInstruction(strings.Fields(line))
		if err != nil {
			return nil, &ParseError{Source: source, Line: i + 2, Token: token, Err: err}
		}
		program = append(program, ins)
	}

	return New(name, program), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// built-in programs.
func MustParse(text string) *Species {
	s, err := Parse("", text)
	if err != nil {
		panic(err)
	}
	return s
}

// parseInstruction decodes one tokenized line. On failure it returns the
// offending token.
func parseInstruction(tokens []string) (Instruction, string, error) {
	op, ok := Lookup(tokens[0])
	if !ok {
		return Instruction{}, tokens[0], ErrUnknownMnemonic
	}

	kinds := op.Operands()
	args := tokens[1:]
	required := len(kinds) - opTable[op].optional
	if len(args) < required || len(args) > len(kinds) {
		return Instruction{}, strings.Join(tokens, " "),
			fmt.Errorf("%w: %s takes %d, got %d", ErrArity, op, len(kinds), len(args))
	}

	ins := Instruction{Op: op, Args: make([]Operand, 0, len(args))}
	for i, tok := range args {
		operand, err := parseOperand(kinds[i], tok)
		if err != nil {
			return Instruction{}, tok, err
		}
		ins.Args = append(ins.Args, operand)
	}
	return ins, "", nil
}

func parseOperand(kind OperandKind, tok string) (Operand, error) {
	switch kind {
	case KindRegister:
		r, err := parseRegister(tok)
		if err != nil {
			return Operand{}, err
		}
		return Reg(r), nil

	case KindLiteral:
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return Operand{}, ErrBadLiteral
		}
		return Lit(v), nil

	case KindBearing:
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return Operand{}, ErrBadBearing
		}
		b, err := types.BearingFromDegrees(v)
		if err != nil {
			return Operand{}, fmt.Errorf("%w: %v", ErrBadBearing, err)
		}
		return Bear(b), nil

	case KindTarget:
		t, err := parseTarget(tok)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: KindTarget, Target: t}, nil
	}
	return Operand{}, fmt.Errorf("unsupported operand kind %d", kind)
}

// parseRegister maps "r1".."r10" to 0..9.
func parseRegister(tok string) (int, error) {
	if !strings.HasPrefix(tok, "r") {
		return 0, ErrBadRegister
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 1 || n > NumRegisters {
		return 0, ErrBadRegister
	}
	return n - 1, nil
}

func parseTarget(tok string) (Target, error) {
	if tok == "" {
		return Target{}, ErrBadTarget
	}
	switch tok[0] {
	case 'r':
		r, err := parseRegister(tok)
		if err != nil {
			return Target{}, err
		}
		return Target{Mode: TargetIndirect, Value: int64(r)}, nil
	case '+', '-':
		v, err := strconv.ParseUint(tok[1:], 10, 63)
		if err != nil {
			return Target{}, ErrBadTarget
		}
		mode := TargetForward
		if tok[0] == '-' {
			mode = TargetBackward
		}
		return Target{Mode: mode, Value: int64(v)}, nil
	default:
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return Target{}, ErrBadTarget
		}
		return Target{Mode: TargetAbsolute, Value: v}, nil
	}
}
