package species

// Opcode selects what an instruction does.
type Opcode uint8

// Action opcodes end the turn once executed.
const (
	OpHop Opcode = iota + 1
	OpLeft
	OpRight
	OpEat
	OpInfect
)

// Control opcodes move the cursor.
const (
	OpGo Opcode = iota + 16
	OpIfRandom
	OpIfEmpty
	OpIfAlly
	OpIfEnemy
	OpIfWall
	OpIfLt
	OpIfEq
	OpIfGt
)

// Register opcodes mutate registers and always fall through.
const (
	OpWrite Opcode = iota + 32
	OpAdd
	OpSub
	OpInc
	OpDec
)

// OperandKind describes what a single operand token holds.
type OperandKind uint8

const (
	KindRegister OperandKind = iota + 1 // r1..r10
	KindLiteral                         // signed integer
	KindBearing                         // degrees, multiple of 45
	KindTarget                          // jump target
)

func (k OperandKind) String() string {
	switch k {
	case KindRegister:
		return "register"
	case KindLiteral:
		return "literal"
	case KindBearing:
		return "bearing"
	case KindTarget:
		return "target"
	default:
		return "unknown"
	}
}

// opInfo is the static signature of an opcode.
type opInfo struct {
	mnemonic string
	operands []OperandKind
	optional int // trailing operands that may be omitted
}

var opTable = map[Opcode]opInfo{
	OpHop:    {"hop", nil, 0},
	OpLeft:   {"left", nil, 0},
	OpRight:  {"right", nil, 0},
	OpEat:    {"eat", nil, 0},
	OpInfect: {"infect", []OperandKind{KindTarget}, 1},

	OpGo:       {"go", []OperandKind{KindTarget}, 0},
	OpIfRandom: {"ifrandom", []OperandKind{KindTarget}, 0},
	OpIfEmpty:  {"ifempty", []OperandKind{KindBearing, KindTarget}, 0},
	OpIfAlly:   {"ifally", []OperandKind{KindBearing, KindTarget}, 0},
	OpIfEnemy:  {"ifenemy", []OperandKind{KindBearing, KindTarget}, 0},
	OpIfWall:   {"ifwall", []OperandKind{KindBearing, KindTarget}, 0},
	OpIfLt:     {"iflt", []OperandKind{KindRegister, KindRegister, KindTarget}, 0},
	OpIfEq:     {"ifeq", []OperandKind{KindRegister, KindRegister, KindTarget}, 0},
	OpIfGt:     {"ifgt", []OperandKind{KindRegister, KindRegister, KindTarget}, 0},

	OpWrite: {"write", []OperandKind{KindRegister, KindLiteral}, 0},
	OpAdd:   {"add", []OperandKind{KindRegister, KindRegister}, 0},
	OpSub:   {"sub", []OperandKind{KindRegister, KindRegister}, 0},
	OpInc:   {"inc", []OperandKind{KindRegister}, 0},
	OpDec:   {"dec", []OperandKind{KindRegister}, 0},
}

var mnemonics = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opTable))
	for op, info := range opTable {
		m[info.mnemonic] = op
	}
	return m
}()

// Lookup returns the opcode for a mnemonic.
func Lookup(mnemonic string) (Opcode, bool) {
	op, ok := mnemonics[mnemonic]
	return op, ok
}

// Valid reports whether op is part of the instruction set.
func (op Opcode) Valid() bool {
	_, ok := opTable[op]
	return ok
}

// IsAction reports whether executing op ends the turn.
func (op Opcode) IsAction() bool {
	return op >= OpHop && op <= OpInfect
}

// Operands returns the operand kinds op expects, including optional ones.
func (op Opcode) Operands() []OperandKind {
	return opTable[op].operands
}

func (op Opcode) String() string {
	if info, ok := opTable[op]; ok {
		return info.mnemonic
	}
	return "invalid"
}
