package typedbits

// BinaryOp enumerates the two-operand ALU operations.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	BitXor
	BitAnd
	BitOr
	Shl
	Shr
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
)

func (op BinaryOp) String() string {
	names := []string{"+", "-", "*", "^", "&", "|", "<<", ">>", "==", "!=", "<", "<=", ">", ">="}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Name returns the identifier used by kernel descriptions.
func (op BinaryOp) Name() string {
	names := []string{"add", "sub", "mul", "xor", "and", "or", "shl", "shr", "eq", "ne", "lt", "le", "gt", "ge"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// IsComparison reports whether op produces a single bit.
func (op BinaryOp) IsComparison() bool {
	return op >= Eq && op <= Ge
}

// IsShift reports whether op is a shift.
func (op BinaryOp) IsShift() bool {
	return op == Shl || op == Shr
}

// IsBitwise reports whether op acts independently on each bit.
func (op BinaryOp) IsBitwise() bool {
	return op == BitXor || op == BitAnd || op == BitOr
}

// ParseBinaryOp looks an operation up by Name.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for op := Add; op <= Ge; op++ {
		if op.Name() == s {
			return op, true
		}
	}
	return 0, false
}

// UnaryOp enumerates the one-operand ALU operations. All, Any and Xor reduce
// the operand to a single bit.
type UnaryOp int

const (
	Neg UnaryOp = iota
	Not
	All
	Any
	Xor
)

func (op UnaryOp) String() string {
	names := []string{"-", "!", "all", "any", "xor"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Name returns the identifier used by kernel descriptions.
func (op UnaryOp) Name() string {
	names := []string{"neg", "not", "all", "any", "xor"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// IsReduction reports whether op produces a single bit.
func (op UnaryOp) IsReduction() bool {
	return op == All || op == Any || op == Xor
}

// ParseUnaryOp looks an operation up by Name.
func ParseUnaryOp(s string) (UnaryOp, bool) {
	for op := Neg; op <= Xor; op++ {
		if op.Name() == s {
			return op, true
		}
	}
	return 0, false
}
