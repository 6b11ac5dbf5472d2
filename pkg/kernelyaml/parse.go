package kernelyaml

import (
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

// ParseKind parses a kind expression. Names resolve through types.
func ParseKind(s string, types map[string]kind.Kind) (kind.Kind, error) {
	p := &scanner{s: s}

	k, err := p.kind(types)
	if err != nil {
		return nil, errors.Wrap(err, "kind %q", s)
	}

	p.space()
	if !p.done() {
		return nil, errors.New("kind %q: unexpected %q", s, p.rest())
	}

	return k, nil
}

// ParseLiteral parses a literal operand.
func ParseLiteral(s string, types map[string]kind.Kind) (typedbits.TypedBits, error) {
	if i := strings.Index(s, "::"); i >= 0 {
		k, ok := types[s[:i]]
		en, isEnum := k.(kind.Enum)
		if !ok || !isEnum {
			return typedbits.TypedBits{}, errors.New("literal %q: %s is not an enum", s, s[:i])
		}
		return typedbits.EnumValue(en, s[i+2:])
	}

	var k kind.Kind = kind.IntegerLiteral
	digits := s

	if i := strings.LastIndexByte(s, '_'); i > 0 {
		var err error
		k, err = ParseKind(s[i+1:], types)
		if err != nil {
			return typedbits.TypedBits{}, errors.Wrap(err, "literal %q", s)
		}
		digits = s[:i]
	}

	if !kind.IsPrimitive(k) {
		return typedbits.TypedBits{}, errors.New("literal %q: %s is not a numeric kind", s, k)
	}

	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}

	v, err := parseMagnitude(digits)
	if err != nil {
		return typedbits.TypedBits{}, errors.Wrap(err, "literal %q", s)
	}

	w := k.BitWidth()
	signed := kind.IsSigned(k)

	switch {
	case neg && !signed:
		return typedbits.TypedBits{}, errors.New("literal %q: negative value for unsigned %s", s, k)
	case neg:
		// -2^(w-1) is the most negative value
		if m := new(uint256.Int).Sub(v, uint256.NewInt(1)); !v.IsZero() && m.BitLen() > w-1 {
			return typedbits.TypedBits{}, errors.New("literal %q does not fit in %s", s, k)
		}
		v = new(uint256.Int).Neg(v)
	case signed && v.BitLen() > w-1, !signed && v.BitLen() > w:
		return typedbits.TypedBits{}, errors.New("literal %q does not fit in %s", s, k)
	}

	return typedbits.FromUint256(k, v), nil
}

func parseMagnitude(s string) (*uint256.Int, error) {
	switch {
	case strings.HasPrefix(s, "0x"):
		return uint256.FromHex(s)
	case strings.HasPrefix(s, "0b"):
		if len(s) == 2 || len(s) > 2+256 {
			return nil, errors.New("bad binary number %q", s)
		}
		v := new(uint256.Int)
		for _, c := range s[2:] {
			if c != '0' && c != '1' {
				return nil, errors.New("bad binary digit %q", c)
			}
			v.Lsh(v, 1)
			if c == '1' {
				v.Or(v, uint256.NewInt(1))
			}
		}
		return v, nil
	}

	return uint256.FromDecimal(s)
}

// parsePath parses a projection path. Dynamic indices name registers,
// resolved through reg.
func parsePath(s string, reg func(string) (symtab.Ref, error)) (kind.Path, error) {
	p := &scanner{s: s}
	var path kind.Path

	for {
		p.space()
		if p.done() {
			return path, nil
		}

		switch {
		case p.eat(".val()"):
			path = append(path, kind.SignalValue{})

		case p.eat("."):
			if n, ok := p.number(); ok {
				path = append(path, kind.TupleIndex{Index: n})
				break
			}
			name := p.ident()
			if name == "" {
				return nil, errors.New("path %q: expected field after '.'", s)
			}
			path = append(path, kind.Member{Name: name})

		case p.eat("["):
			p.space()
			if n, ok := p.number(); ok {
				path = append(path, kind.Index{Index: n})
			} else {
				name := p.ident()
				if name == "" {
					return nil, errors.New("path %q: expected index", s)
				}
				r, err := reg(name)
				if err != nil {
					return nil, errors.Wrap(err, "path %q", s)
				}
				path = append(path, kind.DynamicIndex{Slot: r})
			}
			p.space()
			if !p.eat("]") {
				return nil, errors.New("path %q: expected ']'", s)
			}

		case p.eat("#"):
			if name := p.ident(); name != "" {
				path = append(path, kind.EnumPayload{Variant: name})
			} else {
				path = append(path, kind.Discriminant{})
			}

		default:
			return nil, errors.New("path %q: unexpected %q", s, p.rest())
		}
	}
}

type scanner struct {
	s   string
	pos int
}

func (p *scanner) done() bool   { return p.pos >= len(p.s) }
func (p *scanner) rest() string { return p.s[p.pos:] }

func (p *scanner) space() {
	for !p.done() && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *scanner) eat(tok string) bool {
	if strings.HasPrefix(p.rest(), tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *scanner) ident() string {
	start := p.pos
	for !p.done() {
		c := p.s[p.pos]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || p.pos > start && c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	return p.s[start:p.pos]
}

func (p *scanner) number() (int, bool) {
	start := p.pos
	for !p.done() && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, false
	}
	n, err := strconv.Atoi(p.s[start:p.pos])
	if err != nil {
		p.pos = start
		return 0, false
	}
	return n, true
}

func (p *scanner) kind(types map[string]kind.Kind) (kind.Kind, error) {
	p.space()

	switch {
	case p.eat("("):
		p.space()
		if p.eat(")") {
			return kind.Empty{}, nil
		}

		var t kind.Tuple
		for {
			k, err := p.kind(types)
			if err != nil {
				return nil, err
			}
			t.Elements = append(t.Elements, k)

			p.space()
			if p.eat(")") {
				return t, nil
			}
			if !p.eat(",") {
				return nil, errors.New("expected ',' or ')' at %q", p.rest())
			}
			p.space()
			if p.eat(")") {
				return t, nil
			}
		}

	case p.eat("["):
		base, err := p.kind(types)
		if err != nil {
			return nil, err
		}
		p.space()
		if !p.eat(";") {
			return nil, errors.New("expected ';' at %q", p.rest())
		}
		p.space()
		n, ok := p.number()
		if !ok {
			return nil, errors.New("expected array size at %q", p.rest())
		}
		p.space()
		if !p.eat("]") {
			return nil, errors.New("expected ']' at %q", p.rest())
		}
		return kind.Array{Base: base, Size: n}, nil
	}

	name := p.ident()

	switch {
	case name == "":
		return nil, errors.New("expected kind at %q", p.rest())

	case name == "Signal":
		p.space()
		if !p.eat("<") {
			return nil, errors.New("expected '<' after Signal")
		}
		inner, err := p.kind(types)
		if err != nil {
			return nil, err
		}
		p.space()
		if !p.eat(",") {
			return nil, errors.New("expected ',' at %q", p.rest())
		}
		p.space()
		c, err := kind.ParseColor(p.ident())
		if err != nil {
			return nil, err
		}
		p.space()
		if !p.eat(">") {
			return nil, errors.New("expected '>' at %q", p.rest())
		}
		return kind.Signal{Inner: inner, Color: c}, nil
	}

	if k, ok := types[name]; ok {
		return k, nil
	}

	if len(name) > 1 && (name[0] == 'b' || name[0] == 's') {
		if w, err := strconv.Atoi(name[1:]); err == nil && w > 0 {
			if name[0] == 's' {
				return kind.Signed{Width: w}, nil
			}
			return kind.Bits{Width: w}, nil
		}
	}

	return nil, errors.New("unknown kind %s", name)
}
