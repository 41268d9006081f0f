// Package assembler translates toy-ISA source text into a bit-string
// listing: one line of '0'/'1' characters per source line, each line's
// width equal to its instruction's full encoded width (opcode plus any
// trailing register-pack or immediate bytes).
package assembler

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tinyarch/isasim/internal/bitstring"
	"github.com/tinyarch/isasim/internal/isa"
)

// ErrorKind enumerates the AssemblerError categories.
type ErrorKind string

const (
	MissingFile         ErrorKind = "MissingFile"
	UnknownIsa          ErrorKind = "UnknownIsa"
	UnknownMnemonic     ErrorKind = "UnknownMnemonic"
	InvalidOperand      ErrorKind = "InvalidOperand"
	ImmediateOutOfRange ErrorKind = "ImmediateOutOfRange"
	MissingComma        ErrorKind = "MissingComma"
)

// AssemblerError is the one error type this package returns; the
// Assembler never silently repairs input.
type AssemblerError struct {
	Kind ErrorKind
	Line int // 1-based source line number, 0 if not line-specific
	Msg  string
}

func (e *AssemblerError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("assembler: line %d: %s: %s", e.Line, e.Kind, e.Msg)
	}
	return fmt.Sprintf("assembler: %s: %s", e.Kind, e.Msg)
}

func errf(kind ErrorKind, line int, format string, args ...any) *AssemblerError {
	return &AssemblerError{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// token's structural shape, determined purely from its lexical form.
type tokenShape string

const (
	shapeReg        tokenShape = "reg"        // %NAME
	shapeBracketReg tokenShape = "bracketreg" // [%NAME]
	shapeBracketOff tokenShape = "bracketoff" // [%NAME+N] / [%NAME-N]
	shapeRegOff     tokenShape = "regoff"     // %NAME+N / %NAME-N
	shapeBracketImm tokenShape = "bracketimm" // [$N]
	shapeImm        tokenShape = "imm"        // $N or bare +N/-N
)

type operand struct {
	shape   tokenShape
	regName string
	offset  int64
	value   int64
	raw     string
}

// Assemble translates source into one bit-listing line per source line.
// Blank source lines produce blank output lines.
func Assemble(d *isa.Descriptor, source string) ([]string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, raw := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			out = append(out, "")
			continue
		}
		bits, err := assembleLine(d, trimmed, lineNo)
		if err != nil {
			return nil, err
		}
		slog.Debug("assemble line", "line", lineNo, "source", trimmed, "width", bits.Width())
		out = append(out, bits.String())
	}
	return out, nil
}

func assembleLine(d *isa.Descriptor, line string, lineNo int) (bitstring.BitString, error) {
	mnemonic, operandText, err := splitMnemonic(line, lineNo)
	if err != nil {
		return bitstring.BitString{}, err
	}
	candidates, ok := d.ByMnemonic[mnemonic]
	if !ok {
		return bitstring.BitString{}, errf(UnknownMnemonic, lineNo, "unknown mnemonic %q for isa %s", mnemonic, d.ISA)
	}

	operands, err := parseOperands(operandText, lineNo)
	if err != nil {
		return bitstring.BitString{}, err
	}

	for _, idx := range candidates {
		inst := d.Instructions[idx]
		if matches(d, inst, operands) {
			return encode(d, inst, operands, lineNo)
		}
	}
	return bitstring.BitString{}, errf(InvalidOperand, lineNo, "no %q overload accepts operands %v", mnemonic, operandText)
}

func splitMnemonic(line string, lineNo int) (mnemonic, rest string, err error) {
	fields := strings.SplitN(line, " ", 2)
	mnemonic = strings.ToLower(strings.TrimSpace(fields[0]))
	if mnemonic == "" {
		return "", "", errf(InvalidOperand, lineNo, "empty mnemonic")
	}
	if len(fields) == 1 {
		// A zero-operand line may carry a bare terminating comma ("ret,").
		return strings.TrimSuffix(mnemonic, ","), "", nil
	}
	return mnemonic, strings.TrimSpace(fields[1]), nil
}

// parseOperands splits a comma-terminated operand list and classifies
// each token. Every operand, including the last, must be followed by a
// comma; a bare non-final operand missing its comma collapses into a
// whitespace-containing field and is rejected as MissingComma.
func parseOperands(text string, lineNo int) ([]operand, error) {
	if text == "" {
		return nil, nil
	}
	if !strings.HasSuffix(text, ",") {
		return nil, errf(MissingComma, lineNo, "operand list %q must end with a comma", text)
	}
	text = strings.TrimSuffix(text, ",")
	fields := strings.Split(text, ",")
	operands := make([]operand, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || strings.ContainsAny(f, " \t") {
			return nil, errf(MissingComma, lineNo, "malformed operand %q: missing comma between operands", f)
		}
		op, err := classifyToken(f, lineNo)
		if err != nil {
			return nil, err
		}
		operands = append(operands, op)
	}
	return operands, nil
}

func classifyToken(tok string, lineNo int) (operand, error) {
	switch {
	case strings.HasPrefix(tok, "%"):
		if idx := strings.IndexAny(tok, "+-"); idx > 0 {
			name := tok[1:idx]
			off, err := parseSignedLiteral(tok[idx:], lineNo)
			if err != nil {
				return operand{}, err
			}
			return operand{shape: shapeRegOff, regName: strings.ToUpper(name), offset: off, raw: tok}, nil
		}
		return operand{shape: shapeReg, regName: strings.ToUpper(tok[1:]), raw: tok}, nil

	case strings.HasPrefix(tok, "[") && strings.HasSuffix(tok, "]"):
		inner := tok[1 : len(tok)-1]
		if strings.HasPrefix(inner, "%") {
			if idx := strings.IndexAny(inner, "+-"); idx > 0 {
				name := inner[1:idx]
				off, err := parseSignedLiteral(inner[idx:], lineNo)
				if err != nil {
					return operand{}, err
				}
				return operand{shape: shapeBracketOff, regName: strings.ToUpper(name), offset: off, raw: tok}, nil
			}
			return operand{shape: shapeBracketReg, regName: strings.ToUpper(inner[1:]), raw: tok}, nil
		}
		if strings.HasPrefix(inner, "$") {
			v, err := parseSignedLiteral(inner, lineNo)
			if err != nil {
				return operand{}, err
			}
			return operand{shape: shapeBracketImm, value: v, raw: tok}, nil
		}
		return operand{}, errf(InvalidOperand, lineNo, "unrecognized bracketed operand %q", tok)

	case strings.HasPrefix(tok, "$"):
		v, err := parseSignedLiteral(tok, lineNo)
		if err != nil {
			return operand{}, err
		}
		return operand{shape: shapeImm, value: v, raw: tok}, nil

	case isBareSignedDecimal(tok):
		v, err := parseSignedLiteral(tok, lineNo)
		if err != nil {
			return operand{}, err
		}
		return operand{shape: shapeImm, value: v, raw: tok}, nil

	default:
		return operand{}, errf(InvalidOperand, lineNo, "unrecognized operand %q", tok)
	}
}

// isBareSignedDecimal reports whether tok is a jump-distance style
// literal written without the "$" immediate prefix: an optional leading
// sign followed by one or more digits (e.g. "+2", "-1", "10").
func isBareSignedDecimal(tok string) bool {
	i := 0
	if tok != "" && (tok[0] == '+' || tok[0] == '-') {
		i = 1
	}
	if i == len(tok) {
		return false
	}
	for ; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return false
		}
	}
	return true
}

// parseSignedLiteral parses a "$N"/"+N"/"-N" style signed decimal literal.
func parseSignedLiteral(tok string, lineNo int) (int64, error) {
	tok = strings.TrimPrefix(tok, "$")
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, errf(InvalidOperand, lineNo, "invalid integer literal %q", tok)
	}
	return v, nil
}

func matches(d *isa.Descriptor, inst isa.Instruction, operands []operand) bool {
	written := writtenAliases(inst.Operands)
	if len(written) != len(operands) {
		return false
	}
	for i, alias := range written {
		if !aliasMatchesToken(d, alias, operands[i]) {
			return false
		}
	}
	return true
}

func writtenAliases(aliases []string) []string {
	var out []string
	for _, a := range aliases {
		if isa.ClassifyOperand(a).Written {
			out = append(out, a)
		}
	}
	return out
}

func aliasMatchesToken(d *isa.Descriptor, alias string, op operand) bool {
	switch alias {
	case "reg":
		_, ok := d.RegByName[op.regName]
		return op.shape == shapeReg && ok && d.RegByName[op.regName].Code != ""
	case "memreg", "simdreg":
		_, ok := d.RegByName[op.regName]
		return op.shape == shapeBracketReg && ok
	case "memregoff":
		_, ok := d.RegByName[op.regName]
		return op.shape == shapeBracketOff && ok
	case "regoff":
		_, ok := d.RegByName[op.regName]
		return op.shape == shapeRegOff && ok
	case "memimm":
		return op.shape == shapeBracketImm
	case "imm":
		return op.shape == shapeImm
	default:
		if _, ok := immSuffixWidthExported(alias); ok {
			return op.shape == shapeImm
		}
		return false
	}
}

func immSuffixWidthExported(alias string) (int, bool) {
	shape := isa.ClassifyOperand(alias)
	return shape.InlineWidth, shape.InlineWidth > 0
}
