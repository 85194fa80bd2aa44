// Package jbdesc parses JVM field and method descriptors (JVMS 4.3) into
// the word counts and abstract kinds jbframe needs to compute the stack
// effect of field accesses and method invocations, and the local-variable
// layout jbmethod needs to seed a method's initial frame.
package jbdesc

import "fmt"

// Kind classifies one descriptor field for frame-seeding purposes.
type Kind int

const (
	KindInt Kind = iota
	KindLong
	KindFloat
	KindDouble
	KindRef
)

// Words reports how many local-variable slots or stack words a value of
// this kind occupies (JVMS 2.6.1/2.6.2: long and double occupy two).
func (k Kind) Words() int {
	if k == KindLong || k == KindDouble {
		return 2
	}
	return 1
}

// Param is one formal parameter of a method descriptor.
type Param struct {
	Kind         Kind
	InternalName string // populated only when Kind == KindRef: a class's internal name, or an array type's full descriptor (e.g. "[I")
}

// ParseMethod splits a method descriptor such as "(ILjava/lang/String;)V"
// into its parameter kinds and return kind. ok is false if desc is
// malformed.
func ParseMethod(desc string) (params []Param, ret Param, ok bool) {
	if len(desc) < 2 || desc[0] != '(' {
		return nil, Param{}, false
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		p, next, ok2 := parseOne(desc, i)
		if !ok2 {
			return nil, Param{}, false
		}
		params = append(params, p)
		i = next
	}
	if i >= len(desc) {
		return nil, Param{}, false
	}
	i++ // skip ')'
	if i >= len(desc) {
		return nil, Param{}, false
	}
	if desc[i] == 'V' {
		return params, Param{Kind: KindInt}, true // void: caller checks ReturnsVoid separately
	}
	r, _, ok2 := parseOne(desc, i)
	if !ok2 {
		return nil, Param{}, false
	}
	return params, r, true
}

// ReturnsVoid reports whether desc's return type is V.
func ReturnsVoid(desc string) bool {
	i := indexRParen(desc)
	return i >= 0 && i+1 < len(desc) && desc[i+1] == 'V'
}

func indexRParen(desc string) int {
	for i := 0; i < len(desc); i++ {
		if desc[i] == ')' {
			return i
		}
	}
	return -1
}

// ArgWords returns the total number of local-variable/stack words occupied
// by a method descriptor's parameters, in left-to-right order.
func ArgWords(params []Param) int {
	n := 0
	for _, p := range params {
		n += p.Kind.Words()
	}
	return n
}

func parseOne(desc string, i int) (Param, int, bool) {
	if i >= len(desc) {
		return Param{}, i, false
	}
	switch desc[i] {
	case 'B', 'C', 'I', 'S', 'Z':
		return Param{Kind: KindInt}, i + 1, true
	case 'F':
		return Param{Kind: KindFloat}, i + 1, true
	case 'J':
		return Param{Kind: KindLong}, i + 1, true
	case 'D':
		return Param{Kind: KindDouble}, i + 1, true
	case 'L':
		j := i + 1
		for j < len(desc) && desc[j] != ';' {
			j++
		}
		if j >= len(desc) {
			return Param{}, i, false
		}
		return Param{Kind: KindRef, InternalName: desc[i+1 : j]}, j + 1, true
	case '[':
		j := i + 1
		for j < len(desc) && desc[j] == '[' {
			j++
		}
		_, next, ok := parseOne(desc, j)
		if !ok {
			return Param{}, i, false
		}
		return Param{Kind: KindRef, InternalName: desc[i:next]}, next, true
	default:
		return Param{}, i, false
	}
}

// ParseField parses a field descriptor such as "[I" or "Ljava/lang/String;".
func ParseField(desc string) (Param, bool) {
	if desc == "" {
		return Param{}, false
	}
	p, next, ok := parseOne(desc, 0)
	if !ok || next != len(desc) {
		return Param{}, false
	}
	return p, true
}

// String renders a Param for diagnostics.
func (p Param) String() string {
	switch p.Kind {
	case KindInt:
		return "I"
	case KindLong:
		return "J"
	case KindFloat:
		return "F"
	case KindDouble:
		return "D"
	default:
		return fmt.Sprintf("L%s;", p.InternalName)
	}
}
