// Package mangle renders a generic instantiation into the canonical key
// string a prespecialization table is keyed by.
//
// The canonical form is the template name followed by its arguments in
// angle brackets, separated by ", ", applied recursively:
//
//	Dictionary<String, Array<Int>>
package mangle

import (
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyName = errors.New("type name is empty")
var ErrArity = errors.New("argument count does not match descriptor arity")
var ErrInvalidName = errors.New("type name contains a reserved character")

// Descriptor identifies a generic template independently of its arguments.
type Descriptor struct {
	Name  string
	Arity int
}

// Type is a concrete type argument, itself possibly a generic instantiation.
type Type struct {
	Name string
	Args []Type
}

// Named returns a non-generic type.
func Named(name string) Type {
	return Type{Name: name}
}

// Generic returns an instantiation of name with args.
func Generic(name string, args ...Type) Type {
	return Type{Name: name, Args: args}
}

func (t Type) String() string {
	var sb strings.Builder
	writeType(&sb, t)
	return sb.String()
}

// Canonical encodes instantiations in the canonical key form.
type Canonical struct{}

// Encode renders desc applied to args. Arguments are order significant.
func (Canonical) Encode(desc Descriptor, args []Type) (string, error) {
	if err := validateName(desc.Name); err != nil {
		return "", err
	}
	if len(args) != desc.Arity {
		return "", fmt.Errorf("%w: %s takes %d, got %d", ErrArity, desc.Name, desc.Arity, len(args))
	}
	for _, a := range args {
		if err := validateType(a); err != nil {
			return "", err
		}
	}

	if len(args) == 0 {
		return desc.Name, nil
	}

	return Generic(desc.Name, args...).String(), nil
}

func writeType(sb *strings.Builder, t Type) {
	sb.WriteString(t.Name)
	if len(t.Args) == 0 {
		return
	}

	sb.WriteByte('<')
	for i, a := range t.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeType(sb, a)
	}
	sb.WriteByte('>')
}

func validateType(t Type) error {
	if err := validateName(t.Name); err != nil {
		return err
	}
	for _, a := range t.Args {
		if err := validateType(a); err != nil {
			return err
		}
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if strings.ContainsAny(name, "<>, \x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Parse reads a canonical key back into a Type. It exists for tooling that
// accepts keys typed by a human and normalises their spacing.
func Parse(s string) (Type, error) {
	p := &parser{src: s}
	t, err := p.parseType()
	if err != nil {
		return Type{}, err
	}

	p.skipSpace()
	if p.pos != len(p.src) {
		return Type{}, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos:], p.pos)
	}

	return t, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) parseType() (Type, error) {
	p.skipSpace()

	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("<>, \x00", rune(p.src[p.pos])) {
		p.pos++
	}

	t := Type{Name: p.src[start:p.pos]}
	if t.Name == "" {
		return Type{}, fmt.Errorf("%w at offset %d", ErrEmptyName, start)
	}

	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '<' {
		return t, nil
	}
	p.pos++

	for {
		arg, err := p.parseType()
		if err != nil {
			return Type{}, err
		}
		t.Args = append(t.Args, arg)

		p.skipSpace()
		if p.pos >= len(p.src) {
			return Type{}, fmt.Errorf("unterminated argument list for %s", t.Name)
		}

		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '>':
			p.pos++
			return t, nil
		default:
			return Type{}, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos], p.pos)
		}
	}
}
