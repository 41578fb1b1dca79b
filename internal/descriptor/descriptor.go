// Package descriptor decodes JVM field and method descriptors.
package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

// Kind discriminates the variants of Type.
type Kind uint8

const (
	Primitive Kind = iota + 1
	Object
	Array
)

// maxArrayDims is the JVM limit on array dimensions in a descriptor.
const maxArrayDims = 255

var primitiveNames = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

// Type is a decoded field type. Exactly one of Code, Class or Elem is set,
// according to Kind.
type Type struct {
	Kind  Kind
	Code  byte   // Primitive: descriptor code, e.g. 'I'
	Class string // Object: dot-separated class name
	Elem  *Type  // Array: component type
}

// PrimitiveOf returns the primitive type for a descriptor code such as 'I'.
func PrimitiveOf(code byte) Type { return Type{Kind: Primitive, Code: code} }

// ObjectOf returns the object type for a dot- or slash-separated class name.
func ObjectOf(class string) Type {
	return Type{Kind: Object, Class: strings.ReplaceAll(class, "/", ".")}
}

// ArrayOf returns an array type with the given component type.
func ArrayOf(elem Type) Type { return Type{Kind: Array, Elem: &elem} }

// Element returns the innermost component of an array type, or t itself.
func (t Type) Element() Type {
	for t.Kind == Array {
		t = *t.Elem
	}
	return t
}

// ReferencedClass returns the class name t refers to: the class of an object
// type or of an array's innermost element. Primitives refer to nothing.
func (t Type) ReferencedClass() (string, bool) {
	e := t.Element()
	if e.Kind == Object {
		return e.Class, true
	}
	return "", false
}

// String renders t in Java source form, e.g. "java.lang.String[][]".
func (t Type) String() string {
	switch t.Kind {
	case Primitive:
		return primitiveNames[t.Code]
	case Object:
		return t.Class
	case Array:
		return t.Elem.String() + "[]"
	}
	return "<invalid>"
}

// ErrMalformed matches every *MalformedError via errors.Is.
var ErrMalformed = errors.New("malformed descriptor")

// MalformedError reports a descriptor that does not follow the grammar.
type MalformedError struct {
	Descriptor string
	Pos        int
	Msg        string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed descriptor %q at offset %d: %s", e.Descriptor, e.Pos, e.Msg)
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// ParseField decodes a field descriptor such as "[Ljava/lang/String;".
func ParseField(desc string) (Type, error) {
	p := parser{s: desc}
	t, err := p.fieldType(false)
	if err != nil {
		return Type{}, err
	}
	if p.pos != len(desc) {
		return Type{}, p.errorf("trailing characters")
	}
	return t, nil
}

// ParseMethod decodes a method descriptor such as "(I[J)Ljava/lang/String;".
// The return type may be void ('V'); parameters may not.
func ParseMethod(desc string) (ret Type, params []Type, err error) {
	p := parser{s: desc}
	if !p.consume('(') {
		return Type{}, nil, p.errorf("expected '('")
	}
	for !p.consume(')') {
		if p.pos >= len(desc) {
			return Type{}, nil, p.errorf("unterminated parameter list")
		}
		t, err := p.fieldType(false)
		if err != nil {
			return Type{}, nil, err
		}
		params = append(params, t)
	}
	if ret, err = p.fieldType(true); err != nil {
		return Type{}, nil, err
	}
	if p.pos != len(desc) {
		return Type{}, nil, p.errorf("trailing characters")
	}
	return ret, params, nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) consume(c byte) bool {
	if p.pos < len(p.s) && p.s[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...any) error {
	return &MalformedError{Descriptor: p.s, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) fieldType(allowVoid bool) (Type, error) {
	if p.pos >= len(p.s) {
		return Type{}, p.errorf("unexpected end of descriptor")
	}

	c := p.s[p.pos]
	switch c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		p.pos++
		return PrimitiveOf(c), nil
	case 'V':
		if !allowVoid {
			return Type{}, p.errorf("void is only valid as a return type")
		}
		p.pos++
		return PrimitiveOf(c), nil
	case 'L':
		end := strings.IndexByte(p.s[p.pos:], ';')
		if end < 0 {
			return Type{}, p.errorf("unterminated class name")
		}
		name := p.s[p.pos+1 : p.pos+end]
		if name == "" {
			return Type{}, p.errorf("empty class name")
		}
		if strings.ContainsAny(name, "[(.") {
			return Type{}, p.errorf("invalid character in class name %q", name)
		}
		p.pos += end + 1
		return ObjectOf(name), nil
	case '[':
		start := p.pos
		dims := 0
		for p.consume('[') {
			dims++
		}
		if dims > maxArrayDims {
			p.pos = start
			return Type{}, p.errorf("array has %d dimensions, limit is %d", dims, maxArrayDims)
		}
		t, err := p.fieldType(false)
		if err != nil {
			return Type{}, err
		}
		for range dims {
			t = ArrayOf(t)
		}
		return t, nil
	}
	return Type{}, p.errorf("unexpected character %q", c)
}
