// Package classfiletest synthesizes class files for tests.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode/utf16"

	"github.com/phobologic/classhull/internal/classfile"
)

// Builder assembles a minimal class file: header, constant pool, this/super
// class and interfaces. Names may be given in dotted or internal form.
type Builder struct {
	entries    [][]byte
	slots      uint16
	utf8s      map[string]uint16
	classes    map[string]uint16
	this       uint16
	superName  string
	interfaces []uint16
	major      uint16
}

// New starts a class file for the named class with java.lang.Object as superclass.
func New(name string) *Builder {
	b := &Builder{
		slots:   1,
		utf8s:   make(map[string]uint16),
		classes: make(map[string]uint16),
		major:   52,
	}
	b.this = b.Class(name)
	b.superName = "java.lang.Object"
	return b
}

// Major sets the class file major version.
func (b *Builder) Major(v uint16) *Builder {
	b.major = v
	return b
}

// Super replaces the superclass. An empty name clears it (as in java.lang.Object).
// The superclass constant is added to the pool last, when the class is rendered.
func (b *Builder) Super(name string) *Builder {
	b.superName = name
	return b
}

// Interface adds a directly implemented interface.
func (b *Builder) Interface(name string) *Builder {
	b.interfaces = append(b.interfaces, b.Class(name))
	return b
}

// UTF8 adds (or reuses) a Utf8 constant and returns its index.
func (b *Builder) UTF8(s string) uint16 {
	if idx, ok := b.utf8s[s]; ok {
		return idx
	}
	enc := encodeModifiedUTF8(s)
	var buf bytes.Buffer
	buf.WriteByte(byte(classfile.TagUtf8))
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(enc)))
	buf.Write(enc)
	idx := b.add(buf.Bytes(), 1)
	b.utf8s[s] = idx
	return idx
}

// Class adds (or reuses) a Class constant and returns its index. Array
// descriptors such as "[Ljava/lang/String;" are stored verbatim.
func (b *Builder) Class(name string) uint16 {
	internal := name
	if !strings.HasPrefix(name, "[") {
		internal = classfile.InternalName(name)
	}
	if idx, ok := b.classes[internal]; ok {
		return idx
	}
	nameIdx := b.UTF8(internal)
	idx := b.add(u1u2(classfile.TagClass, nameIdx), 1)
	b.classes[internal] = idx
	return idx
}

// String adds a String constant.
func (b *Builder) String(s string) *Builder {
	b.add(u1u2(classfile.TagString, b.UTF8(s)), 1)
	return b
}

// Long adds a Long constant, which occupies two pool slots.
func (b *Builder) Long(v int64) *Builder {
	var buf bytes.Buffer
	buf.WriteByte(byte(classfile.TagLong))
	_ = binary.Write(&buf, binary.BigEndian, v)
	b.add(buf.Bytes(), 2)
	return b
}

// Integer adds an Integer constant.
func (b *Builder) Integer(v int32) *Builder {
	var buf bytes.Buffer
	buf.WriteByte(byte(classfile.TagInteger))
	_ = binary.Write(&buf, binary.BigEndian, v)
	b.add(buf.Bytes(), 1)
	return b
}

// NameAndType adds a NameAndType constant and returns its index.
func (b *Builder) NameAndType(name, descriptor string) uint16 {
	n := b.UTF8(name)
	d := b.UTF8(descriptor)
	return b.add(u1u2u2(classfile.TagNameAndType, n, d), 1)
}

// Field adds a Fieldref to owner.name with the given descriptor.
func (b *Builder) Field(owner, name, descriptor string) *Builder {
	return b.ref(classfile.TagFieldref, owner, name, descriptor)
}

// Method adds a Methodref to owner.name with the given descriptor.
func (b *Builder) Method(owner, name, descriptor string) *Builder {
	return b.ref(classfile.TagMethodref, owner, name, descriptor)
}

// InterfaceMethod adds an InterfaceMethodref to owner.name with the given descriptor.
func (b *Builder) InterfaceMethod(owner, name, descriptor string) *Builder {
	return b.ref(classfile.TagInterfaceMethodref, owner, name, descriptor)
}

// MethodType adds a MethodType constant. Its descriptor is not a class
// reference source for the hull.
func (b *Builder) MethodType(descriptor string) *Builder {
	b.add(u1u2(classfile.TagMethodType, b.UTF8(descriptor)), 1)
	return b
}

func (b *Builder) ref(tag classfile.Tag, owner, name, descriptor string) *Builder {
	cls := b.Class(owner)
	nat := b.NameAndType(name, descriptor)
	b.add(u1u2u2(tag, cls, nat), 1)
	return b
}

// Bytes renders the class file.
func (b *Builder) Bytes() []byte {
	var super uint16
	if b.superName != "" {
		super = b.Class(b.superName)
	}

	var buf bytes.Buffer
	w := func(v any) { _ = binary.Write(&buf, binary.BigEndian, v) }

	w(uint32(classfile.Magic))
	w(uint16(0))
	w(b.major)
	w(b.slots)
	for _, e := range b.entries {
		buf.Write(e)
	}
	w(uint16(0x0021)) // ACC_PUBLIC | ACC_SUPER
	w(b.this)
	w(super)
	w(uint16(len(b.interfaces)))
	for _, i := range b.interfaces {
		w(i)
	}
	w(uint16(0)) // fields
	w(uint16(0)) // methods
	w(uint16(0)) // attributes
	return buf.Bytes()
}

// Parse renders and decodes the class file, panicking on failure.
func (b *Builder) Parse() *classfile.ClassFile {
	cf, err := classfile.ParseBytes(b.Bytes())
	if err != nil {
		panic(err)
	}
	return cf
}

func (b *Builder) add(entry []byte, width uint16) uint16 {
	idx := b.slots
	b.entries = append(b.entries, entry)
	b.slots += width
	return idx
}

func u1u2(tag classfile.Tag, a uint16) []byte {
	return []byte{byte(tag), byte(a >> 8), byte(a)}
}

func u1u2u2(tag classfile.Tag, a, c uint16) []byte {
	return []byte{byte(tag), byte(a >> 8), byte(a), byte(c >> 8), byte(c)}
}

func encodeModifiedUTF8(s string) []byte {
	var out []byte
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u != 0 && u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, byte(0xC0|u>>6), byte(0x80|u&0x3F))
		default:
			out = append(out, byte(0xE0|u>>12), byte(0x80|(u>>6)&0x3F), byte(0x80|u&0x3F))
		}
	}
	return out
}
