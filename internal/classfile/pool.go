package classfile

import (
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// Tag identifies the kind of a constant pool entry.
type Tag uint8

// Constant pool tags, as assigned by the JVM specification.
const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

var tagNames = map[Tag]string{
	TagUtf8:               "Utf8",
	TagInteger:            "Integer",
	TagFloat:              "Float",
	TagLong:               "Long",
	TagDouble:             "Double",
	TagClass:              "Class",
	TagString:             "String",
	TagFieldref:           "Fieldref",
	TagMethodref:          "Methodref",
	TagInterfaceMethodref: "InterfaceMethodref",
	TagNameAndType:        "NameAndType",
	TagMethodHandle:       "MethodHandle",
	TagMethodType:         "MethodType",
	TagDynamic:            "Dynamic",
	TagInvokeDynamic:      "InvokeDynamic",
	TagModule:             "Module",
	TagPackage:            "Package",
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// Constant is one constant pool entry. Which fields are meaningful depends on Tag:
//
//	Utf8                        Text
//	Integer, Float, Long, Double Raw (bit pattern)
//	Class, Module, Package      NameIndex
//	String                      StringIndex
//	Fieldref, Methodref,
//	InterfaceMethodref          ClassIndex, NameAndTypeIndex
//	NameAndType                 NameIndex, DescriptorIndex
//	MethodHandle                RefKind, RefIndex
//	MethodType                  DescriptorIndex
//	Dynamic, InvokeDynamic      BootstrapIndex, NameAndTypeIndex
//
// The zero Tag marks the unused slot after a Long or Double and slot 0.
type Constant struct {
	Tag              Tag
	Text             string
	Raw              uint64
	NameIndex        uint16
	StringIndex      uint16
	ClassIndex       uint16
	NameAndTypeIndex uint16
	DescriptorIndex  uint16
	RefKind          uint8
	RefIndex         uint16
	BootstrapIndex   uint16
}

// Pool is a decoded constant pool. Valid indices run from 1 to Len()-1.
type Pool struct {
	entries []Constant
}

// NewPool builds a pool from entries, where entries[0] is the unused slot.
func NewPool(entries []Constant) *Pool {
	return &Pool{entries: entries}
}

// Len returns constant_pool_count: one more than the highest valid index.
func (p *Pool) Len() int { return len(p.entries) }

// At returns the entry at i without validation. Unused slots have Tag 0.
func (p *Pool) At(i int) Constant { return p.entries[i] }

// Entry returns the entry at i, which must carry the given tag.
func (p *Pool) Entry(i uint16, want Tag) (Constant, error) {
	if i == 0 || int(i) >= len(p.entries) {
		return Constant{}, fmt.Errorf("constant pool index %d out of range [1,%d)", i, len(p.entries))
	}
	c := p.entries[i]
	if c.Tag != want {
		return Constant{}, fmt.Errorf("constant #%d: expected %s, found %s", i, want, c.Tag)
	}
	return c, nil
}

// UTF8 returns the text of the Utf8 entry at i.
func (p *Pool) UTF8(i uint16) (string, error) {
	c, err := p.Entry(i, TagUtf8)
	if err != nil {
		return "", err
	}
	return c.Text, nil
}

// ClassName returns the internal-form name stored by the Class entry at i.
// Array classes come back in descriptor form, e.g. "[Ljava/lang/String;".
func (p *Pool) ClassName(i uint16) (string, error) {
	c, err := p.Entry(i, TagClass)
	if err != nil {
		return "", err
	}
	return p.UTF8(c.NameIndex)
}

// NameAndType resolves the NameAndType entry at i to its member name and descriptor.
func (p *Pool) NameAndType(i uint16) (name, descriptor string, err error) {
	c, err := p.Entry(i, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.UTF8(c.NameIndex); err != nil {
		return "", "", err
	}
	if descriptor, err = p.UTF8(c.DescriptorIndex); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

var errBadUTF8 = errors.New("malformed modified UTF-8")

// decodeModifiedUTF8 decodes the JVM's modified UTF-8: NUL is encoded as
// C0 80 and supplementary characters as surrogate pairs of 3-byte sequences.
func decodeModifiedUTF8(b []byte) (string, error) {
	ascii := true
	for _, c := range b {
		if c == 0 || c >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b), nil
	}

	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == 0:
			return "", errBadUTF8
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", errBadUTF8
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", errBadUTF8
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", errBadUTF8
		}
	}
	return string(utf16.Decode(units)), nil
}
