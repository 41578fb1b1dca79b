// Package classfile decodes the header and constant pool of a JVM class file.
//
// Only the parts needed for dependency analysis are decoded: fields, methods
// and attributes are left unread.
package classfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Magic is the first four bytes of every class file.
const Magic = 0xCAFEBABE

// ErrBadMagic is returned when the input does not start with Magic.
var ErrBadMagic = errors.New("not a class file (bad magic)")

// FormatError reports a structural problem at a byte offset.
type FormatError struct {
	Offset int64
	Msg    string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("class file offset %d: %s: %v", e.Offset, e.Msg, e.Err)
	}
	return fmt.Sprintf("class file offset %d: %s", e.Offset, e.Msg)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ClassFile is a decoded class file.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16

	// Source describes where the class was loaded from (a directory, an
	// archive entry, or a file path). Set by the loader, not the parser.
	Source string

	pool      *Pool
	name      string
	superName string
}

// Name returns the fully-qualified, dot-separated name of the class.
func (c *ClassFile) Name() string { return c.name }

// SuperName returns the dot-separated superclass name, or "" for
// java.lang.Object and module-info.
func (c *ClassFile) SuperName() string { return c.superName }

// ConstantPool returns the class's constant pool.
func (c *ClassFile) ConstantPool() *Pool { return c.pool }

// InterfaceNames returns the dot-separated names of directly implemented interfaces.
func (c *ClassFile) InterfaceNames() ([]string, error) {
	names := make([]string, 0, len(c.Interfaces))
	for _, idx := range c.Interfaces {
		n, err := c.pool.ClassName(idx)
		if err != nil {
			return nil, err
		}
		names = append(names, DottedName(n))
	}
	return names, nil
}

// DottedName converts an internal (slash-separated) class name to its
// dot-separated form.
func DottedName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// InternalName converts a dot-separated class name to the internal form.
func InternalName(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "/")
}

// ParseBytes decodes a class file held in memory.
func ParseBytes(data []byte) (*ClassFile, error) {
	return Parse(bytes.NewReader(data))
}

// Parse decodes a class file from r.
func Parse(r io.Reader) (*ClassFile, error) {
	d := &decoder{r: r}

	magic, err := d.u4()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, ErrBadMagic
	}

	cf := &ClassFile{}
	if cf.MinorVersion, err = d.u2(); err != nil {
		return nil, err
	}
	if cf.MajorVersion, err = d.u2(); err != nil {
		return nil, err
	}

	if cf.pool, err = d.pool(); err != nil {
		return nil, err
	}

	if cf.AccessFlags, err = d.u2(); err != nil {
		return nil, err
	}
	if cf.ThisClass, err = d.u2(); err != nil {
		return nil, err
	}
	if cf.SuperClass, err = d.u2(); err != nil {
		return nil, err
	}

	count, err := d.u2()
	if err != nil {
		return nil, err
	}
	cf.Interfaces = make([]uint16, count)
	for i := range cf.Interfaces {
		if cf.Interfaces[i], err = d.u2(); err != nil {
			return nil, err
		}
	}

	name, err := cf.pool.ClassName(cf.ThisClass)
	if err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	cf.name = DottedName(name)

	if cf.SuperClass != 0 {
		super, err := cf.pool.ClassName(cf.SuperClass)
		if err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
		cf.superName = DottedName(super)
	}

	return cf, nil
}

type decoder struct {
	r   io.Reader
	off int64
	buf [8]byte
}

func (d *decoder) read(n int) ([]byte, error) {
	var b []byte
	if n <= len(d.buf) {
		b = d.buf[:n]
	} else {
		b = make([]byte, n)
	}
	if _, err := io.ReadFull(d.r, b); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &FormatError{Offset: d.off, Msg: "truncated", Err: err}
	}
	d.off += int64(n)
	return b, nil
}

func (d *decoder) u1() (uint8, error) {
	b, err := d.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u2() (uint16, error) {
	b, err := d.read(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) u4() (uint32, error) {
	b, err := d.read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) u8() (uint64, error) {
	b, err := d.read(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *decoder) pool() (*Pool, error) {
	count, err := d.u2()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, &FormatError{Offset: d.off - 2, Msg: "constant_pool_count is zero"}
	}

	entries := make([]Constant, count)
	for i := 1; i < int(count); i++ {
		start := d.off
		tag, err := d.u1()
		if err != nil {
			return nil, err
		}
		c, err := d.constant(Tag(tag))
		if err != nil {
			if _, ok := err.(*FormatError); !ok {
				err = &FormatError{Offset: start, Msg: fmt.Sprintf("constant #%d", i), Err: err}
			}
			return nil, err
		}
		entries[i] = c

		// Long and Double take two slots; the second is unusable.
		if c.Tag == TagLong || c.Tag == TagDouble {
			i++
			if i >= int(count) {
				return nil, &FormatError{Offset: start, Msg: fmt.Sprintf("constant #%d: 8-byte constant overruns pool", i-1)}
			}
		}
	}
	return &Pool{entries: entries}, nil
}

func (d *decoder) constant(tag Tag) (Constant, error) {
	c := Constant{Tag: tag}
	var err error

	switch tag {
	case TagUtf8:
		var n uint16
		if n, err = d.u2(); err != nil {
			return c, err
		}
		var b []byte
		if b, err = d.read(int(n)); err != nil {
			return c, err
		}
		c.Text, err = decodeModifiedUTF8(b)
	case TagInteger, TagFloat:
		var v uint32
		v, err = d.u4()
		c.Raw = uint64(v)
	case TagLong, TagDouble:
		c.Raw, err = d.u8()
	case TagClass, TagModule, TagPackage:
		c.NameIndex, err = d.u2()
	case TagString:
		c.StringIndex, err = d.u2()
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		if c.ClassIndex, err = d.u2(); err != nil {
			return c, err
		}
		c.NameAndTypeIndex, err = d.u2()
	case TagNameAndType:
		if c.NameIndex, err = d.u2(); err != nil {
			return c, err
		}
		c.DescriptorIndex, err = d.u2()
	case TagMethodHandle:
		if c.RefKind, err = d.u1(); err != nil {
			return c, err
		}
		c.RefIndex, err = d.u2()
	case TagMethodType:
		c.DescriptorIndex, err = d.u2()
	case TagDynamic, TagInvokeDynamic:
		if c.BootstrapIndex, err = d.u2(); err != nil {
			return c, err
		}
		c.NameAndTypeIndex, err = d.u2()
	default:
		return c, fmt.Errorf("unknown constant tag %d", tag)
	}
	return c, err
}
