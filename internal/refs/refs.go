// Package refs extracts the class names a class file refers to through its
// constant pool.
package refs

import (
	"fmt"
	"iter"
	"strings"

	"github.com/phobologic/classhull/internal/classfile"
	"github.com/phobologic/classhull/internal/descriptor"
)

// Error wraps a failure to decode one constant pool entry with the owning
// class and, when one was involved, the offending descriptor.
type Error struct {
	Class      string
	Index      int
	Descriptor string
	Err        error
}

func (e *Error) Error() string {
	if e.Descriptor != "" {
		return fmt.Sprintf("%s: constant #%d: descriptor %q: %v", e.Class, e.Index, e.Descriptor, e.Err)
	}
	return fmt.Sprintf("%s: constant #%d: %v", e.Class, e.Index, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// References yields one dot-separated class name per reference found in the
// constant pool of cf, in pool order:
//
//   - Class: the named class (the element class for array classes)
//   - Methodref, InterfaceMethodref: the owner, then the return type, then
//     each parameter type that names a class
//   - Fieldref: the owner, then the field type if it names a class
//
// Duplicates are not filtered. Iteration stops after the first error.
func References(cf *classfile.ClassFile) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		pool := cf.ConstantPool()

		fail := func(i int, desc string, err error) {
			yield("", &Error{Class: cf.Name(), Index: i, Descriptor: desc, Err: err})
		}

		for i := 1; i < pool.Len(); i++ {
			c := pool.At(i)

			switch c.Tag {
			case classfile.TagClass:
				name, ok, err := classRef(pool, uint16(i))
				if err != nil {
					fail(i, "", err)
					return
				}
				if ok && !yield(name, nil) {
					return
				}

			case classfile.TagMethodref, classfile.TagInterfaceMethodref, classfile.TagFieldref:
				owner, ok, err := classRef(pool, c.ClassIndex)
				if err != nil {
					fail(i, "", err)
					return
				}
				if ok && !yield(owner, nil) {
					return
				}

				_, desc, err := pool.NameAndType(c.NameAndTypeIndex)
				if err != nil {
					fail(i, "", err)
					return
				}

				var types []descriptor.Type
				if c.Tag == classfile.TagFieldref {
					t, err := descriptor.ParseField(desc)
					if err != nil {
						fail(i, desc, err)
						return
					}
					types = []descriptor.Type{t}
				} else {
					ret, params, err := descriptor.ParseMethod(desc)
					if err != nil {
						fail(i, desc, err)
						return
					}
					types = append([]descriptor.Type{ret}, params...)
				}

				for _, t := range types {
					if name, ok := t.ReferencedClass(); ok {
						if !yield(name, nil) {
							return
						}
					}
				}
			}
		}
	}
}

// Collect drains References into a slice.
func Collect(cf *classfile.ClassFile) ([]string, error) {
	var names []string
	for name, err := range References(cf) {
		if err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}

// classRef resolves the Class entry at idx. Array classes are stored in
// descriptor form and resolve to their element class, if any.
func classRef(pool *classfile.Pool, idx uint16) (string, bool, error) {
	name, err := pool.ClassName(idx)
	if err != nil {
		return "", false, err
	}
	if !strings.HasPrefix(name, "[") {
		return classfile.DottedName(name), true, nil
	}
	t, err := descriptor.ParseField(name)
	if err != nil {
		return "", false, err
	}
	class, ok := t.ReferencedClass()
	return class, ok, nil
}
