// Package classfile reads the structural parts of Java class files: names,
// descriptors, access flags, superclass, interfaces and generic signatures.
// Method bodies and debug information are skipped over, which keeps the
// reader suitable for mapping resolution where only declarations matter.
package classfile

import (
	"encoding/binary"
	"fmt"
)

const magic = 0xCAFEBABE

// Constant pool tags, per the JVM specification.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// Class is the structural content of one parsed class file.
type Class struct {
	AccessFlags uint16
	Name        string
	SuperName   string
	Interfaces  []string
	Signature   string
	Fields      []Member
	Methods     []Member
}

// Member is one declared field or method.
type Member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Signature   string
}

// Parse reads the structural content of a class file.
func Parse(data []byte) (*Class, error) {
	r := &reader{data: data}
	if r.u4() != magic {
		return nil, fmt.Errorf("not a class file: bad magic")
	}
	r.u2() // minor
	r.u2() // major

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}

	class := &Class{}
	class.AccessFlags = r.u2()
	thisClass := r.u2()
	superClass := r.u2()
	if class.Name, err = pool.className(thisClass); err != nil {
		return nil, err
	}
	if superClass != 0 {
		if class.SuperName, err = pool.className(superClass); err != nil {
			return nil, err
		}
	}
	interfaceCount := int(r.u2())
	for i := 0; i < interfaceCount; i++ {
		name, err := pool.className(r.u2())
		if err != nil {
			return nil, err
		}
		class.Interfaces = append(class.Interfaces, name)
	}

	if class.Fields, err = readMembers(r, pool); err != nil {
		return nil, err
	}
	if class.Methods, err = readMembers(r, pool); err != nil {
		return nil, err
	}
	if class.Signature, err = readSignature(r, pool); err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	return class, nil
}

func readMembers(r *reader, pool *constantPool) ([]Member, error) {
	count := int(r.u2())
	members := make([]Member, 0, count)
	for i := 0; i < count; i++ {
		var m Member
		m.AccessFlags = r.u2()
		name, err := pool.utf8(r.u2())
		if err != nil {
			return nil, err
		}
		desc, err := pool.utf8(r.u2())
		if err != nil {
			return nil, err
		}
		m.Name, m.Descriptor = name, desc
		if m.Signature, err = readSignature(r, pool); err != nil {
			return nil, err
		}
		if r.err != nil {
			return nil, r.err
		}
		members = append(members, m)
	}
	return members, nil
}

// readSignature walks an attribute table, keeping only the Signature
// attribute and seeking over everything else.
func readSignature(r *reader, pool *constantPool) (string, error) {
	count := int(r.u2())
	var signature string
	for i := 0; i < count; i++ {
		nameIndex := r.u2()
		length := int(r.u4())
		name, err := pool.utf8(nameIndex)
		if err != nil {
			return "", err
		}
		if name == "Signature" && length == 2 {
			if signature, err = pool.utf8(r.u2()); err != nil {
				return "", err
			}
			continue
		}
		r.skip(length)
	}
	return signature, r.err
}

type constantPool struct {
	utf8s   map[uint16]string
	classes map[uint16]uint16
}

func (p *constantPool) utf8(index uint16) (string, error) {
	s, ok := p.utf8s[index]
	if !ok {
		return "", fmt.Errorf("constant pool entry %d is not a utf8 string", index)
	}
	return s, nil
}

func (p *constantPool) className(index uint16) (string, error) {
	nameIndex, ok := p.classes[index]
	if !ok {
		return "", fmt.Errorf("constant pool entry %d is not a class", index)
	}
	return p.utf8(nameIndex)
}

func readConstantPool(r *reader) (*constantPool, error) {
	count := int(r.u2())
	pool := &constantPool{utf8s: map[uint16]string{}, classes: map[uint16]uint16{}}
	for index := 1; index < count; index++ {
		tag := r.u1()
		switch tag {
		case tagUtf8:
			length := int(r.u2())
			pool.utf8s[uint16(index)] = string(r.bytes(length))
		case tagInteger, tagFloat:
			r.skip(4)
		case tagLong, tagDouble:
			r.skip(8)
			index++ // wide entries take two pool slots
		case tagClass:
			pool.classes[uint16(index)] = r.u2()
		case tagString, tagMethodType, tagModule, tagPackage:
			r.skip(2)
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			r.skip(4)
		case tagMethodHandle:
			r.skip(3)
		default:
			return nil, fmt.Errorf("unknown constant pool tag %d at entry %d", tag, index)
		}
		if r.err != nil {
			return nil, r.err
		}
	}
	return pool, nil
}

// reader is a bounds-checked cursor over the class file bytes. The first
// error sticks; subsequent reads yield zero values.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) ensure(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) {
		r.err = fmt.Errorf("truncated class file at offset %d", r.pos)
		return false
	}
	return true
}

func (r *reader) u1() uint8 {
	if !r.ensure(1) {
		return 0
	}
	b := r.data[r.pos]
	r.pos++
	return b
}

func (r *reader) u2() uint16 {
	if !r.ensure(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) u4() uint32 {
	if !r.ensure(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.ensure(n) {
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) skip(n int) {
	if r.ensure(n) {
		r.pos += n
	}
}
