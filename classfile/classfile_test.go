package classfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// classWriter assembles a minimal synthetic class file for parser tests.
type classWriter struct {
	buf bytes.Buffer
}

func (w *classWriter) u1(v uint8)    { w.buf.WriteByte(v) }
func (w *classWriter) u2(v uint16)   { _ = binary.Write(&w.buf, binary.BigEndian, v) }
func (w *classWriter) u4(v uint32)   { _ = binary.Write(&w.buf, binary.BigEndian, v) }
func (w *classWriter) raw(b []byte)  { w.buf.Write(b) }
func (w *classWriter) utf8(s string) { w.u1(tagUtf8); w.u2(uint16(len(s))); w.raw([]byte(s)) }

func sampleClass() []byte {
	w := &classWriter{}
	w.u4(magic)
	w.u2(0)  // minor
	w.u2(65) // major

	w.u2(14) // constant pool count
	w.utf8("a")                  // 1
	w.u1(tagClass); w.u2(1)      // 2
	w.utf8("java/lang/Object")   // 3
	w.u1(tagClass); w.u2(3)      // 4
	w.utf8("b")                  // 5
	w.u1(tagClass); w.u2(5)      // 6
	w.utf8("c")                  // 7
	w.utf8("I")                  // 8
	w.utf8("d")                  // 9
	w.utf8("(I)V")               // 10
	w.utf8("Signature")          // 11
	w.utf8("Ljava/lang/Object;") // 12
	w.utf8("Code")               // 13

	w.u2(0x0021) // access: public super
	w.u2(2)      // this = a
	w.u2(4)      // super = java/lang/Object
	w.u2(1)      // one interface
	w.u2(6)      // b

	w.u2(1) // one field
	w.u2(0x0002)
	w.u2(7) // c
	w.u2(8) // I
	w.u2(0) // no attributes

	w.u2(1) // one method
	w.u2(0x0001)
	w.u2(9)  // d
	w.u2(10) // (I)V
	w.u2(1)  // one attribute: a Code blob the parser must seek over
	w.u2(13)
	w.u4(4)
	w.raw([]byte{0xde, 0xad, 0xbe, 0xef})

	w.u2(1) // class attributes: Signature
	w.u2(11)
	w.u4(2)
	w.u2(12)

	return w.buf.Bytes()
}

func TestParse(t *testing.T) {
	class, err := Parse(sampleClass())
	require.NoError(t, err)

	assert.Equal(t, "a", class.Name)
	assert.Equal(t, "java/lang/Object", class.SuperName)
	assert.Equal(t, []string{"b"}, class.Interfaces)
	assert.Equal(t, "Ljava/lang/Object;", class.Signature)
	assert.Equal(t, uint16(0x0021), class.AccessFlags)

	require.Len(t, class.Fields, 1)
	assert.Equal(t, "c", class.Fields[0].Name)
	assert.Equal(t, "I", class.Fields[0].Descriptor)

	require.Len(t, class.Methods, 1)
	assert.Equal(t, "d", class.Methods[0].Name)
	assert.Equal(t, "(I)V", class.Methods[0].Descriptor)
	assert.Empty(t, class.Methods[0].Signature)
}

func TestParseRejectsJunk(t *testing.T) {
	_, err := Parse([]byte("not a class file"))
	assert.Error(t, err)

	truncated := sampleClass()
	_, err = Parse(truncated[:len(truncated)-6])
	assert.Error(t, err)
}

func TestParameterTypes(t *testing.T) {
	testCases := []struct {
		desc      string
		expect    []string
		expectErr bool
	}{
		{desc: "()V", expect: nil},
		{desc: "(I)V", expect: []string{"I"}},
		{desc: "(I[Ljava/lang/String;J)Ljava/lang/Object;", expect: []string{"I", "[Ljava/lang/String;", "J"}},
		{desc: "([[D)V", expect: []string{"[[D"}},
		{desc: "I", expectErr: true},
		{desc: "(Ljava/lang/String)V", expectErr: true},
	}
	for _, testCase := range testCases {
		types, err := ParameterTypes(testCase.desc)
		if testCase.expectErr {
			assert.Error(t, err, testCase.desc)
			continue
		}
		require.NoError(t, err, testCase.desc)
		assert.Equal(t, testCase.expect, types, testCase.desc)
	}
}

func TestReturnTypeAndStripReturn(t *testing.T) {
	ret, err := ReturnType("(I)Ljava/lang/String;")
	require.NoError(t, err)
	assert.Equal(t, "Ljava/lang/String;", ret)

	assert.Equal(t, "(I)", StripReturn("(I)V"))
	assert.Equal(t, "(I)", StripReturn("(I)Ljava/lang/String;"))

	_, err = ReturnType("()")
	assert.Error(t, err)
}
