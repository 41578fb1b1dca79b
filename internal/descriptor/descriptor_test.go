package descriptor

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc   string
		want   Type
		str    string
		class  string
		hasRef bool
	}{
		{"I", PrimitiveOf('I'), "int", "", false},
		{"Z", PrimitiveOf('Z'), "boolean", "", false},
		{"Ljava/lang/String;", ObjectOf("java.lang.String"), "java.lang.String", "java.lang.String", true},
		{"[I", ArrayOf(PrimitiveOf('I')), "int[]", "", false},
		{"[[Ljava/lang/String;", ArrayOf(ArrayOf(ObjectOf("java.lang.String"))), "java.lang.String[][]", "java.lang.String", true},
		{"Ljava/util/Map$Entry;", ObjectOf("java.util.Map$Entry"), "java.util.Map$Entry", "java.util.Map$Entry", true},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()
			got, err := ParseField(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.str, got.String())

			class, ok := got.ReferencedClass()
			assert.Equal(t, tt.hasRef, ok)
			assert.Equal(t, tt.class, class)
		})
	}
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	ret, params, err := ParseMethod("(I)Ljava/lang/String;")
	require.NoError(t, err)
	assert.Equal(t, ObjectOf("java.lang.String"), ret)
	assert.Equal(t, []Type{PrimitiveOf('I')}, params)

	// Only the return type names a class.
	var refs []string
	for _, ty := range append([]Type{ret}, params...) {
		if c, ok := ty.ReferencedClass(); ok {
			refs = append(refs, c)
		}
	}
	assert.Equal(t, []string{"java.lang.String"}, refs)
}

func TestParseMethodShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc   string
		ret    string
		params []string
	}{
		{"()V", "void", nil},
		{"(JD)J", "long", []string{"long", "double"}},
		{"([BLcom/acme/Buf;[[Lcom/acme/Row;)[Lcom/acme/Row;", "com.acme.Row[]",
			[]string{"byte[]", "com.acme.Buf", "com.acme.Row[][]"}},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()
			ret, params, err := ParseMethod(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.ret, ret.String())

			var got []string
			for _, p := range params {
				got = append(got, p.String())
			}
			assert.Equal(t, tt.params, got)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	fields := []string{
		"",
		"V",
		"Q",
		"Ljava/lang/String",
		"L;",
		"II",
		"[",
		"[V",
		"Ljava.lang.String;",
		strings.Repeat("[", 256) + "I",
	}
	for _, d := range fields {
		_, err := ParseField(d)
		require.Error(t, err, "field %q", d)
		assert.True(t, errors.Is(err, ErrMalformed), "field %q: %v", d, err)

		var me *MalformedError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, d, me.Descriptor)
	}

	methods := []string{
		"",
		"I",
		"(",
		"(I",
		"(V)V",
		"()",
		"()VV",
		"(Ljava/lang/String)V",
	}
	for _, d := range methods {
		_, _, err := ParseMethod(d)
		assert.ErrorIs(t, err, ErrMalformed, "method %q", d)
	}
}

func TestMaxArrayDims(t *testing.T) {
	t.Parallel()

	got, err := ParseField(strings.Repeat("[", 255) + "Lcom/acme/Deep;")
	require.NoError(t, err)

	class, ok := got.ReferencedClass()
	assert.True(t, ok)
	assert.Equal(t, "com.acme.Deep", class)
}
