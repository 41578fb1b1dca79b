package refs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/classhull/internal/classfile/classfiletest"
	"github.com/phobologic/classhull/internal/descriptor"
)

func TestReferencesPoolOrder(t *testing.T) {
	t.Parallel()

	cf := classfiletest.New("com.acme.A").
		Field("com.acme.B", "b", "Lcom/acme/C;").
		Method("com.acme.D", "run", "(ILcom/acme/E;[Lcom/acme/F;)Lcom/acme/G;").
		InterfaceMethod("com.acme.H", "call", "()V").
		String("com.acme.NotAClass").
		Parse()

	got, err := Collect(cf)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"com.acme.A",
		"com.acme.B",
		"com.acme.B", "com.acme.C",
		"com.acme.D",
		"com.acme.D", "com.acme.G", "com.acme.E", "com.acme.F",
		"com.acme.H",
		"com.acme.H",
		"java.lang.Object",
	}, got)
}

func TestReferencesArrayAndPrimitiveFields(t *testing.T) {
	t.Parallel()

	cf := classfiletest.New("A").Super("").
		Field("A", "counts", "[I").
		Field("A", "grid", "[[Ljava/lang/String;").
		Parse()

	got, err := Collect(cf)
	require.NoError(t, err)

	// The int[] field contributes nothing beyond its owner; String[][] contributes String once.
	assert.Equal(t, []string{"A", "A", "A", "java.lang.String"}, got)
}

func TestReferencesArrayClassConstant(t *testing.T) {
	t.Parallel()

	b := classfiletest.New("A").Super("")
	b.Class("[Lcom/acme/Item;")
	b.Class("[[J")
	b.Method("[Ljava/lang/Object;", "clone", "()Ljava/lang/Object;")

	got, err := Collect(b.Parse())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "com.acme.Item", "java.lang.Object", "java.lang.Object", "java.lang.Object"}, got)
}

func TestReferencesIgnoresOtherConstants(t *testing.T) {
	t.Parallel()

	cf := classfiletest.New("A").Super("").
		MethodType("(Lcom/acme/Hidden;)V").
		Long(1).
		Integer(2).
		String("x").
		Parse()

	got, err := Collect(cf)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got)
}

func TestReferencesMalformedDescriptor(t *testing.T) {
	t.Parallel()

	cf := classfiletest.New("com.acme.Broken").
		Method("com.acme.Other", "bad", "(Q)V").
		Parse()

	var names []string
	var gotErr error
	for name, err := range References(cf) {
		if err != nil {
			gotErr = err
			break
		}
		names = append(names, name)
	}

	require.Error(t, gotErr)
	assert.ErrorIs(t, gotErr, descriptor.ErrMalformed)

	var re *Error
	require.ErrorAs(t, gotErr, &re)
	assert.Equal(t, "com.acme.Broken", re.Class)
	assert.Equal(t, "(Q)V", re.Descriptor)
	assert.Contains(t, gotErr.Error(), "com.acme.Broken")

	// The owner was yielded before the descriptor failed.
	assert.Equal(t, []string{"com.acme.Broken", "com.acme.Other", "com.acme.Other"}, names)
}

func TestReferencesEarlyBreak(t *testing.T) {
	t.Parallel()

	cf := classfiletest.New("A").Field("B", "c", "LC;").Parse()

	var n int
	for range References(cf) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}
