package exclude

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultExcludes(t *testing.T) {
	t.Parallel()

	f := Default()

	tests := []struct {
		name string
		want bool
	}{
		{"java.lang.String", true},
		{"java.util.Map$Entry", true},
		{"javax.swing.JFrame", true},
		{"sun.misc.Unsafe", true},
		{"sunw.io.Serializable", true},
		{"com.sun.tools.javac.Main", true},
		{"org.omg.CORBA.ORB", true},
		{"org.w3c.dom.Node", true},
		{"org.xml.sax.Parser", true},
		{"net.jini.core.Entry", true},
		{"com.acme.Widget", false},
		{"javafoo.Bar", false},
		{"org.apache.bcel.Repository", false},
		{"myjava.lang.String", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, f.Excluded(tt.name))
		})
	}
}

func TestWholeStringMatch(t *testing.T) {
	t.Parallel()

	f, err := New([]string{`acme`})
	require.NoError(t, err)

	assert.True(t, f.Excluded("acme"))
	assert.False(t, f.Excluded("com.acme.Widget"), "pattern must match the whole name")
}

func TestJavaStyleSyntax(t *testing.T) {
	t.Parallel()

	// Lookahead is not available in RE2 but is common in Java-style patterns.
	f, err := New([]string{`com\.acme\.(?!api\.).*`})
	require.NoError(t, err)

	assert.True(t, f.Excluded("com.acme.internal.Impl"))
	assert.False(t, f.Excluded("com.acme.api.Client"))
}

func TestEmptyPatternsExcludeNothing(t *testing.T) {
	t.Parallel()

	f, err := New(nil)
	require.NoError(t, err)
	assert.False(t, f.Excluded("java.lang.Object"))
	assert.Empty(t, f.Patterns())
}

// A malformed pattern is rejected when the filter is built rather than
// silently excluding whichever name happens to reach it.
func TestMalformedPatternFailsAtConstruction(t *testing.T) {
	t.Parallel()

	_, err := New([]string{"java[.].*", "com[.acme", "org[.].*"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPattern))

	var pe *PatternError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Index)
	assert.Equal(t, "com[.acme", pe.Pattern)
}

func TestUnbalancedPatternRejected(t *testing.T) {
	t.Parallel()

	_, err := New([]string{"a)(b"})
	assert.ErrorIs(t, err, ErrPattern)
}

func TestPatternsReplaceSemantics(t *testing.T) {
	t.Parallel()

	in := []string{"a[.].*", "b[.].*"}
	f, err := New(in)
	require.NoError(t, err)

	in[0] = "mutated"
	got := f.Patterns()
	assert.Equal(t, []string{"a[.].*", "b[.].*"}, got)

	got[1] = "mutated"
	assert.Equal(t, []string{"a[.].*", "b[.].*"}, f.Patterns())
}

func TestDefaultPatternsIsACopy(t *testing.T) {
	t.Parallel()

	p := DefaultPatterns()
	p[0] = "changed"
	assert.Equal(t, "java[.].*", DefaultPatterns()[0])
}

func TestPathGlobs(t *testing.T) {
	t.Parallel()

	f, err := New(nil, WithPathGlobs([]string{"*Test.class", "com/acme/gen/"}))
	require.NoError(t, err)

	assert.True(t, f.Excluded("com.acme.WidgetTest"))
	assert.True(t, f.Excluded("com.acme.gen.Stub"))
	assert.False(t, f.Excluded("com.acme.Widget"))
	assert.Equal(t, []string{"*Test.class", "com/acme/gen/"}, f.PathGlobs())
}

func TestFreeSpacingComment(t *testing.T) {
	t.Parallel()

	f, err := New([]string{"(?x) com[.]acme[.].* # vendor"})
	require.NoError(t, err)

	assert.True(t, f.Excluded("com.acme.Foo"))
	assert.False(t, f.Excluded("com.acmeX"))
	assert.False(t, f.Excluded("org.com.acme.Foo"))
}

func TestFreeSpacingWithoutComment(t *testing.T) {
	t.Parallel()

	f, err := New([]string{"(?x) com [.] acme [.] .*"})
	require.NoError(t, err)

	assert.True(t, f.Excluded("com.acme.Foo"))
	assert.False(t, f.Excluded("com.acmeX"))
}

func TestMatchTimeoutExcludes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	f, err := New([]string{"(a+)+b"}, WithMatchTimeout(time.Nanosecond), WithLogger(logger))
	require.NoError(t, err)

	// Catastrophic backtracking: the match runs until the deadline.
	assert.True(t, f.Excluded(strings.Repeat("a", 40)))
	assert.Contains(t, buf.String(), "exclusion pattern failed")
	assert.Contains(t, buf.String(), "(a+)+b")
}
