// Package exclude decides which class names are left out of a hull.
//
// A Filter holds an ordered list of regular expressions, each matched against
// the whole dot-separated class name, plus optional gitignore-style globs
// matched against the class's internal path ("com/acme/Foo.class"). All
// patterns are compiled once, when the Filter is built.
package exclude

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dlclark/regexp2"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/classhull/internal/classfile"
)

// defaultPatterns cover the JDK and common vendor namespaces.
var defaultPatterns = []string{
	"java[.].*",
	"javax[.].*",
	"sun[.].*",
	"sunw[.].*",
	"com[.]sun[.].*",
	"org[.]omg[.].*",
	"org[.]w3c[.].*",
	"org[.]xml[.].*",
	"net[.]jini[.].*",
}

// DefaultPatterns returns a copy of the default exclusion patterns.
func DefaultPatterns() []string {
	return append([]string(nil), defaultPatterns...)
}

// DefaultMatchTimeout bounds a single regular expression match.
const DefaultMatchTimeout = time.Second

// ErrPattern matches every *PatternError via errors.Is.
var ErrPattern = errors.New("invalid exclusion pattern")

// PatternError reports a pattern that failed to compile.
type PatternError struct {
	Index   int
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("exclusion pattern %d (%q): %v", e.Index, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

func (e *PatternError) Is(target error) bool { return target == ErrPattern }

// Filter tests class names against compiled exclusion patterns.
// It is immutable once built and safe for concurrent use.
type Filter struct {
	patterns []string
	res      []*regexp2.Regexp
	globs    []string
	paths    *ignore.GitIgnore
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Filter.
type Option func(*Filter)

// WithPathGlobs adds gitignore-style globs matched against internal class paths.
func WithPathGlobs(globs []string) Option {
	return func(f *Filter) { f.globs = append([]string(nil), globs...) }
}

// WithMatchTimeout bounds each regular expression match. Zero disables the bound.
func WithMatchTimeout(d time.Duration) Option {
	return func(f *Filter) { f.timeout = d }
}

// WithLogger sets the logger used for match failures.
func WithLogger(l *slog.Logger) Option {
	return func(f *Filter) { f.logger = l }
}

// New compiles patterns into a Filter. The first pattern that fails to
// compile aborts construction with a *PatternError.
func New(patterns []string, opts ...Option) (*Filter, error) {
	f := &Filter{
		patterns: append([]string(nil), patterns...),
		timeout:  DefaultMatchTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.res = make([]*regexp2.Regexp, len(patterns))
	for i, p := range patterns {
		// Validate alone first: "a)(b" is invalid but would compile once wrapped.
		if _, err := regexp2.Compile(p, regexp2.None); err != nil {
			return nil, &PatternError{Index: i, Pattern: p, Err: err}
		}
		re, err := anchor(p)
		if err != nil {
			return nil, &PatternError{Index: i, Pattern: p, Err: err}
		}
		if f.timeout > 0 {
			re.MatchTimeout = f.timeout
		}
		f.res[i] = re
	}

	if len(f.globs) > 0 {
		f.paths = ignore.CompileIgnoreLines(f.globs...)
	}
	return f, nil
}

// anchor compiles p so it must match the whole name. A free-spacing pattern
// ending in a # comment would swallow the closing anchor, so that form is
// retried with a newline ending the comment; whitespace is ignored there.
func anchor(p string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(`\A(?:`+p+`)\z`, regexp2.None)
	if err == nil {
		return re, nil
	}
	if re, retryErr := regexp2.Compile(`\A(?:`+p+"\n)\\z", regexp2.None); retryErr == nil {
		return re, nil
	}
	return nil, err
}

// Default returns a Filter over DefaultPatterns.
func Default() *Filter {
	f, err := New(defaultPatterns)
	if err != nil {
		panic(err)
	}
	return f
}

// Patterns returns a copy of the filter's regular expressions, in order.
func (f *Filter) Patterns() []string {
	return append([]string(nil), f.patterns...)
}

// PathGlobs returns a copy of the filter's path globs.
func (f *Filter) PathGlobs() []string {
	return append([]string(nil), f.globs...)
}

// Excluded reports whether name matches any pattern. Patterns are tried in
// order and the first match wins. A match that fails at run time (it timed
// out) stops evaluation and the name is treated as excluded.
func (f *Filter) Excluded(name string) bool {
	for i, re := range f.res {
		ok, err := re.MatchString(name)
		if err != nil {
			f.logger.Warn("exclusion pattern failed; excluding class",
				"class", name, "pattern", f.patterns[i], "error", err)
			return true
		}
		if ok {
			return true
		}
	}

	if f.paths != nil && f.paths.MatchesPath(classfile.InternalName(name)+".class") {
		return true
	}
	return false
}
