// Package hull computes the transitive closure of classes reachable from a
// start class through constant pool references.
package hull

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phobologic/classhull/internal/classfile"
	"github.com/phobologic/classhull/internal/classpath"
	"github.com/phobologic/classhull/internal/exclude"
	"github.com/phobologic/classhull/internal/model"
	"github.com/phobologic/classhull/internal/refs"
)

// Repository resolves dot-separated class names. A class that is not
// available is reported with an error matching classpath.ErrNotFound.
type Repository interface {
	Resolve(ctx context.Context, name string) (*classfile.ClassFile, error)
}

// Option configures a traversal.
type Option func(*traversal)

// WithLogger sets the logger for progress and skipped classes.
func WithLogger(l *slog.Logger) Option {
	return func(t *traversal) { t.logger = l }
}

// Result is a computed hull. Names and Classes are index-aligned and in
// discovery (breadth-first) order, with the start class first.
type Result struct {
	set   *classSet
	edges []model.Dependency
	Stats model.Stats
}

// Names returns the class names of the hull.
func (r *Result) Names() []string {
	return append([]string(nil), r.set.names...)
}

// Classes returns the class files of the hull.
func (r *Result) Classes() []*classfile.ClassFile {
	return append([]*classfile.ClassFile(nil), r.set.classes...)
}

// Dependencies returns the distinct edges between hull members in the order
// they were first seen. Self references are omitted.
func (r *Result) Dependencies() []model.Dependency {
	return append([]model.Dependency(nil), r.edges...)
}

// Report converts the result into a model.HullReport without ranks.
func (r *Result) Report() *model.HullReport {
	rep := &model.HullReport{
		Start:        r.set.names[0],
		Classes:      make([]model.ClassEntry, len(r.set.names)),
		Dependencies: r.Dependencies(),
		Stats:        r.Stats,
	}
	for i, name := range r.set.names {
		rep.Classes[i] = model.ClassEntry{Name: name, Source: r.set.classes[i].Source}
	}
	return rep
}

// Compute walks the constant pools reachable from start. For every name a
// dequeued class refers to: excluded names are dropped, names the repository
// cannot resolve are dropped, and any other name not yet seen is added to
// the hull and queued. A nil filter excludes nothing.
//
// A malformed descriptor in any class aborts the run. There is no depth or
// size limit; ctx is checked once per dequeued class.
func Compute(ctx context.Context, start *classfile.ClassFile, filter *exclude.Filter, repo Repository, opts ...Option) (*Result, error) {
	t := &traversal{
		filter: filter,
		repo:   repo,
		logger: slog.Default(),
		set:    newClassSet(),
		seen:   make(map[model.Dependency]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := t.run(ctx, start); err != nil {
		return nil, err
	}
	return &Result{set: t.set, edges: t.edges, Stats: t.stats}, nil
}

type traversal struct {
	filter *exclude.Filter
	repo   Repository
	logger *slog.Logger

	set   *classSet
	queue []*classfile.ClassFile
	edges []model.Dependency
	seen  map[model.Dependency]struct{}
	stats model.Stats
}

func (t *traversal) run(ctx context.Context, start *classfile.ClassFile) error {
	t.set.add(start.Name(), start)
	t.queue = append(t.queue, start)

	for len(t.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		c := t.queue[0]
		t.queue[0] = nil
		t.queue = t.queue[1:]

		t.logger.Debug("visiting class", "class", c.Name(), "pending", len(t.queue))

		for name, err := range refs.References(c) {
			if err != nil {
				return fmt.Errorf("extracting references: %w", err)
			}
			t.stats.References++

			if t.filter != nil && t.filter.Excluded(name) {
				t.stats.Excluded++
				continue
			}

			if !t.set.contains(name) {
				cf, err := t.repo.Resolve(ctx, name)
				if err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}
					if !errors.Is(err, classpath.ErrNotFound) {
						t.logger.Warn("skipping unloadable class",
							"class", name, "referenced_by", c.Name(), "error", err)
					}
					t.stats.Unresolved++
					continue
				}
				if t.set.add(name, cf) {
					t.queue = append(t.queue, cf)
				}
			}

			t.edge(c.Name(), name)
		}
	}
	return nil
}

func (t *traversal) edge(src, tgt string) {
	if src == tgt {
		return
	}
	d := model.Dependency{Source: src, Target: tgt}
	if _, dup := t.seen[d]; dup {
		return
	}
	t.seen[d] = struct{}{}
	t.edges = append(t.edges, d)
}

// classSet is an insertion-ordered set of class names with their class files.
type classSet struct {
	index   map[string]int
	names   []string
	classes []*classfile.ClassFile
}

func newClassSet() *classSet {
	return &classSet{index: make(map[string]int)}
}

func (s *classSet) contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// add inserts name unless present and reports whether it was inserted.
func (s *classSet) add(name string, cf *classfile.ClassFile) bool {
	if _, ok := s.index[name]; ok {
		return false
	}
	s.index[name] = len(s.names)
	s.names = append(s.names, name)
	s.classes = append(s.classes, cf)
	return true
}
