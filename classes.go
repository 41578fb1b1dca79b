package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/phobologic/classhull/internal/config"
	"github.com/phobologic/classhull/internal/hull"
	"github.com/phobologic/classhull/internal/model"
	"github.com/phobologic/classhull/internal/toon"
)

func newClassesCmd(s *settings, stdout, stderr io.Writer) *cobra.Command {
	var (
		sizes   bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List the classes on the classpath",
		Long: `List every class on the classpath in search order, shadowed duplicates
removed. With --sizes, compute the hull of each class and list them largest
first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := s.open(cmd, stderr)
			if err != nil {
				return err
			}
			defer sess.close()

			names, err := sess.path.Classes()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				return fmt.Errorf("no classes found on %s", strings.Join(sess.path.Entries(), ", "))
			}

			if !sizes {
				_, _ = fmt.Fprintln(stdout, strings.Join(names, "\n"))
				return nil
			}

			ctx, cancel := sess.withTimeout(cmd.Context())
			defer cancel()

			result, err := hullSizes(ctx, sess, names, workers)
			if err != nil {
				return err
			}
			if sess.cfg.Format == config.FormatTOON {
				_, _ = fmt.Fprintln(stdout, toon.EncodeSizes(result))
				return nil
			}
			for _, cs := range result {
				_, _ = fmt.Fprintf(stdout, "%s %d\n", cs.Name, cs.Hull)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&sizes, "sizes", false, "compute the hull size of every class")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "concurrent hull computations (default GOMAXPROCS)")
	return cmd
}

// hullSizes computes the hull of every named class concurrently. Classes that
// cannot be loaded or whose hull fails are logged and left out. Results are
// ordered by descending size, classpath order breaking ties.
func hullSizes(ctx context.Context, sess *session, names []string, workers int) ([]model.ClassSize, error) {
	type result struct {
		index int
		size  model.ClassSize
		ok    bool
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(names) {
		workers = len(names)
	}

	work := make(chan int, len(names))
	results := make(chan result, len(names))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for idx := range work {
				name := names[idx]
				start, err := sess.path.Resolve(ctx, name)
				if err != nil {
					if ctx.Err() == nil {
						sess.logger.Warn("skipping class", "class", name, "error", err)
					}
					continue
				}

				res, err := hull.Compute(ctx, start, sess.filter, sess.path, hull.WithLogger(sess.logger))
				if err != nil {
					if ctx.Err() == nil {
						sess.logger.Warn("skipping class", "class", name, "error", err)
					}
					continue
				}

				results <- result{
					index: idx,
					size:  model.ClassSize{Name: name, Hull: len(res.Names())},
					ok:    true,
				}
			}
		}()
	}

	for i := range names {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in classpath order
	indexed := make([]model.ClassSize, len(names))
	valid := make([]bool, len(names))
	for r := range results {
		indexed[r.index] = r.size
		valid[r.index] = r.ok
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sizes []model.ClassSize
	for i, v := range valid {
		if v {
			sizes = append(sizes, indexed[i])
		}
	}
	if len(sizes) == 0 {
		return nil, errors.New("no class could be loaded")
	}

	sort.SliceStable(sizes, func(i, j int) bool {
		return sizes[i].Hull > sizes[j].Hull
	})
	return sizes, nil
}
