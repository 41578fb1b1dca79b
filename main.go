// hull computes the transitive closure of the classes a Java class refers to
// through its constant pool.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/phobologic/classhull/internal/classfile"
	"github.com/phobologic/classhull/internal/classpath"
	"github.com/phobologic/classhull/internal/config"
	"github.com/phobologic/classhull/internal/exclude"
	"github.com/phobologic/classhull/internal/graph"
	"github.com/phobologic/classhull/internal/hull"
	"github.com/phobologic/classhull/internal/logging"
	"github.com/phobologic/classhull/internal/ranking"
	"github.com/phobologic/classhull/internal/source"
	"github.com/phobologic/classhull/internal/toon"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var s settings

	root := &cobra.Command{
		Use:   "hull [flags] <class-name | file.class | File.java>",
		Short: "List every class reachable from a start class",
		Long: `hull decodes the constant pool of the start class, resolves every class it
refers to on the classpath, and repeats until nothing new is found. Classes
matching an exclusion pattern (JDK and common runtime packages by default)
and classes missing from the classpath are skipped.

The start class is a binary name (com.acme.Main), a .class file, or a .java
file whose public top-level type names the class.`,
		Args:          cobra.ExactArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.open(cmd, stderr)
			if err != nil {
				return err
			}
			defer sess.close()
			return sess.hull(cmd.Context(), args[0], s.top, stdout)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("hull {{.Version}}\n")

	s.register(root)
	root.AddCommand(newClassesCmd(&s, stdout, stderr), newInitCmd(stdout, stderr))
	return root
}

// settings holds the persistent flags. Flags that were set override the
// config file and HULL_* environment.
type settings struct {
	configPath   string
	classpath    string
	exclude      []string
	noDefaults   bool
	excludePaths []string
	format       string
	logLevel     string
	cacheSize    int
	timeout      time.Duration
	top          int
}

func (s *settings) register(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.StringVar(&s.configPath, "config", "", "config file (default ./"+config.FileName+")")
	fs.StringVarP(&s.classpath, "classpath", "c", "", "directories and jar/zip files, separated like $CLASSPATH")
	fs.StringArrayVarP(&s.exclude, "exclude", "x", nil, "exclusion regex, repeatable; replaces the default list")
	fs.BoolVar(&s.noDefaults, "no-default-excludes", false, "start from an empty exclusion list")
	fs.StringArrayVar(&s.excludePaths, "exclude-path", nil, "gitignore-style glob over class file paths, repeatable")
	fs.StringVarP(&s.format, "format", "f", "", "output format: toon, list or names")
	fs.StringVar(&s.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.IntVar(&s.cacheSize, "cache-size", 0, "number of class lookups to cache")
	fs.DurationVar(&s.timeout, "timeout", 0, "give up after this long (0 waits forever)")
	cmd.Flags().IntVarP(&s.top, "top", "n", 0, "report only the n most central classes (0 for all)")
}

// load merges config file, environment and flags.
func (s *settings) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(s.configPath, ".")
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("classpath") {
		cfg.Classpath = classpath.SplitList(s.classpath)
	}
	if s.noDefaults {
		cfg.Exclude = nil
	}
	if flags.Changed("exclude") {
		cfg.Exclude = s.exclude
	}
	if flags.Changed("exclude-path") {
		cfg.ExcludePaths = s.excludePaths
	}
	if flags.Changed("format") {
		cfg.Format = s.format
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = s.logLevel
	}
	if flags.Changed("cache-size") {
		cfg.CacheSize = s.cacheSize
	}
	if flags.Changed("timeout") {
		cfg.Timeout = s.timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is an opened classpath with its filter and logger.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	filter *exclude.Filter
	path   *classpath.Path
}

func (s *settings) open(cmd *cobra.Command, stderr io.Writer) (*session, error) {
	cfg, err := s.load(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	filter, err := cfg.Filter(logger)
	if err != nil {
		return nil, err
	}

	path, err := classpath.Open(cfg.Classpath,
		classpath.WithCacheSize(cfg.CacheSize),
		classpath.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	logger.Debug("classpath opened", "entries", path.Entries(), "patterns", len(filter.Patterns()))
	return &session{cfg: cfg, logger: logger, filter: filter, path: path}, nil
}

func (s *session) close() {
	if err := s.path.Close(); err != nil {
		s.logger.Warn("closing classpath", "error", err)
	}
}

func (s *session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (s *session) hull(ctx context.Context, arg string, top int, stdout io.Writer) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start, err := s.start(ctx, arg)
	if err != nil {
		return err
	}

	res, err := hull.Compute(ctx, start, s.filter, s.path, hull.WithLogger(s.logger))
	if err != nil {
		return fmt.Errorf("computing hull of %s: %w", start.Name(), err)
	}

	rep := res.Report()
	graph.Apply(rep)
	rep = ranking.SelectClasses(rep, top)

	s.logger.Info("hull computed", "start", rep.Start, "classes", len(rep.Classes),
		"excluded", rep.Stats.Excluded, "unresolved", rep.Stats.Unresolved)

	var output string
	switch s.cfg.Format {
	case config.FormatList:
		output = toon.List(rep)
	case config.FormatNames:
		output = toon.Names(rep)
	default:
		output = toon.Encode(rep)
	}
	_, _ = fmt.Fprintln(stdout, output)
	return nil
}

// start loads the start class from a .class file, a .java file or a class name.
func (s *session) start(ctx context.Context, arg string) (*classfile.ClassFile, error) {
	name := arg
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".class":
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			return classpath.LoadFile(arg)
		}
	case ".java":
		src, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("reading source: %w", err)
		}
		name, err = source.ClassName(src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", arg, err)
		}
		s.logger.Debug("located class in source", "file", arg, "class", name)
	}

	cf, err := s.path.Resolve(ctx, classfile.DottedName(name))
	if err != nil {
		return nil, fmt.Errorf("start class: %w", err)
	}
	return cf, nil
}
