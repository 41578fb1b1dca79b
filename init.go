package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/classhull/internal/config"
)

const (
	sentinelStart = "# hull:start"
	sentinelEnd   = "# hull:end"
)

// newInitCmd implements `hull init`, which writes (or updates) the default
// settings block in a .hull.yaml file.
func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "init [flags] [path-to-.hull.yaml]",
		Short: "Write the default settings to a config file",
		Long: `Write hull's default settings to a config file. The block is wrapped in
sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Keys the file already sets outside the block
are left out of it. Creates the file if it does not exist.

path-to-.hull.yaml defaults to ./` + config.FileName + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// --dry-run with no path: just print the section itself.
			if dryRun && len(args) == 0 {
				section, err := generateSection("")
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(stdout, section)
				return nil
			}

			path := config.FileName
			if len(args) > 0 {
				path = args[0]
			}

			existing, _ := os.ReadFile(path)
			section, err := generateSection(string(existing))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			updated := applySection(string(existing), section)

			if dryRun {
				_, _ = fmt.Fprint(stdout, updated)
				return nil
			}

			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			_, _ = fmt.Fprintf(stderr, "wrote hull settings to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

// generateSection returns the sentinel-wrapped default settings, leaving out
// every key that existing already sets outside its sentinel block.
func generateSection(existing string) (string, error) {
	set, err := userKeys(existing)
	if err != nil {
		return "", err
	}

	var defaults yaml.Node
	if err := defaults.Encode(config.Default()); err != nil {
		return "", fmt.Errorf("encoding defaults: %w", err)
	}
	kept := defaults.Content[:0]
	for i := 0; i+1 < len(defaults.Content); i += 2 {
		if !set[defaults.Content[i].Value] {
			kept = append(kept, defaults.Content[i], defaults.Content[i+1])
		}
	}
	defaults.Content = kept

	header := "# Defaults written by \"hull init\" for keys not set elsewhere in this file;\n" +
		"# rerunning it resets this block.\n"
	var body string
	if len(kept) > 0 {
		out, err := yaml.Marshal(&defaults)
		if err != nil {
			return "", fmt.Errorf("encoding defaults: %w", err)
		}
		body = strings.TrimRight(string(out), "\n") + "\n"
	}
	return sentinelStart + "\n" + header + body + sentinelEnd, nil
}

// userKeys returns the top-level keys content sets outside the sentinel block,
// lowercased the way viper looks them up.
func userKeys(content string) (map[string]bool, error) {
	if start, end := strings.Index(content, sentinelStart), strings.Index(content, sentinelEnd); start >= 0 && end > start {
		content = content[:start] + content[end+len(sentinelEnd):]
	}

	keys := make(map[string]bool)
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("parsing existing settings: %w", err)
	}
	if len(doc.Content) == 0 {
		return keys, nil
	}

	m := doc.Content[0]
	switch {
	case m.Kind == yaml.MappingNode:
	case m.Kind == yaml.ScalarNode && m.ShortTag() == "!!null":
		return keys, nil
	default:
		return nil, errors.New("existing settings are not a YAML mapping")
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		keys[strings.ToLower(m.Content[i].Value)] = true
	}
	return keys, nil
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if len(content) == 0 {
		return section + "\n"
	}
	return content + "\n" + section + "\n"
}
