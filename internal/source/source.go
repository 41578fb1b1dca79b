// Package source locates the class declared by a Java source file, so a
// .java path can seed a hull computation.
package source

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

//go:embed queries/java.scm
var queryFS embed.FS

// ErrNoType is returned when a file declares no top-level type.
var ErrNoType = errors.New("no top-level type declared")

var (
	queryOnce sync.Once
	query     *sitter.Query
	queryErr  error
)

// typeQuery returns the compiled declaration query (safe to share across goroutines).
func typeQuery() (*sitter.Query, error) {
	queryOnce.Do(func() {
		data, err := queryFS.ReadFile("queries/java.scm")
		if err != nil {
			queryErr = fmt.Errorf("reading query file: %w", err)
			return
		}
		q, err := sitter.NewQuery(data, java.GetLanguage())
		if err != nil {
			queryErr = fmt.Errorf("compiling query: %w", err)
			return
		}
		query = q
	})
	return query, queryErr
}

// Declaration is a top-level type found in a source file.
type Declaration struct {
	Name   string
	Kind   string
	Public bool
	Line   int
}

// File is the package and top-level types of one compilation unit.
type File struct {
	Package string
	Types   []Declaration
}

// Parse extracts the package and top-level type declarations from src.
func Parse(ctx context.Context, src []byte) (*File, error) {
	q, err := typeQuery()
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing java source: %w", err)
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	f := &File{}
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}

		var nameNode, declNode *sitter.Node
		for _, c := range match.Captures {
			switch q.CaptureNameForId(c.Index) {
			case "package":
				if f.Package == "" {
					f.Package = stripSpace(c.Node.Content(src))
				}
			case "name":
				nameNode = c.Node
			case "declaration":
				declNode = c.Node
			}
		}
		if nameNode == nil || declNode == nil {
			continue
		}

		f.Types = append(f.Types, Declaration{
			Name:   nameNode.Content(src),
			Kind:   strings.TrimSuffix(declNode.Type(), "_declaration"),
			Public: isPublic(declNode, src),
			Line:   int(nameNode.StartPoint().Row) + 1,
		})
	}
	return f, nil
}

// ClassName returns the binary name of the primary type in src: the public
// top-level type when there is one, otherwise the first declared.
func ClassName(src []byte) (string, error) {
	f, err := Parse(context.Background(), src)
	if err != nil {
		return "", err
	}
	return f.Primary()
}

// Primary returns the binary name of the file's main type.
func (f *File) Primary() (string, error) {
	if len(f.Types) == 0 {
		return "", ErrNoType
	}
	decl := f.Types[0]
	for _, d := range f.Types {
		if d.Public {
			decl = d
			break
		}
	}
	if f.Package == "" {
		return decl.Name, nil
	}
	return f.Package + "." + decl.Name, nil
}

func isPublic(decl *sitter.Node, src []byte) bool {
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		child := decl.NamedChild(i)
		if child.Type() != "modifiers" {
			continue
		}
		for _, word := range strings.Fields(child.Content(src)) {
			if word == "public" {
				return true
			}
		}
	}
	return false
}

// stripSpace removes whitespace tree-sitter keeps inside a scoped identifier
// such as "com . acme".
func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
