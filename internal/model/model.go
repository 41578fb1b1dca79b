// Package model defines the report structures shared by the hull, graph and
// encoder packages.
package model

// Dependency is an edge of the class graph: Source's constant pool refers to Target.
type Dependency struct {
	Source string
	Target string
}

// ClassEntry describes one class of a hull.
type ClassEntry struct {
	Name   string
	Source string // where the class file was loaded from
	Rank   float64
}

// Stats counts the references a traversal dropped.
type Stats struct {
	References int // names yielded by the reference extractor
	Excluded   int // dropped by the exclusion filter
	Unresolved int // not found on the classpath
}

// HullReport is a computed hull, ready for serialization. Classes are in
// discovery order with the start class first.
type HullReport struct {
	Start        string
	Classes      []ClassEntry
	Dependencies []Dependency
	Stats        Stats
}

// ClassSize is the hull size of one classpath class.
type ClassSize struct {
	Name string
	Hull int // classes in the hull, the class itself included
}
