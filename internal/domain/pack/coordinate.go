package pack

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// errCoordinateFormat is returned when a library coordinate cannot be parsed.
var errCoordinateFormat = errors.New("coordinate must look like group:artifact:version[:classifier]")

// Coordinate identifies a game library in Maven form.
type Coordinate struct {
	// Group is the dotted group id, e.g. "org.ow2.asm".
	Group string
	// Artifact is the artifact id, e.g. "asm".
	Artifact string
	// Version is the artifact version, e.g. "9.6".
	Version string
	// Classifier is an optional variant suffix, e.g. "natives-linux".
	Classifier string
}

// ParseCoordinate parses "group:artifact:version" with an optional
// ":classifier" tail, the form loader metadata uses for library names.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return Coordinate{}, fmt.Errorf("%w: %q", errCoordinateFormat, s)
	}

	for _, part := range parts[:3] {
		if part == "" {
			return Coordinate{}, fmt.Errorf("%w: %q", errCoordinateFormat, s)
		}
	}

	c := Coordinate{
		Group:    parts[0],
		Artifact: parts[1],
		Version:  parts[2],
	}

	if len(parts) == 4 {
		c.Classifier = parts[3]
	}

	return c, nil
}

// IsZero reports whether the coordinate is unset.
func (c Coordinate) IsZero() bool {
	return c.Group == "" && c.Artifact == ""
}

// Identity returns the part of the coordinate that must be unique on a
// classpath: group and artifact, plus the classifier when present.
func (c Coordinate) Identity() string {
	id := c.Group + ":" + c.Artifact
	if c.Classifier != "" {
		id += ":" + c.Classifier
	}

	return id
}

// JarName returns the artifact file name in Maven repository convention.
func (c Coordinate) JarName() string {
	name := c.Artifact + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}

	return name + ".jar"
}

// RepoPath returns the slash-separated path of the artifact inside a Maven
// repository layout, e.g. "org/ow2/asm/asm/9.6/asm-9.6.jar".
func (c Coordinate) RepoPath() string {
	return path.Join(
		strings.ReplaceAll(c.Group, ".", "/"),
		c.Artifact,
		c.Version,
		c.JarName(),
	)
}

// String renders the coordinate back in its colon-separated form.
func (c Coordinate) String() string {
	s := c.Group + ":" + c.Artifact + ":" + c.Version
	if c.Classifier != "" {
		s += ":" + c.Classifier
	}

	return s
}
