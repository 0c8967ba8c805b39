package source

import "fmt"

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
)

const (
	// FileVirtual marks files added from memory (tests, stdin).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

// File captures metadata and content for a single source file.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol is a 1-based line/column pair.
type LineCol struct {
	Line uint32
	Col  uint32
}

// Position is a resolved source location used in diagnostics.
type Position struct {
	Path string
	Line uint32
	Col  uint32
}

func (p Position) String() string {
	if p.Path == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.Path, p.Line, p.Col)
}
