package diag

import "strconv"

// DefaultFile is the file name reported for templates parsed from a string.
const DefaultFile = "text"

// Position is a location in template source. Line and Column are 1-based.
type Position struct {
	Offset int
	Line   int
	Column int
}

// IsValid reports whether p refers to a real source location.
func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// Site identifies a call expression in source.
//
// Start is where the call expression begins. End is the position just past
// the callee name, which is where argument count mismatches are reported.
type Site struct {
	File  string
	Start Position
	End   Position
}

// Name returns the file name of the site, or [DefaultFile].
func (s Site) Name() string {
	if s.File == "" {
		return DefaultFile
	}

	return s.File
}

func format(file string, pos Position, severity Severity, msg string) string {
	if file == "" {
		file = DefaultFile
	}

	return file + "(" + strconv.Itoa(pos.Line) + "," + strconv.Itoa(pos.Column) +
		") : " + severity.String() + " : " + msg
}
