package richtext

import "strings"

// Format is the editor's inline formatting bitmask.
type Format int

const (
	FormatBold Format = 1 << iota
	FormatItalic
	FormatStrikethrough
	FormatUnderline
	FormatCode
	// FormatSubscript and FormatSuperscript are decoded but never rendered.
	FormatSubscript
	FormatSuperscript
)

// formatTags lists the rendered formats outermost first.
var formatTags = []struct {
	format Format
	tag    string
}{
	{FormatBold, "strong"},
	{FormatItalic, "em"},
	{FormatUnderline, "u"},
	{FormatStrikethrough, "s"},
	{FormatCode, "code"},
}

var formatNames = map[Format]string{
	FormatBold:          "bold",
	FormatItalic:        "italic",
	FormatStrikethrough: "strikethrough",
	FormatUnderline:     "underline",
	FormatCode:          "code",
	FormatSubscript:     "subscript",
	FormatSuperscript:   "superscript",
}

// Has reports whether all bits of x are set in f.
func (f Format) Has(x Format) bool {
	return x != 0 && f&x == x
}

// Formats returns the rendered formats set in f, outermost first.
func (f Format) Formats() []Format {
	var out []Format
	for _, ft := range formatTags {
		if f.Has(ft.format) {
			out = append(out, ft.format)
		}
	}
	return out
}

func (f Format) String() string {
	if f == 0 {
		return "plain"
	}
	var names []string
	for bit := FormatBold; bit <= FormatSuperscript; bit <<= 1 {
		if f.Has(bit) {
			names = append(names, formatNames[bit])
		}
	}
	return strings.Join(names, "|")
}

// FormatOf builds a bitmask from individual formats.
func FormatOf(formats ...Format) Format {
	var f Format
	for _, x := range formats {
		f |= x
	}
	return f
}
