package validate

import "fmt"

// Unicode prompt-injection background:
// https://www.robustintelligence.com/blog-posts/understanding-and-mitigating-unicode-tag-prompt-injection

// DetectionCategory classifies a problematic character found in
// tool-facing text.
type DetectionCategory string

const (
	TagChar      DetectionCategory = "Unicode Tag (U+E0000-U+E007F)"
	BidiControl  DetectionCategory = "Bidirectional Control"
	InvisibleFmt DetectionCategory = "Invisible Formatting"
	NonCharacter DetectionCategory = "Non-Character"
)

// Detection records one problematic rune in a scanned string.
type Detection struct {
	Rune     rune              `json:"rune"`
	Hex      string            `json:"hex"`
	Index    int               `json:"index"` // byte index in the original string
	Category DetectionCategory `json:"category"`
}

func isTag(r rune) bool {
	return r >= 0xE0000 && r <= 0xE007F
}

// See https://www.unicode.org/reports/tr9/
func isBidiControl(r rune) bool {
	return (r >= 0x202A && r <= 0x202E) ||
		(r >= 0x2066 && r <= 0x2069) ||
		r == 0x061C
}

func isInvisibleFormatting(r rune) bool {
	switch r {
	case 0x200B, // zero width space
		0x200C, // zero width non-joiner
		0x200D, // zero width joiner
		0x2060, // word joiner
		0xFEFF: // zero width no-break space / BOM
		return true
	default:
		return false
	}
}

func isNonCharacter(r rune) bool {
	if r >= 0xFDD0 && r <= 0xFDEF {
		return true
	}
	// U+nFFFE / U+nFFFF at the end of any plane
	return (r&0xFFFE) == 0xFFFE || (r&0xFFFF) == 0xFFFF
}

// DetectHiddenUnicode scans text for runes that can hide instructions from
// a human reviewer: Unicode tag characters, bidi controls, invisible
// formatting, and non-characters. Tool descriptions are screened with this
// at registration time.
func DetectHiddenUnicode(text string) []Detection {
	detected := make([]Detection, 0)
	for index, r := range text {
		var category DetectionCategory
		switch {
		case isTag(r):
			category = TagChar
		case isBidiControl(r):
			category = BidiControl
		case isInvisibleFormatting(r):
			category = InvisibleFmt
		case isNonCharacter(r):
			category = NonCharacter
		default:
			continue
		}
		detected = append(detected, Detection{
			Rune:     r,
			Hex:      fmt.Sprintf("U+%04X", r),
			Index:    index,
			Category: category,
		})
	}
	return detected
}
