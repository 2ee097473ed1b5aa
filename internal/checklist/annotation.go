package checklist

import (
	"regexp"
	"strings"
	"time"
)

// annotationLayout renders " (M/D/YY at H:MM AM|PM)" when wrapped in parentheses.
// Stored checklist text depends on this exact shape.
const annotationLayout = "1/2/06 at 3:04 PM"

var annotationPattern = regexp.MustCompile(`(?i)\s*\(\d{1,2}/\d{1,2}/\d{2} at \d{1,2}:\d{2}\s*[ap]m\)\s*$`)

// Annotate appends the creation timestamp annotation to text.
func Annotate(text string, at time.Time) string {
	return strings.TrimSpace(text) + " (" + at.Format(annotationLayout) + ")"
}

// EnsureAnnotated annotates text with at unless it already carries an
// annotation, which is kept.
func EnsureAnnotated(text string, at time.Time) string {
	text = strings.TrimSpace(text)
	if AnnotationOf(text) != "" {
		return text
	}
	return Annotate(text, at)
}

// StripAnnotation removes a trailing timestamp annotation, if present.
func StripAnnotation(text string) string {
	return annotationPattern.ReplaceAllString(text, "")
}

// Normalize strips the annotation, lower-cases and trims text for comparison.
func Normalize(text string) string {
	return strings.TrimSpace(strings.ToLower(StripAnnotation(text)))
}

// AnnotationOf returns the trailing timestamp annotation of text, including
// its leading space, or "" when there is none.
func AnnotationOf(text string) string {
	return annotationPattern.FindString(text)
}
