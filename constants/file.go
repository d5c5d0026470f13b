package constants

import "strings"

// FileTypes holds the allowed file types for the format field in ExtractJob.
var FileTypes = []string{FormatPDF, FormatTXT}

// AllowedExtensions holds the default allowed file extensions for ticket ingestion.
// Delivery tickets arrive as born-digital PDF exports from the batching plant;
// plain-text dumps are accepted for replaying archived pages.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
	"txt": {},
}

// Format values stored on ExtractJob rows.
const (
	FormatPDF = "PDF"
	FormatTXT = "TXT"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a file extension to the job format constant.
// Returns "" for extensions the pipeline does not handle.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return FormatPDF
	case "txt":
		return FormatTXT
	default:
		return ""
	}
}
