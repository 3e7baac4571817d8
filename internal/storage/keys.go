package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// Top-level key segments. Raw uploads land under uploads/, the external
// cleaner writes plain text under cleaned/ with the same middle segments.
const (
	UploadRoot     = "uploads"
	CleanedRoot    = "cleaned"
	CleanExtension = ".txt"

	fallbackBaseName = "file"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	trailingExt   = regexp.MustCompile(`\.[^.]+$`)
)

// UploadPrefix is the key prefix every raw upload of folder lives under.
func UploadPrefix(folder string) string {
	return UploadRoot + "/" + folder + "/"
}

// CleanedPrefix is the key prefix every cleaned text of folder lives under.
func CleanedPrefix(folder string) string {
	return CleanedRoot + "/" + folder + "/"
}

// HasPrefixStrict reports whether key is under prefix and names something below it.
func HasPrefixStrict(key, prefix string) bool {
	return len(key) > len(prefix) && strings.HasPrefix(key, prefix)
}

// SanitizeFilename turns a user-supplied filename into a key-safe segment.
// Whitespace runs become "-", anything outside [A-Za-z0-9._-] is dropped and
// the extension survives when the name has one (a dot that is neither first
// nor last).
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return fallbackBaseName
	}
	name = path.Base(name)

	base, ext := name, ""
	if dot := strings.LastIndex(name, "."); dot > 0 && dot < len(name)-1 {
		base, ext = name[:dot], name[dot:]
	}

	base = strings.TrimLeft(slug(base), ".")
	if base == "" {
		base = fallbackBaseName
	}
	if ext = slug(ext); ext == "." {
		ext = ""
	}
	return base + ext
}

func slug(s string) string {
	s = whitespaceRun.ReplaceAllString(s, "-")
	return unsafeChars.ReplaceAllString(s, "")
}

// BuildUploadKey returns uploads/{folder}/{yyyy}/{mm}/{dd}/{id}-{sanitized filename}.
func BuildUploadKey(folder string, now time.Time, id, filename string) string {
	now = now.UTC()
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%s-%s",
		UploadRoot, folder, now.Year(), int(now.Month()), now.Day(), id, SanitizeFilename(filename))
}

// DeriveCleanKey maps a raw upload key to the key the cleaner writes text to.
// A leading "uploads" segment becomes "cleaned", the last segment's extension
// becomes ".txt" (appended when there is none) and every middle segment is kept.
//
//	uploads/u1/2025/01/02/abcd-Syllabus.pdf -> cleaned/u1/2025/01/02/abcd-Syllabus.txt
func DeriveCleanKey(rawKey string) string {
	segments := strings.Split(rawKey, "/")
	if segments[0] == UploadRoot {
		segments[0] = CleanedRoot
	}
	last := len(segments) - 1
	segments[last] = trailingExt.ReplaceAllString(segments[last], "") + CleanExtension
	return strings.Join(segments, "/")
}
