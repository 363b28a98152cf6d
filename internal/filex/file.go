// Package filex contains helpers around uploaded files: deriving storage
// extensions and display values from a declared filename, and preparing
// local directories.
package filex

import (
	"fmt"
	"math"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExt is used when the declared filename carries no usable suffix.
const DefaultExt = "pdf"

// EnsureSubdDir creates dirName under the current working directory if it
// does not exist yet and returns its absolute path.
func EnsureSubdDir(dirName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// StorageExt returns the lower-cased suffix of the last path element of a
// declared filename, for use in a storage path. Both / and \ separate
// elements. Only ASCII letters and digits survive, so separators or traversal
// sequences can never reach the path. An empty result falls back to
// DefaultExt.
func StorageExt(declared string) string {
	base := declared[strings.LastIndexAny(declared, `/\`)+1:]
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return DefaultExt
	}

	var b strings.Builder
	for _, r := range strings.ToLower(base[i+1:]) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return DefaultExt
	}
	return b.String()
}

// DisplayExt is the upper-cased suffix of name, or "?" when there is none.
func DisplayExt(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return "?"
	}
	return strings.ToUpper(name[i+1:])
}

// ShortFilename shortens names longer than 25 characters. Names with a dot
// keep their first 15 and last 10 characters so the extension stays visible.
func ShortFilename(name string) string {
	r := []rune(name)
	if len(r) <= 25 {
		return name
	}
	if strings.Contains(name, ".") {
		return string(r[:15]) + "..." + string(r[len(r)-10:])
	}
	return string(r[:22]) + "..."
}

// MimeType guesses a content type from the declared filename only.
// It returns "" when the extension is unknown.
func MimeType(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	t := mime.TypeByExtension(strings.ToLower(ext))
	if i := strings.Index(t, ";"); i >= 0 {
		t = t[:i]
	}
	return t
}

// SizeDisplay renders a byte count with binary prefixes ("1.5KiB").
// Zero renders as "".
func SizeDisplay(size int64) string {
	if size == 0 {
		return ""
	}
	num := float64(size)
	for _, unit := range []string{"", "Ki", "Mi", "Gi", "Ti", "Pi", "Ei", "Zi"} {
		if math.Abs(num) < 1024.0 {
			return fmt.Sprintf("%3.1f%sB", num, unit)
		}
		num /= 1024.0
	}
	return fmt.Sprintf("%.1fYiB", num)
}
