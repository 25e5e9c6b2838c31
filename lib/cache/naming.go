package cache

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// BuildFileName derives an artifact name from t, formatted as
// YYYY_MM_DD_SS_NANOS.
func BuildFileName(t time.Time) string {
	return fmt.Sprintf("%d_%02d_%02d_%d_%d", t.Year(), int(t.Month()), t.Day(), t.Second(), t.Nanosecond())
}

// Numbered returns filename with a -N counter before the extension,
// replacing any counter already present.
func Numbered(filename string, counter int) string {
	base, _, ext := parseNumbered(filename)
	return fmt.Sprintf("%v-%v%v", base, counter, ext)
}

// parseNumbered splits "name-12.gif" into ("name", 12, ".gif").
func parseNumbered(filename string) (base string, num int, ext string) {
	ext = filepath.Ext(filename)
	filename = strings.TrimSuffix(filename, ext)

	if filename == "" && ext != "" {
		filename, ext = ext, ""
	}
	if filename == "" {
		return "", 0, ""
	}

	i := len(filename) - 1
	for ; i >= 0; i-- {
		if !unicode.IsDigit(rune(filename[i])) {
			break
		}
	}
	// a name made only of digits has no counter
	if i < 0 || filename[i] != '-' {
		return filename, 0, ext
	}

	if n, err := strconv.Atoi(filename[i+1:]); err == nil {
		num = n
	}
	return filename[:i], num, ext
}
