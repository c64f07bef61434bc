package cache

import (
	"bytes"
	"encoding/json"
	"math"
	"unicode/utf16"
)

const (
	// bytesPerChar approximates the in-memory size of one UTF-16 code unit.
	bytesPerChar = 2

	// entryOverheadBytes covers timestamps and bookkeeping per entry.
	entryOverheadBytes = 24

	bytesPerKB = 1024
	bytesPerMB = 1024 * 1024
)

// MemoryUsage is an approximation of the memory held by cached entries.
type MemoryUsage struct {
	Bytes int     `json:"bytes"`
	KB    float64 `json:"kb"`
	MB    float64 `json:"mb"`
}

func newMemoryUsage(total int) MemoryUsage {
	return MemoryUsage{
		Bytes: total,
		KB:    roundTo(float64(total)/bytesPerKB, 2),
		MB:    roundTo(float64(total)/bytesPerMB, 4),
	}
}

// ValueSize estimates the serialized size of v in bytes: two bytes per
// character of its JSON form. Values that cannot be serialized size to 0.
func ValueSize(v any) int {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return 0
	}
	return textSize(string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))))
}

// textSize counts UTF-16 code units, two bytes each.
func textSize(s string) int {
	units := 0
	for _, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		units += n
	}
	return units * bytesPerChar
}

func entrySize(key string, e *Entry) int {
	return textSize(key) + ValueSize(e.Value) + entryOverheadBytes
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
