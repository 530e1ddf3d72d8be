package storage

import (
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
)

const (
	placeholderKey = "temp"
	nameMarker     = "style"
	maxKeyLen      = 64
)

// Namer generates artifact names of the form {key}-style-{millis}{ext}.
// Millisecond stamps never repeat within one Namer, even for the same key.
type Namer struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewNamer returns a Namer driven by the wall clock.
func NewNamer() *Namer {
	return &Namer{now: time.Now}
}

// Name builds a new artifact name for key and the original file extension.
func (n *Namer) Name(key, ext string) string {
	return fmt.Sprintf("%s-%s-%d%s", sanitizeKey(key), nameMarker, n.next(), sanitizeExt(ext))
}

func (n *Namer) next() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	ms := n.now().UnixMilli()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	return ms
}

func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return placeholderKey
	}
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= maxKeyLen {
			break
		}
	}
	return b.String()
}

// sanitizeExt keeps a short alphanumeric extension, lower-cased, with its dot.
func sanitizeExt(ext string) string {
	ext = strings.ToLower(path.Ext("x" + strings.TrimSpace(ext)))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// validRef reports whether ref is a bare artifact name with no path parts.
func validRef(ref string) bool {
	return ref != "" && ref != "." && ref != ".." && !strings.ContainsAny(ref, `/\`)
}
