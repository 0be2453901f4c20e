package resume

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidPath = errors.New("invalid path")

// Segment is a record key or a list index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path addresses a node: dot-separated keys with bracketed list indices,
// e.g. "Working Experience[0].Bullet Points[1]". A key containing one of
// `\ . [ ]` has it escaped with a backslash.
type Path []Segment

// pathSpecial are the key bytes escaped in the textual form.
const pathSpecial = `\.[]`

// ParsePath parses the textual path form.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	var p Path
	i := 0
	for {
		var key strings.Builder
	scan:
		for i < len(s) {
			switch c := s[i]; {
			case c == '\\':
				if i+1 == len(s) || strings.IndexByte(pathSpecial, s[i+1]) < 0 {
					return nil, fmt.Errorf("%w: bad escape in %q", ErrInvalidPath, s)
				}
				key.WriteByte(s[i+1])
				i += 2
			case c == '.' || c == '[' || c == ']':
				break scan
			default:
				key.WriteByte(c)
				i++
			}
		}
		if key.Len() == 0 {
			return nil, fmt.Errorf("%w: empty key in %q", ErrInvalidPath, s)
		}
		p = append(p, Segment{Key: key.String()})

		for i < len(s) && s[i] == '[' {
			closing := strings.IndexByte(s[i:], ']')
			if closing < 0 {
				return nil, fmt.Errorf("%w: unterminated index in %q", ErrInvalidPath, s)
			}
			idx, err := parseIndex(s[i+1 : i+closing])
			if err != nil {
				return nil, fmt.Errorf("%w: %v in %q", ErrInvalidPath, err, s)
			}
			p = append(p, Segment{Index: idx, IsIndex: true})
			i += closing + 1
		}

		if i == len(s) {
			return p, nil
		}
		if s[i] != '.' {
			return nil, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidPath, s[i], s)
		}
		i++
	}
}

func parseIndex(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty index")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("index %q is not a number", s)
		}
	}
	return strconv.Atoi(s)
}

// MustParsePath is ParsePath for literals.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if seg.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		writeKey(&b, seg.Key)
	}
	return b.String()
}

func writeKey(b *strings.Builder, key string) {
	for i := 0; i < len(key); i++ {
		if strings.IndexByte(pathSpecial, key[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(key[i])
	}
}

// Key returns a new path extended by a record key.
func (p Path) Key(key string) Path {
	return p.with(Segment{Key: key})
}

// Index returns a new path extended by a list index.
func (p Path) Index(i int) Path {
	return p.with(Segment{Index: i, IsIndex: true})
}

func (p Path) with(seg Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// LastKey returns the innermost key segment.
func (p Path) LastKey() (string, bool) {
	for i := len(p) - 1; i >= 0; i-- {
		if !p[i].IsIndex {
			return p[i].Key, true
		}
	}
	return "", false
}
