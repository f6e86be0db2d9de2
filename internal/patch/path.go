package patch

import (
	"fmt"
	"strconv"
	"strings"
)

// SegmentKind tags one parsed path accessor.
type SegmentKind int

const (
	// SegmentKey addresses a map key or struct field.
	SegmentKey SegmentKind = iota
	// SegmentIndex addresses a sequence element by position.
	SegmentIndex
)

// Segment is one accessor in a parsed path.
type Segment struct {
	Kind  SegmentKind
	Key   string
	Index int
}

func (s Segment) String() string {
	if s.Kind == SegmentIndex {
		return fmt.Sprintf("[%d]", s.Index)
	}
	return s.Key
}

// ParsePath parses a dotted/indexed path into accessor segments.
//
// Grammar by example:
//
//	project_bible.title              -> key(project_bible), key(title)
//	characters[CHAR_01].identity_lock -> key(characters), key(CHAR_01), key(identity_lock)
//	scenes[0].summary                -> key(scenes), index(0), key(summary)
//
// A bracketed token that is all digits is a sequence index; anything else is
// a map key.
func ParsePath(path string) ([]Segment, error) {
	if path == "" {
		return nil, &InvalidPathError{Path: path, Message: "empty path"}
	}

	var segs []Segment
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			segs = append(segs, Segment{Kind: SegmentKey, Key: current.String()})
			current.Reset()
		}
	}

	for i := 0; i < len(path); {
		switch path[i] {
		case '.':
			if current.Len() == 0 && len(segs) == 0 {
				return nil, &InvalidPathError{Path: path, Message: "path starts with '.'"}
			}
			flush()
			i++
			if i == len(path) {
				return nil, &InvalidPathError{Path: path, Message: "path ends with '.'"}
			}
		case '[':
			flush()
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, &InvalidPathError{Path: path, Message: "unterminated '['"}
			}
			token := path[i+1 : i+end]
			if token == "" {
				return nil, &InvalidPathError{Path: path, Message: "empty bracket accessor"}
			}
			if isDigits(token) {
				n, err := strconv.Atoi(token)
				if err != nil {
					return nil, &InvalidPathError{Path: path, Message: fmt.Sprintf("bad index %q", token)}
				}
				segs = append(segs, Segment{Kind: SegmentIndex, Index: n})
			} else {
				segs = append(segs, Segment{Kind: SegmentKey, Key: token})
			}
			i += end + 1
		case ']':
			return nil, &InvalidPathError{Path: path, Message: "unexpected ']'"}
		default:
			current.WriteByte(path[i])
			i++
		}
	}
	flush()

	if len(segs) == 0 {
		return nil, &InvalidPathError{Path: path, Message: "empty path"}
	}
	return segs, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
