package converter

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ginjaninja78/ttd-writer/internal/types"
)

// Paths are split on Delimiter repeatedly. A segment of the form "_N"
// (written as "___N" in a path, e.g. "CreativeIds___0") addresses element N
// of an array; every other segment is an object key. Array elements are
// ordered by N ascending, gaps are closed.

// node is one position of the document being assembled.
type node struct {
	leaf   bool
	value  string
	fields map[string]*node
	items  map[int]*node
}

// Tangle merges path/value pairs into one nested document.
func Tangle(pairs []types.PathValue) (types.Document, error) {
	root := &node{fields: map[string]*node{}}
	for _, pv := range pairs {
		if err := root.insert(pv.Path, SplitPath(pv.Path), pv.Value); err != nil {
			return nil, err
		}
	}
	return root.materialize().(types.Document), nil
}

// SplitPath splits a path into its segments.
func SplitPath(path string) []string {
	var segs []string
	rest := path
	for {
		prefix, suffix, ok := SplitKey(rest)
		if !ok {
			return append(segs, rest)
		}
		segs = append(segs, prefix)
		rest = suffix
	}
}

// arrayIndex reports whether seg is an array index segment.
func arrayIndex(seg string) (int, bool) {
	if len(seg) < 2 || seg[0] != '_' {
		return 0, false
	}
	for _, r := range seg[1:] {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (n *node) insert(path string, segs []string, value string) error {
	if path == "" {
		return &types.ValidationError{Path: path, Message: "empty path"}
	}
	if _, isIdx := arrayIndex(segs[0]); isIdx {
		return &types.ValidationError{Path: path, Message: "path must start with an object key"}
	}

	cur := n
	for i, seg := range segs {
		if cur.leaf {
			return &types.ValidationError{Path: path, Value: value,
				Message: fmt.Sprintf("conflicts with a value already set at segment %d", i)}
		}

		var next *node
		if idx, isIdx := arrayIndex(seg); isIdx {
			if cur.fields != nil {
				return &types.ValidationError{Path: path, Value: value, Message: "mixes array indices and object keys"}
			}
			if cur.items == nil {
				cur.items = map[int]*node{}
			}
			next = cur.items[idx]
			if next == nil {
				next = &node{}
				cur.items[idx] = next
			}
		} else {
			if cur.items != nil {
				return &types.ValidationError{Path: path, Value: value, Message: "mixes array indices and object keys"}
			}
			if cur.fields == nil {
				cur.fields = map[string]*node{}
			}
			next = cur.fields[seg]
			if next == nil {
				next = &node{}
				cur.fields[seg] = next
			}
		}

		if i == len(segs)-1 {
			if next.leaf || next.fields != nil || next.items != nil {
				return &types.ValidationError{Path: path, Value: value, Message: "duplicate path"}
			}
			next.leaf = true
			next.value = value
		}
		cur = next
	}
	return nil
}

func (n *node) materialize() any {
	switch {
	case n.leaf:
		return n.value
	case n.items != nil:
		idx := make([]int, 0, len(n.items))
		for i := range n.items {
			idx = append(idx, i)
		}
		sort.Ints(idx)
		arr := make([]any, len(idx))
		for i, k := range idx {
			arr[i] = n.items[k].materialize()
		}
		return arr
	default:
		doc := make(types.Document, len(n.fields))
		for k, child := range n.fields {
			doc[k] = child.materialize()
		}
		return doc
	}
}
