package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmespath/go-jmespath"
)

// expression converts a dotted path (data.items.0) into JMESPath. Paths that
// already use JMESPath syntax are returned unchanged.
func expression(path string) string {
	if strings.ContainsAny(path, "[]|@*?()`'\"") {
		return path
	}

	var b strings.Builder
	for i, segment := range strings.Split(path, ".") {
		if _, err := strconv.Atoi(segment); err == nil {
			fmt.Fprintf(&b, "[%s]", segment)
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Quote(segment))
	}
	return b.String()
}

// lookup evaluates path against a decoded JSON document
func lookup(doc any, path string) (any, error) {
	result, err := jmespath.Search(expression(path), doc)
	if err != nil {
		return nil, fmt.Errorf("invalid path %s: %w", path, err)
	}
	return result, nil
}
