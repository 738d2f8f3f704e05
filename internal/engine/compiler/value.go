package compiler

import (
	"strconv"
	"strings"

	"github.com/PolishRoute/ideal-guacamole/internal/engine/types"
)

// parseVarRef parses the variable reference syntax: optional leading '$',
// then name, then optional '[index]'. A leading '$' sets IsRef=true.
func parseVarRef(s string) (types.VarOrConst, error) {
	isRef := false
	if strings.HasPrefix(s, "$") {
		isRef = true
		s = s[1:]
	}

	name := s
	var index *int
	if strings.HasSuffix(s, "]") {
		open := strings.LastIndex(s, "[")
		if open == -1 {
			return types.VarOrConst{}, errMalformed("malformed index expression %q", s)
		}
		name = s[:open]
		idxStr := s[open+1 : len(s)-1]
		n, err := strconv.Atoi(idxStr)
		if err != nil {
			return types.VarOrConst{}, errMalformed("bad index %q: %v", idxStr, err)
		}
		index = &n
	}

	return types.VarOrConst{IsRef: isRef, Name: name, Index: index}, nil
}

// parseText splits a "text" directive payload into an optional speaker and
// a body. The payload is split on the first space only when it contains a
// '"'; otherwise the whole payload is the body with no speaker. Both halves
// are unescaped.
func parseText(s string) (*string, string) {
	if strings.Contains(s, `"`) {
		if a, b, ok := strings.Cut(s, " "); ok {
			speaker := unescape(a)
			return &speaker, unescape(b)
		}
	}
	return nil, unescape(s)
}
