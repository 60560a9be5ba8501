package segment

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"mvdan.cc/xurls/v2"
)

const marker = '!'

type matchKind int

const (
	matchURL matchKind = iota
	matchPath
	matchQuotedPath
)

type match struct {
	kind  matchKind
	start int // offset of the marker
	end   int
	value string // URL or path
}

// urlPattern is the relaxed xurls expression anchored at the scan position.
var urlPattern = func() *regexp.Regexp {
	re := regexp.MustCompile(`^(?:` + xurls.Relaxed().String() + `)`)
	re.Longest()
	return re
}()

// scan returns the non-overlapping image references of query in order. At every
// marker the alternatives are tried as URL, then bare path, then quoted path.
func scan(query string) []match {
	var matches []match
	for i := 0; i < len(query); {
		if query[i] != marker {
			i++
			continue
		}
		m, ok := matchAt(query, i)
		if !ok {
			i++
			continue
		}
		matches = append(matches, m)
		i = m.end
	}
	return matches
}

func matchAt(query string, at int) (match, bool) {
	rest := query[at+1:]
	if u, n, ok := matchURLToken(rest); ok {
		return match{kind: matchURL, start: at, end: at + 1 + n, value: u}, true
	}
	if p, n, ok := matchBarePath(rest); ok {
		return match{kind: matchPath, start: at, end: at + 1 + n, value: p}, true
	}
	if p, n, ok := matchQuoted(rest); ok {
		return match{kind: matchQuotedPath, start: at, end: at + 1 + n, value: p}, true
	}
	return match{}, false
}

// matchURLToken accepts http(s) URLs and scheme-less host/path references such
// as example.com/cat.png, which are fetched over https.
func matchURLToken(s string) (string, int, bool) {
	loc := urlPattern.FindStringIndex(s)
	if loc == nil {
		return "", 0, false
	}
	raw := s[:loc[1]]

	target := raw
	if scheme, _, found := strings.Cut(raw, "://"); found {
		switch strings.ToLower(scheme) {
		case "http", "https":
		default:
			return "", 0, false
		}
	} else {
		host, _, hasPath := strings.Cut(raw, "/")
		if !hasPath || strings.Contains(host, "@") {
			return "", 0, false
		}
		target = "https://" + raw
	}

	u, err := url.Parse(target)
	if err != nil || u.Host == "" || u.User != nil || strings.HasSuffix(u.Host, ":") {
		return "", 0, false
	}
	return target, len(raw), true
}

// matchBarePath accepts a run of non-space characters whose last element has an
// extension. Trailing sentence punctuation and unbalanced closing brackets are
// left out of the token.
func matchBarePath(s string) (string, int, bool) {
	if s == "" || s[0] == '"' || s[0] == marker {
		return "", 0, false
	}
	n := strings.IndexFunc(s, unicode.IsSpace)
	if n < 0 {
		n = len(s)
	}
	token := trimTrailing(s[:n])
	if !hasExtension(token) {
		return "", 0, false
	}
	return token, len(token), true
}

// matchQuoted accepts "path with spaces.ext" on a single line.
func matchQuoted(s string) (string, int, bool) {
	if !strings.HasPrefix(s, `"`) {
		return "", 0, false
	}
	end := strings.IndexAny(s[1:], "\"\n")
	if end < 0 || s[1+end] != '"' {
		return "", 0, false
	}
	path := s[1 : 1+end]
	if strings.TrimSpace(path) == "" || !hasExtension(path) {
		return "", 0, false
	}
	return path, end + 2, true
}

var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

func trimTrailing(token string) string {
	for token != "" {
		last := token[len(token)-1]
		if strings.IndexByte(".,;:!?", last) >= 0 {
			token = token[:len(token)-1]
			continue
		}
		if open, ok := closers[last]; ok && strings.Count(token, string(last)) > strings.Count(token, string(open)) {
			token = token[:len(token)-1]
			continue
		}
		break
	}
	return token
}

// hasExtension reports whether the last path element has a name and an extension.
func hasExtension(p string) bool {
	base := p
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		base = p[i+1:]
	}
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 || dot == len(base)-1 {
		return false
	}
	return strings.Trim(base[:dot], ".") != ""
}
