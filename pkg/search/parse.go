package search

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"imgharvest/pkg/models"
)

// FindSizesLink returns the first anchor whose href starts with prefix and
// whose text equals linkText, ignoring case. The href is resolved against base.
func FindSizesLink(page []byte, base *url.URL, prefix, linkText string) (string, bool) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", false
	}

	var found string
	walk(doc, func(n *html.Node) bool {
		if n.DataAtom != atom.A {
			return true
		}
		href := attr(n, "href")
		if !strings.HasPrefix(href, prefix) {
			return true
		}
		if !strings.EqualFold(normalizeSpace(textOf(n)), normalizeSpace(linkText)) {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		found = ref.String()
		return false
	})
	return found, found != ""
}

// ParseCandidates extracts ["url", width, height] fragments from every
// script whose body starts with marker. Fragments whose second group does
// not hold exactly two integers are dropped. Duplicate URLs keep the first.
func ParseCandidates(page []byte, marker string, re *regexp.Regexp) []models.Candidate {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil
	}

	candidates := []models.Candidate{}
	seen := make(map[string]bool)
	walk(doc, func(n *html.Node) bool {
		if n.DataAtom != atom.Script {
			return true
		}
		body := strings.TrimSpace(textOf(n))
		if !strings.HasPrefix(body, marker) {
			return true
		}
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			c, ok := parseFragment(m)
			if !ok || seen[c.URL] {
				continue
			}
			seen[c.URL] = true
			candidates = append(candidates, c)
		}
		return true
	})
	return candidates
}

func parseFragment(m []string) (models.Candidate, bool) {
	if len(m) < 3 {
		return models.Candidate{}, false
	}

	fields := strings.Split(m[2], ",")
	dims := make([]int, 0, 2)
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return models.Candidate{}, false
		}
		dims = append(dims, n)
	}
	if len(dims) != 2 {
		return models.Candidate{}, false
	}

	rawURL := strings.ReplaceAll(m[1], `\/`, "/")
	if unquoted, err := strconv.Unquote(`"` + rawURL + `"`); err == nil {
		rawURL = unquoted
	}
	return models.NewCandidate(rawURL, dims[0], dims[1]), true
}

// walk visits nodes depth first until fn returns false
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
