package parser

import (
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/wordcrawl/internal/model"
)

// nonWordChars matches everything stripped from a word.
var nonWordChars = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// skippedElements hold no readable text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// Parse reads an HTML document and extracts its words and links.
// pageURL is used to resolve relative links.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Text inside script and style elements is easy to leave out
//  3. Base elements and attribute escaping come for free
func (p *Parser) Parse(content io.Reader, pageURL *url.URL) (*model.PageResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	if pageURL == nil {
		pageURL = &url.URL{}
	}

	w := &walker{
		parser: p,
		base:   pageURL,
		caser:  cases.Lower(language.Und),
		counts: make(map[string]int),
		links:  make([]string, 0),
		seen:   make(map[string]bool),
	}
	w.walk(doc)

	return &model.PageResult{
		WordCounts: w.counts,
		Links:      w.links,
	}, nil
}

// walker holds the state of one document traversal. A cases.Caser is not
// safe for concurrent use, so each traversal gets its own.
type walker struct {
	parser  *Parser
	base    *url.URL
	caser   cases.Caser
	counts  map[string]int
	links   []string
	seen    map[string]bool
	hasBase bool
}

func (w *walker) walk(n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
		w.processElement(n)
	case html.TextNode:
		w.addWords(n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *walker) processElement(n *html.Node) {
	switch n.Data {
	case "base":
		// Only the first base element counts.
		if w.hasBase {
			return
		}
		if href := getAttr(n, "href"); href != "" {
			if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
				w.base = w.base.ResolveReference(u)
				w.hasBase = true
			}
		}

	case "a":
		if link := w.resolveURL(getAttr(n, "href")); link != "" && !w.seen[link] {
			w.seen[link] = true
			w.links = append(w.links, link)
		}
	}
}

func (w *walker) addWords(text string) {
	for _, field := range strings.Fields(text) {
		word := nonWordChars.ReplaceAllString(w.caser.String(field), "")
		if word == "" || w.parser.isIgnored(word) {
			continue
		}
		w.counts[word]++
	}
}

// resolveURL resolves href against the base URL. It returns "" for links
// that cannot be crawled.
func (w *walker) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := w.base.ResolveReference(u)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}

func (p *Parser) isIgnored(word string) bool {
	for _, re := range p.ignoredWords {
		if re.MatchString(word) {
			return true
		}
	}
	return false
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
