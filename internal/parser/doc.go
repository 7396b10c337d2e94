// Package parser fetches web pages and turns them into word counts and links.
//
// Parser is the PageSource the crawler uses in production. It reads pages
// over http and https through a configurable http.Client, and local files
// through the file scheme, then walks the HTML with golang.org/x/net/html.
//
// # Words
//
// Words are taken from text nodes outside script, style, noscript and
// template elements. Text is split on white space, lower-cased and stripped
// of every character that is not a letter, digit or underscore. Words that
// fully match an ignored-word pattern are dropped.
//
// # Links
//
// Links are the href attributes of anchor elements, resolved against the
// page URL or the document's base element. Fragments are removed and
// javascript, mailto, tel and data links are skipped. Each link appears once,
// in document order.
package parser
