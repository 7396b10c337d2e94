// Package wordcount selects the most popular words from an aggregate count map.
//
// The ordering is a total order so the result never depends on map iteration
// order or on the interleaving of the crawl that produced the counts:
//  1. Higher count first
//  2. For equal counts, the longer word first
//  3. For equal count and length, lexicographically ascending
package wordcount
