// Package search queries indexers for album releases and decides which
// results are worth snatching.
//
// Indexers speak the Torznab/Newznab XML API. Their results pass through the
// Matcher, which applies size and seeder limits, word filters and a track
// count heuristic, and then through ranking helpers for preferred words,
// bitrate targets and the torrent/usenet preference. Searcher ties these to
// the catalog and records the chosen result as a snatch.
package search
