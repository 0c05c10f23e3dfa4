// Kiwi checks keys against glob patterns after applying range scans; the following module implements glob matching.

package scan

import (
	"iter"

	"github.com/mehrantsi/feox/pkg/utils"
	"v.io/v23/glob"
)

// MatchesGlob reports whether a single key matches pattern, for callers (e.g. pkg/pubsub) that test one
// candidate at a time rather than filtering a stream.
func MatchesGlob(pattern []byte, key []byte) bool {
	parsedPattern, err := glob.Parse(string(pattern))
	if err != nil {
		return false
	}
	return parsedPattern.Head().Match(string(key))
}

// MatchGlob matches the `pairs` stream with the given `glob` pattern.
func MatchGlob(pattern []byte, pairs iter.Seq[utils.BytePair]) iter.Seq[utils.BytePair] {
	// Parse the glob pattern.
	parsedPattern, err := glob.Parse(string(pattern))
	if err != nil { // If pattern is invalid, return empty sequence.
		return func(yield func(utils.BytePair) bool) {}
	}
	return func(yield func(utils.BytePair) bool) {
		for pair := range pairs {
			if parsedPattern.Head().Match(string(pair.Key)) {
				if !yield(pair) {
					return
				}
			}
		}
	}
}
