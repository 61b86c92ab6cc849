// Package layout turns a flat list of commits into a multi-lane timeline:
// branches become horizontal lanes, commits are spread chronologically across
// them and every resolvable parent link becomes a drawable path.
//
// Compute is a pure function. It keeps no state between calls and performs no
// I/O, so it is safe to call concurrently on independent inputs.
package layout

// ShortHashLen is the number of hash characters used for display.
const ShortHashLen = 7

// Commit is one historical revision as supplied by the git collaborator.
type Commit struct {
	Hash        string   `json:"hash"`
	ShortHash   string   `json:"shortHash"`
	Parents     []string `json:"parents"`
	AuthorName  string   `json:"authorName"`
	AuthorEmail string   `json:"authorEmail,omitempty"`
	Timestamp   int64    `json:"timestamp"`
	Message     string   `json:"message"`
	// Branches is ordered; the first entry decides the commit's lane.
	Branches []string `json:"branches"`
	Tags     []string `json:"tags"`
	IsMerge  bool     `json:"isMerge"`
}

// NewCommit builds a Commit and fills in the derived ShortHash and IsMerge fields.
func NewCommit(hash string, parents []string, author string, timestamp int64, message string) Commit {
	return Commit{
		Hash:       hash,
		ShortHash:  Short(hash),
		Parents:    parents,
		AuthorName: author,
		Timestamp:  timestamp,
		Message:    message,
		IsMerge:    len(parents) > 1,
	}
}

// Short returns the display form of a hash.
func Short(hash string) string {
	if len(hash) <= ShortHashLen {
		return hash
	}
	return hash[:ShortHashLen]
}
