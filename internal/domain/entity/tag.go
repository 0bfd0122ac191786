package entity

// TagCategory represents the display category of a tag
type TagCategory string

const (
	TagCategoryBehavior TagCategory = "Behavior"
	TagCategoryIdentity TagCategory = "Identity"
	TagCategoryAsset    TagCategory = "Asset"
	TagCategoryWarning  TagCategory = "Warning"
	TagCategoryGeneral  TagCategory = "General"
)

// Well-known tag submitters
const (
	SubmitterOfficial  = "Official"
	SubmitterMemeRadar = "MemeRadar"
)

// IsValid reports whether the category is one of the known categories
func (c TagCategory) IsValid() bool {
	switch c {
	case TagCategoryBehavior, TagCategoryIdentity, TagCategoryAsset, TagCategoryWarning, TagCategoryGeneral:
		return true
	default:
		return false
	}
}

// VoteDirection is an upvote or a downvote
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// IsValid reports whether the direction is up or down
func (d VoteDirection) IsValid() bool {
	return d == VoteUp || d == VoteDown
}

// VotePoint is one day of a tag's upvote history
type VotePoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Tag represents an official or community annotation on an address.
// Upvoted and Downvoted are mutually exclusive.
type Tag struct {
	ID          string      `json:"id"`
	Text        string      `json:"text"`
	Category    TagCategory `json:"category"`
	Asset       string      `json:"asset,omitempty"`
	Upvotes     uint64      `json:"upvotes"`
	Downvotes   uint64      `json:"downvotes"`
	SubmittedBy string      `json:"submitted_by"`
	Upvoted     bool        `json:"upvoted"`
	Downvoted   bool        `json:"downvoted"`
	IsOfficial  bool        `json:"is_official"`
	Voters      []string    `json:"voters,omitempty"`
	VoteHistory []VotePoint `json:"vote_history,omitempty"`

	// Ballots holds the active vote of each identity, keyed by lower-cased address
	Ballots map[string]VoteDirection `json:"-"`
}

// NetScore returns upvotes minus downvotes
func (t Tag) NetScore() int64 {
	return int64(t.Upvotes) - int64(t.Downvotes)
}

// Clone returns a deep copy of the tag
func (t Tag) Clone() Tag {
	out := t
	if t.Voters != nil {
		out.Voters = append([]string(nil), t.Voters...)
	}
	if t.VoteHistory != nil {
		out.VoteHistory = append([]VotePoint(nil), t.VoteHistory...)
	}
	if t.Ballots != nil {
		out.Ballots = make(map[string]VoteDirection, len(t.Ballots))
		for k, v := range t.Ballots {
			out.Ballots[k] = v
		}
	}
	return out
}

// ViewFor returns a copy of the tag with the vote flags of the given identity
func (t Tag) ViewFor(identity string) Tag {
	out := t.Clone()
	dir := t.Ballots[CanonicalAddress(identity)]
	out.Upvoted = dir == VoteUp
	out.Downvoted = dir == VoteDown
	return out
}

// SourceTag is a tag as reported by the external tag source
type SourceTag struct {
	TagName  string `json:"tagName"`
	Category int    `json:"category"`
	Count    int64  `json:"count"`
}

// WalletTags is the tag source response for a single address
type WalletTags struct {
	Address string      `json:"address"`
	Count   int64       `json:"count"`
	Tags    []SourceTag `json:"tags"`
}
