package entity

// SearchStatus is the resolver state discriminator
type SearchStatus string

const (
	SearchIdle     SearchStatus = "idle"
	SearchLoading  SearchStatus = "loading"
	SearchFound    SearchStatus = "found"
	SearchNotFound SearchStatus = "not_found"
	SearchError    SearchStatus = "error"
)

// SearchState is a snapshot of the address resolver
type SearchState struct {
	Status  SearchStatus `json:"status"`
	Seq     uint64       `json:"seq"`
	Input   string       `json:"input"`
	Address string       `json:"address,omitempty"`
	Tags    []SourceTag  `json:"tags,omitempty"`
	Message string       `json:"message,omitempty"`
}
