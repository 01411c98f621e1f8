package model

// StreamLink is one playable source inside an event.
type StreamLink struct {
	Link     string `json:"link"`
	Language string `json:"language,omitempty"`
	Bitrate  string `json:"bitrate,omitempty"`
	Quality  string `json:"quality,omitempty"`
}

// SearchSource is the result of querying one upstream site.
type SearchSource struct {
	Source     string       `json:"source"`
	SearchTerm string       `json:"search_term,omitempty"`
	GameTitle  string       `json:"game_title,omitempty"`
	Links      []StreamLink `json:"acestream_links"`
	Error      string       `json:"error,omitempty"`
}

// SearchResult is the full response of one /acestream lookup.
type SearchResult struct {
	Sources []SearchSource `json:"sources"`
}

// Empty reports whether no source produced any link.
func (r SearchResult) Empty() bool {
	for _, s := range r.Sources {
		if len(s.Links) > 0 {
			return false
		}
	}
	return true
}
