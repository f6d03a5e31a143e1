package models

// AccountRecord is the parsed view of one raw dump line. It is derived on
// the fly by the search aggregator and never persisted; only the raw line is
// indexed.
type AccountRecord struct {
	URL        string `json:"url"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	SourceFile string `json:"source_file,omitempty"`
}

// AccountView is one search hit as returned to clients. Raw is populated for
// admin callers only; public callers receive masked fields and never the raw
// line.
type AccountView struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Node       string `json:"node,omitempty"`
	Index      string `json:"index,omitempty"`
	SourceFile string `json:"source_file,omitempty"`
	Raw        string `json:"raw,omitempty"`
}
