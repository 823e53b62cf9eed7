package dimension

// Dimension is the per-conversation configuration record: context text fed
// into prompt assembly plus the whitelist of characters permitted to respond
// in the conversation. Created lazily the first time a conversation is seen.
type Dimension struct {
	ChannelID   string            `json:"channel_id"`
	Name        string            `json:"name"`
	Instruction string            `json:"instruction"`
	GlobalNote  string            `json:"global_note"`
	Location    string            `json:"location"`
	Lorebook    map[string]string `json:"lorebook"`
	Whitelist   []string          `json:"whitelist"`
}

// Whitelisted reports whether name is in the dimension's whitelist. The
// comparison is exact: whitelist entries are stored display names.
func (d Dimension) Whitelisted(name string) bool {
	for _, entry := range d.Whitelist {
		if entry == name {
			return true
		}
	}
	return false
}
