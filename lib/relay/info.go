package relay

// Info is the NIP-11 relay information document returned to a GET on
// the relay root with Accept: application/nostr+json.
type Info struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Pubkey        string `json:"pubkey"`
	Contact       string `json:"contact"`
	SupportedNIPs []int  `json:"supported_nips"`
}

// BuildInfo assembles the relay info document for cfg.
func BuildInfo(cfg *Config) Info {
	return Info{
		ID:            cfg.ID,
		Name:          cfg.Name,
		Description:   cfg.Description,
		Pubkey:        cfg.Pubkey,
		Contact:       cfg.Contact,
		SupportedNIPs: []int{1, 9, 11, 12, 15, 16, 20, 33},
	}
}
