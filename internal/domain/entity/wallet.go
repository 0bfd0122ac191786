package entity

import (
	"strings"
	"time"
)

// AddressRecord is the aggregated profile of one blockchain address
type AddressRecord struct {
	ID            string    `json:"id"`
	Address       string    `json:"address"`
	Stats         Stats     `json:"stats"`
	OfficialTags  []string  `json:"official_tags"`
	CommunityTags []Tag     `json:"community_tags"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CanonicalAddress returns the lower-cased form used for comparison
func CanonicalAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Canonical returns the record address in comparison form
func (r *AddressRecord) Canonical() string {
	return CanonicalAddress(r.Address)
}

// FindTag returns the index of the community tag with the given id, or -1
func (r *AddressRecord) FindTag(tagID string) int {
	for i, t := range r.CommunityTags {
		if t.ID == tagID {
			return i
		}
	}
	return -1
}

// HasTagText reports whether a community tag with the same text exists, ignoring case
func (r *AddressRecord) HasTagText(text string) bool {
	for _, t := range r.CommunityTags {
		if strings.EqualFold(t.Text, text) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record
func (r *AddressRecord) Clone() *AddressRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Stats = r.Stats.Clone()
	if r.OfficialTags != nil {
		out.OfficialTags = append([]string(nil), r.OfficialTags...)
	}
	if r.CommunityTags != nil {
		out.CommunityTags = make([]Tag, len(r.CommunityTags))
		for i, t := range r.CommunityTags {
			out.CommunityTags[i] = t.Clone()
		}
	}
	return &out
}

// WalletConnection represents aggregated transfers between two wallets
type WalletConnection struct {
	FromAddress string    `json:"from_address"`
	ToAddress   string    `json:"to_address"`
	TotalUSD    float64   `json:"total_usd"`
	TxCount     int64     `json:"tx_count"`
	FirstTx     time.Time `json:"first_tx"`
	LastTx      time.Time `json:"last_tx"`
}
