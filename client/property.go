package client

import "time"

// Property is a tokenized real-estate listing as served by the backend.
type Property struct {
	ID            string     `json:"id"`
	OnChainID     *int64     `json:"on_chain_id,omitempty"`
	Name          string     `json:"name"`
	Location      string     `json:"location"`
	Status        string     `json:"status"`
	TokenAddress  string     `json:"token_address,omitempty"`
	AccessControl string     `json:"access_control_address,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// IsOnChain reports whether the property has been registered on-chain
func (p Property) IsOnChain() bool {
	return p.OnChainID != nil
}
