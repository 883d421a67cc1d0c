package model

import "time"

// Transfer is one token transfer attempt, keyed by EventID.
type Transfer struct {
	EventID         string    `json:"eventId"`
	ChainID         string    `json:"chainId"`
	TokenSymbol     string    `json:"tokenSymbol"`
	TokenAddress    string    `json:"tokenAddress"`
	SenderTgID      string    `json:"senderTgId"`
	SenderWallet    string    `json:"senderWallet"`
	SenderName      string    `json:"senderName,omitempty"`
	SenderHandle    string    `json:"senderHandle,omitempty"`
	RecipientTgID   string    `json:"recipientTgId"`
	RecipientWallet string    `json:"recipientWallet"`
	TokenAmount     string    `json:"tokenAmount"`
	Status          OpStatus  `json:"status"`
	TransactionHash string    `json:"transactionHash,omitempty"`
	UserOpHash      string    `json:"userOpHash,omitempty"`
	DateAdded       time.Time `json:"dateAdded"`
}
