package model

import "time"

// VestingRecipient is one beneficiary inside a vesting plan batch.
type VestingRecipient struct {
	RecipientAddress string `json:"recipientAddress"`
	Amount           string `json:"amount"`
}

// Vesting is one batched vesting plan submission, keyed by EventID. All
// recipients go out in a single gateway call against the batch planner
// contract.
type Vesting struct {
	EventID         string             `json:"eventId"`
	UserTelegramID  string             `json:"userTelegramID"`
	SenderWallet    string             `json:"senderWallet"`
	ChainID         string             `json:"chainId"`
	TokenAddress    string             `json:"tokenAddress"`
	Recipients      []VestingRecipient `json:"recipients"`
	Status          OpStatus           `json:"status"`
	TransactionHash string             `json:"transactionHash,omitempty"`
	UserOpHash      string             `json:"userOpHash,omitempty"`
	DateAdded       time.Time          `json:"dateAdded"`
}
