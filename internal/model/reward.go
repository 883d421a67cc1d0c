package model

import "time"

// Reward is one reward payout attempt, keyed by (EventID, Reason).
// For referral rewards UserTelegramID is the referent, not the new user.
type Reward struct {
	EventID               string    `json:"eventId"`
	UserTelegramID        string    `json:"userTelegramID"`
	ResponsePath          string    `json:"responsePath,omitempty"`
	UserHandle            string    `json:"userHandle,omitempty"`
	UserName              string    `json:"userName,omitempty"`
	WalletAddress         string    `json:"walletAddress"`
	Reason                string    `json:"reason"`
	Amount                string    `json:"amount"`
	Message               string    `json:"message,omitempty"`
	ParentTransactionHash string    `json:"parentTransactionHash,omitempty"`
	SponsoredTgID         string    `json:"sponsoredUserTelegramID,omitempty"`
	Status                OpStatus  `json:"status"`
	TransactionHash       string    `json:"transactionHash,omitempty"`
	UserOpHash            string    `json:"userOpHash,omitempty"`
	DateAdded             time.Time `json:"dateAdded"`
}
