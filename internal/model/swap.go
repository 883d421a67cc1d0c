package model

import "time"

// Swap is one token swap attempt, keyed by EventID. To/Value/Data carry the
// router call prepared upstream by the quote service.
type Swap struct {
	EventID         string    `json:"eventId"`
	UserTelegramID  string    `json:"userTelegramID"`
	UserWallet      string    `json:"userWallet"`
	ChainID         string    `json:"chainId"`
	TokenIn         string    `json:"tokenIn"`
	AmountIn        string    `json:"amountIn"`
	TokenOut        string    `json:"tokenOut"`
	AmountOut       string    `json:"amountOut"`
	PriceImpact     string    `json:"priceImpact,omitempty"`
	Gas             string    `json:"gas,omitempty"`
	To              string    `json:"to"`
	Value           string    `json:"value"`
	Data            string    `json:"data"`
	Status          OpStatus  `json:"status"`
	TransactionHash string    `json:"transactionHash,omitempty"`
	UserOpHash      string    `json:"userOpHash,omitempty"`
	DateAdded       time.Time `json:"dateAdded"`
}
