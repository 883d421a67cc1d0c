package model

import "time"

// User is a known wallet user. A user record is only persisted after the
// new-user orchestration has run its reward steps, so "known" implies the
// signup sequence completed.
type User struct {
	UserTelegramID string    `json:"userTelegramID"`
	ResponsePath   string    `json:"responsePath,omitempty"`
	UserHandle     string    `json:"userHandle,omitempty"`
	UserName       string    `json:"userName,omitempty"`
	PatchWallet    string    `json:"patchwallet"`
	DateAdded      time.Time `json:"dateAdded"`
}
