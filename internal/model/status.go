package model

// OpStatus is the lifecycle status of a money-moving operation record.
// Transitions only move forward: pending -> pending_hash -> success,
// with pending -> success, pending -> failure and pending_hash -> failure
// also reachable. success and failure are terminal.
type OpStatus string

const (
	OpStatusPending     OpStatus = "pending"
	OpStatusPendingHash OpStatus = "pending_hash"
	OpStatusSuccess     OpStatus = "success"
	OpStatusFailure     OpStatus = "failure"
)

// Terminal reports whether the status admits no further transitions.
func (s OpStatus) Terminal() bool {
	return s == OpStatusSuccess || s == OpStatusFailure
}

// RewardReason discriminates reward sub-kinds. Isolated rewards carry a
// caller-supplied free-form string instead of one of these.
type RewardReason = string

const (
	ReasonSignup   RewardReason = "user_sign_up"
	ReasonReferral RewardReason = "2x_reward"
	ReasonLink     RewardReason = "referral_link"
)
