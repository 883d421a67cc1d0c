package gateway

import (
	"fmt"
	"math/big"
	"strings"
)

// erc20TransferSelector is the 4-byte selector of transfer(address,uint256).
const erc20TransferSelector = "a9059cbb"

// vestingPlanSelector is the 4-byte selector of the batch planner's
// createPlan(address,address,uint256) entry point.
const vestingPlanSelector = "4d8045a0"

// ERC20TransferData builds the calldata for an ERC-20 transfer to recipient
// of amountWei tokens.
func ERC20TransferData(recipient string, amountWei string) (string, error) {
	addr, err := padAddress(recipient)
	if err != nil {
		return "", err
	}
	amt, err := padUint(amountWei)
	if err != nil {
		return "", err
	}
	return "0x" + erc20TransferSelector + addr + amt, nil
}

// VestingPlanData builds the batch planner calldata locking amountWei of
// token for recipient.
func VestingPlanData(token, recipient, amountWei string) (string, error) {
	tok, err := padAddress(token)
	if err != nil {
		return "", err
	}
	addr, err := padAddress(recipient)
	if err != nil {
		return "", err
	}
	amt, err := padUint(amountWei)
	if err != nil {
		return "", err
	}
	return "0x" + vestingPlanSelector + tok + addr + amt, nil
}

// ToWei scales a decimal token amount (e.g. "10.5") to its integer base-unit
// representation with the given number of decimals.
func ToWei(amount string, decimals int) (string, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return "", fmt.Errorf("empty amount")
	}

	whole, frac := amount, ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	wei, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return "", fmt.Errorf("invalid amount %q", amount)
	}
	if wei.Sign() < 0 {
		return "", fmt.Errorf("negative amount %q", amount)
	}
	return wei.String(), nil
}

// IsPositiveInteger reports whether v parses as a strictly positive integer.
// The state machine uses this to classify malformed amounts as unrecoverable.
func IsPositiveInteger(v string) bool {
	n, ok := new(big.Int).SetString(strings.TrimSpace(v), 10)
	return ok && n.Sign() > 0
}

func padAddress(addr string) (string, error) {
	hex := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(addr)), "0x")
	if len(hex) != 40 || !isHex(hex) {
		return "", fmt.Errorf("invalid address %q", addr)
	}
	return strings.Repeat("0", 24) + hex, nil
}

func padUint(dec string) (string, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(dec), 10)
	if !ok || n.Sign() < 0 {
		return "", fmt.Errorf("invalid uint %q", dec)
	}
	hex := n.Text(16)
	if len(hex) > 64 {
		return "", fmt.Errorf("uint %q overflows 256 bits", dec)
	}
	return strings.Repeat("0", 64-len(hex)) + hex, nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
