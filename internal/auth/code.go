package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// VoucherCodeLen is the fixed length of generated voucher codes.
const VoucherCodeLen = 10

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateVoucherCode returns a random fixed-length alphanumeric code.
// Uniqueness is enforced by the vouchers table, not here.
func GenerateVoucherCode() (string, error) {
	code := make([]byte, VoucherCodeLen)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate voucher code: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
