package utils

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// GenToken returns a hex session token of n random bytes.
func GenToken(n int) string {
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	if err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// Referral codes skip easily-confused characters (0/O, 1/I/L).
const referralAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func GenReferralCode(n int) string {
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	if err != nil {
		panic(err)
	}
	for i := range buf {
		buf[i] = referralAlphabet[int(buf[i])%len(referralAlphabet)]
	}
	return string(buf)
}
