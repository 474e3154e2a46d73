package stacks

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
)

// Crockford base32 alphabet used by Stacks c32check addresses.
const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var c32Lookup = func() map[rune]int64 {
	m := make(map[rune]int64, 40)
	for i, r := range c32Alphabet {
		m[r] = int64(i)
	}
	// Permissive aliases per the Crockford spec.
	m['O'] = 0
	m['L'] = 1
	m['I'] = 1
	return m
}()

// c32Decode parses a c32check address ("ST..." / "SP...") into its
// version byte and 20-byte hash160, verifying the checksum.
func c32Decode(addr string) (byte, []byte, error) {
	addr = strings.ToUpper(strings.TrimSpace(addr))
	if len(addr) < 3 || addr[0] != 'S' {
		return 0, nil, fmt.Errorf("stacks: malformed principal %q", addr)
	}
	version, ok := c32Lookup[rune(addr[1])]
	if !ok {
		return 0, nil, fmt.Errorf("stacks: bad version char in principal %q", addr)
	}

	digits := addr[2:]
	n := new(big.Int)
	for _, r := range digits {
		d, ok := c32Lookup[r]
		if !ok {
			return 0, nil, fmt.Errorf("stacks: bad character %q in principal", r)
		}
		n.Mul(n, big.NewInt(32))
		n.Add(n, big.NewInt(d))
	}

	// hash160 (20 bytes) plus 4 checksum bytes.
	payload := make([]byte, 24)
	raw := n.Bytes()
	if len(raw) > 24 {
		return 0, nil, fmt.Errorf("stacks: principal %q decodes too long", addr)
	}
	copy(payload[24-len(raw):], raw)

	hash := payload[:20]
	checksum := payload[20:]
	if want := c32Checksum(byte(version), hash); string(want) != string(checksum) {
		return 0, nil, fmt.Errorf("stacks: bad checksum in principal %q", addr)
	}
	return byte(version), hash, nil
}

// c32Address renders a version byte and hash160 back into a c32check
// address string.
func c32Address(version byte, hash []byte) string {
	payload := make([]byte, 0, 24)
	payload = append(payload, hash...)
	payload = append(payload, c32Checksum(version, hash)...)

	n := new(big.Int).SetBytes(payload)
	var digits []byte
	zero := big.NewInt(0)
	base := big.NewInt(32)
	mod := new(big.Int)
	for n.Cmp(zero) > 0 {
		n.DivMod(n, base, mod)
		digits = append(digits, c32Alphabet[mod.Int64()])
	}
	// Preserve leading zero bytes as '0' digits.
	for _, b := range payload {
		if b != 0 {
			break
		}
		digits = append(digits, '0')
	}
	// Reverse.
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return "S" + string(c32Alphabet[version]) + string(digits)
}

func c32Checksum(version byte, hash []byte) []byte {
	buf := append([]byte{version}, hash...)
	first := sha256.Sum256(buf)
	second := sha256.Sum256(first[:])
	return second[:4]
}
