package stacks

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

func TestEncodeUintArg(t *testing.T) {
	hex, err := EncodeArg(domain.UintArg(big.NewInt(1)))
	require.NoError(t, err)
	assert.Equal(t, "0x0100000000000000000000000000000001", hex)

	hex, err = EncodeArg(domain.UintArg(big.NewInt(0x0102)))
	require.NoError(t, err)
	assert.Equal(t, "0x0100000000000000000000000000000102", hex)
}

func TestEncodeUintArgRejectsNegative(t *testing.T) {
	_, err := EncodeArg(domain.UintArg(big.NewInt(-5)))
	require.Error(t, err)
}

func TestDecodeUintRoundTrip(t *testing.T) {
	want := new(big.Int).SetUint64(123_456_789)
	hex, err := EncodeArg(domain.UintArg(want))
	require.NoError(t, err)

	v, err := DecodeHex(hex)
	require.NoError(t, err)
	assert.Equal(t, byte(clarityUint), v.Type)
	assert.Zero(t, want.Cmp(v.Int))
}

func TestDecodeNegativeInt(t *testing.T) {
	// int -1 is sixteen 0xff bytes under tag 0x00.
	v, err := DecodeHex("0x00ffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v.Int.Int64())
}

func TestDecodeBoolAndResponse(t *testing.T) {
	v, err := DecodeHex("0x03")
	require.NoError(t, err)
	assert.True(t, v.Bool)

	// (ok u7)
	v, err = DecodeHex("0x070100000000000000000000000000000007")
	require.NoError(t, err)
	inner, some, err := v.Unwrap()
	require.NoError(t, err)
	require.True(t, some)
	assert.Equal(t, int64(7), inner.Int.Int64())
}

func TestDecodeOptionalNone(t *testing.T) {
	v, err := DecodeHex("0x09")
	require.NoError(t, err)
	_, some, err := v.Unwrap()
	require.NoError(t, err)
	assert.False(t, some)
}

func TestDecodeResponseErr(t *testing.T) {
	// (err u13)
	v, err := DecodeHex("0x08010000000000000000000000000000000d")
	require.NoError(t, err)
	_, _, err = v.Unwrap()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "13")
}

func TestDecodeStringASCII(t *testing.T) {
	// (string-ascii "yes")
	v, err := DecodeHex("0x0d00000003796573")
	require.NoError(t, err)
	assert.Equal(t, "yes", v.Str)
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	_, err := DecodeHex("0x03ff")
	require.Error(t, err)
}

func TestPrincipalRoundTrip(t *testing.T) {
	const addr = "ST1PSHE32YTEE21FGYEVTA24N681KRGSQM4VF9XZP"

	version, hash, err := c32Decode(addr)
	require.NoError(t, err)
	require.Len(t, hash, 20)

	assert.Equal(t, addr, c32Address(version, hash))

	hex, err := EncodeArg(domain.PrincipalArg(addr))
	require.NoError(t, err)

	v, err := DecodeHex(hex)
	require.NoError(t, err)
	assert.Equal(t, addr, v.Str)
}

func TestC32DecodeRejectsBadChecksum(t *testing.T) {
	_, _, err := c32Decode("ST1PSHE32YTEE21FGYEVTA24N681KRGSQM4VF9XZQ")
	require.Error(t, err)
}
