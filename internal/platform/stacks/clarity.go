package stacks

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// Clarity wire type tags, as serialized by the node API.
const (
	clarityInt           = 0x00
	clarityUint          = 0x01
	clarityBuffer        = 0x02
	clarityBoolTrue      = 0x03
	clarityBoolFalse     = 0x04
	clarityPrincipal     = 0x05
	clarityContractPrin  = 0x06
	clarityResponseOk    = 0x07
	clarityResponseErr   = 0x08
	clarityOptionalNone  = 0x09
	clarityOptionalSome  = 0x0a
	clarityList          = 0x0b
	clarityTuple         = 0x0c
	clarityStringASCII   = 0x0d
	clarityStringUTF8    = 0x0e
)

// Value is a decoded Clarity value. Only the variants the market contract
// returns are modeled; lists and tuples are rejected.
type Value struct {
	Type  byte
	Int   *big.Int // int and uint
	Bool  bool
	Str   string // string-ascii, string-utf8, principals
	Inner *Value // response and optional payloads
}

// Unwrap strips response-ok and optional-some layers. Response-err is
// returned as an error carrying the inner representation; optional-none
// yields ok=false.
func (v Value) Unwrap() (Value, bool, error) {
	cur := v
	for {
		switch cur.Type {
		case clarityResponseOk, clarityOptionalSome:
			if cur.Inner == nil {
				return Value{}, false, fmt.Errorf("stacks: malformed nested value")
			}
			cur = *cur.Inner
		case clarityResponseErr:
			return Value{}, false, fmt.Errorf("stacks: contract returned err %s", cur.Inner.repr())
		case clarityOptionalNone:
			return Value{}, false, nil
		default:
			return cur, true, nil
		}
	}
}

func (v *Value) repr() string {
	if v == nil {
		return "<nil>"
	}
	switch v.Type {
	case clarityInt, clarityUint:
		return v.Int.String()
	case clarityBoolTrue:
		return "true"
	case clarityBoolFalse:
		return "false"
	case clarityStringASCII, clarityStringUTF8, clarityPrincipal:
		return v.Str
	}
	return fmt.Sprintf("type 0x%02x", v.Type)
}

// DecodeHex parses a 0x-prefixed hex serialization of a Clarity value.
func DecodeHex(s string) (Value, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Value{}, fmt.Errorf("stacks: decode clarity hex: %w", err)
	}
	v, rest, err := decodeValue(raw)
	if err != nil {
		return Value{}, err
	}
	if len(rest) != 0 {
		return Value{}, fmt.Errorf("stacks: %d trailing bytes after clarity value", len(rest))
	}
	return v, nil
}

func decodeValue(b []byte) (Value, []byte, error) {
	if len(b) == 0 {
		return Value{}, nil, fmt.Errorf("stacks: empty clarity value")
	}
	tag, rest := b[0], b[1:]
	switch tag {
	case clarityUint:
		if len(rest) < 16 {
			return Value{}, nil, fmt.Errorf("stacks: truncated uint")
		}
		return Value{Type: tag, Int: new(big.Int).SetBytes(rest[:16])}, rest[16:], nil

	case clarityInt:
		if len(rest) < 16 {
			return Value{}, nil, fmt.Errorf("stacks: truncated int")
		}
		n := new(big.Int).SetBytes(rest[:16])
		// Two's complement sign handling for 128-bit ints.
		if rest[0]&0x80 != 0 {
			n.Sub(n, new(big.Int).Lsh(big.NewInt(1), 128))
		}
		return Value{Type: tag, Int: n}, rest[16:], nil

	case clarityBoolTrue:
		return Value{Type: tag, Bool: true}, rest, nil
	case clarityBoolFalse:
		return Value{Type: tag, Bool: false}, rest, nil

	case clarityOptionalNone:
		return Value{Type: tag}, rest, nil

	case clarityOptionalSome, clarityResponseOk, clarityResponseErr:
		inner, rest2, err := decodeValue(rest)
		if err != nil {
			return Value{}, nil, err
		}
		return Value{Type: tag, Inner: &inner}, rest2, nil

	case clarityStringASCII, clarityStringUTF8, clarityBuffer:
		if len(rest) < 4 {
			return Value{}, nil, fmt.Errorf("stacks: truncated string header")
		}
		n := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < n {
			return Value{}, nil, fmt.Errorf("stacks: truncated string body")
		}
		return Value{Type: tag, Str: string(rest[:n])}, rest[n:], nil

	case clarityPrincipal:
		if len(rest) < 21 {
			return Value{}, nil, fmt.Errorf("stacks: truncated principal")
		}
		addr := c32Address(rest[0], rest[1:21])
		return Value{Type: tag, Str: addr}, rest[21:], nil

	default:
		return Value{}, nil, fmt.Errorf("stacks: unsupported clarity type 0x%02x", tag)
	}
}

// EncodeArg serializes a contract-call argument to 0x-prefixed hex.
func EncodeArg(arg domain.ChainArg) (string, error) {
	var out []byte
	switch arg.Kind {
	case domain.ArgUint:
		if arg.Uint == nil || arg.Uint.Sign() < 0 {
			return "", fmt.Errorf("stacks: uint arg must be a non-negative integer")
		}
		if arg.Uint.BitLen() > 128 {
			return "", fmt.Errorf("stacks: uint arg overflows 128 bits")
		}
		buf := make([]byte, 16)
		arg.Uint.FillBytes(buf)
		out = append([]byte{clarityUint}, buf...)

	case domain.ArgPrincipal:
		version, hash, err := c32Decode(arg.Str)
		if err != nil {
			return "", err
		}
		out = append([]byte{clarityPrincipal, version}, hash...)

	case domain.ArgASCII:
		if len(arg.Str) > 0xffffffff {
			return "", fmt.Errorf("stacks: ascii arg too long")
		}
		hdr := make([]byte, 5)
		hdr[0] = clarityStringASCII
		binary.BigEndian.PutUint32(hdr[1:], uint32(len(arg.Str)))
		out = append(hdr, arg.Str...)

	default:
		return "", fmt.Errorf("stacks: unsupported arg kind %d", arg.Kind)
	}
	return "0x" + hex.EncodeToString(out), nil
}

// EncodeArgs serializes every argument of a call.
func EncodeArgs(args []domain.ChainArg) ([]string, error) {
	out := make([]string, 0, len(args))
	for i, a := range args {
		s, err := EncodeArg(a)
		if err != nil {
			return nil, fmt.Errorf("stacks: arg %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}
