// Package wire encodes ledger records as ordered field tuples.
//
// Integers are little-endian. Strings and byte slices carry a u32 length
// prefix. 256-bit amounts are 32 little-endian bytes. A list is a u32 count
// followed by one length-prefixed record per item.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/shopspring/decimal"
)

var (
	// ErrShortBuffer is returned when a decoder runs out of input.
	ErrShortBuffer = errors.New("wire: short buffer")

	// ErrAmountRange is returned for amounts that are negative, fractional
	// or wider than 256 bits.
	ErrAmountRange = errors.New("wire: amount out of u256 range")
)

const u256Size = 32

// Encoder appends fields to a buffer. The first error sticks; later calls
// are ignored and Bytes reports it.
type Encoder struct {
	buf []byte
	err error
}

func (e *Encoder) U8(v uint8) *Encoder {
	e.buf = append(e.buf, v)
	return e
}

func (e *Encoder) U32(v uint32) *Encoder {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
	return e
}

func (e *Encoder) U64(v uint64) *Encoder {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
	return e
}

func (e *Encoder) I64(v int64) *Encoder {
	return e.U64(uint64(v))
}

func (e *Encoder) Str(s string) *Encoder {
	e.U32(uint32(len(s)))
	e.buf = append(e.buf, s...)
	return e
}

func (e *Encoder) Bytes(b []byte) *Encoder {
	e.U32(uint32(len(b)))
	e.buf = append(e.buf, b...)
	return e
}

// U256 appends d as 32 little-endian bytes.
func (e *Encoder) U256(d decimal.Decimal) *Encoder {
	if e.err != nil {
		return e
	}
	if d.IsNegative() || !d.IsInteger() {
		e.err = fmt.Errorf("%w: %s", ErrAmountRange, d)
		return e
	}
	n := d.BigInt()
	if n.BitLen() > 256 {
		e.err = fmt.Errorf("%w: %s", ErrAmountRange, d)
		return e
	}
	var be [u256Size]byte
	n.FillBytes(be[:])
	slices.Reverse(be[:])
	e.buf = append(e.buf, be[:]...)
	return e
}

// Encoded returns the encoded buffer or the first error.
func (e *Encoder) Encoded() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.buf, nil
}

// Decoder reads fields in order. The first error sticks; later reads return
// zero values and Err reports it.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder returns a decoder over b.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.buf)-d.off < n {
		d.err = fmt.Errorf("%w: need %d bytes at offset %d", ErrShortBuffer, n, d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *Decoder) U8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) U32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *Decoder) U64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *Decoder) I64() int64 {
	return int64(d.U64())
}

func (d *Decoder) Str() string {
	return string(d.Bytes())
}

func (d *Decoder) Bytes() []byte {
	n := d.U32()
	if d.err != nil {
		return nil
	}
	return slices.Clone(d.take(int(n)))
}

func (d *Decoder) U256() decimal.Decimal {
	b := d.take(u256Size)
	if b == nil {
		return decimal.Zero
	}
	be := slices.Clone(b)
	slices.Reverse(be)
	return decimal.NewFromBigInt(new(big.Int).SetBytes(be), 0)
}

// Err returns the first decoding error.
func (d *Decoder) Err() error { return d.err }

// Remaining reports the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }
