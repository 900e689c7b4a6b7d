package synth

/*------------------------------------------------------------------
 *
 * Purpose:	Width-tagged bit-vector values packed into 64-bit words.
 *
 * Description:	The same word layout is used by the concrete simulator
 *		and (with one extra tag bit of capacity) by the testbench
 *		rows, so values can be compared word-for-word.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"math/big"
	"strings"
)

type bitVal struct {
	width uint32
	words []uint64
}

func words_for_width(width uint32) int {
	return int((width + 63) / 64)
}

func bv_zero(width uint32) bitVal {
	return bitVal{width: width, words: make([]uint64, words_for_width(width))}
}

func bv_from_u64(value uint64, width uint32) bitVal {
	var v = bv_zero(width)
	v.words[0] = value
	v.mask()
	return v
}

func bv_from_big(value *big.Int, width uint32) bitVal {
	var v = bv_zero(width)
	var tmp = new(big.Int).Set(value)
	if tmp.Sign() < 0 {
		// two's complement wrap around
		var mod = new(big.Int).Lsh(big.NewInt(1), uint(width))
		tmp.Mod(tmp, mod)
		if tmp.Sign() < 0 {
			tmp.Add(tmp, mod)
		}
	}
	for ii := range v.words {
		v.words[ii] = tmp.Uint64()
		tmp.Rsh(tmp, 64)
	}
	v.mask()
	return v
}

func (v bitVal) clone() bitVal {
	var out = bitVal{width: v.width, words: make([]uint64, len(v.words))}
	copy(out.words, v.words)
	return out
}

// mask clears the unused bits of the most significant word.
func (v *bitVal) mask() {
	var rem = v.width % 64
	if rem != 0 {
		v.words[len(v.words)-1] &= (uint64(1) << rem) - 1
	}
}

func (v *bitVal) set_all_ones() {
	for ii := range v.words {
		v.words[ii] = ^uint64(0)
	}
	v.mask()
}

func (v bitVal) is_zero() bool {
	for _, w := range v.words {
		if w != 0 {
			return false
		}
	}
	return true
}

func (v bitVal) is_true() bool {
	if v.width != 1 {
		panic(fmt.Sprintf("is_true on %d-bit value", v.width))
	}
	return v.words[0] == 1
}

func (v bitVal) equal(o bitVal) bool {
	if v.width != o.width {
		return false
	}
	for ii := range v.words {
		if v.words[ii] != o.words[ii] {
			return false
		}
	}
	return true
}

func (v bitVal) bit(pos uint32) uint64 {
	return (v.words[pos/64] >> (pos % 64)) & 1
}

func (v bitVal) msb() uint64 {
	return v.bit(v.width - 1)
}

func (v bitVal) to_u64() uint64 {
	for _, w := range v.words[1:] {
		if w != 0 {
			panic("value does not fit into 64 bits")
		}
	}
	return v.words[0]
}

func (v bitVal) to_big() *big.Int {
	var out = new(big.Int)
	for ii := len(v.words) - 1; ii >= 0; ii-- {
		out.Lsh(out, 64)
		out.Or(out, new(big.Int).SetUint64(v.words[ii]))
	}
	return out
}

// to_big_signed interprets the value as two's complement.
func (v bitVal) to_big_signed() *big.Int {
	var out = v.to_big()
	if v.msb() == 1 {
		var mod = new(big.Int).Lsh(big.NewInt(1), uint(v.width))
		out.Sub(out, mod)
	}
	return out
}

func (v bitVal) to_string() string {
	if v.width <= 64 {
		return fmt.Sprintf("%d'd%d", v.width, v.words[0])
	}
	return fmt.Sprintf("%d'd%s", v.width, v.to_big().String())
}

// to_smt_bin renders the value as an SMT bit-vector literal, e.g. #b0101.
func (v bitVal) to_smt_bin() string {
	var sb strings.Builder
	sb.WriteString("#b")
	for ii := int(v.width) - 1; ii >= 0; ii-- {
		if v.bit(uint32(ii)) == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

/*
 * Word-wise operations.  Arithmetic goes through math/big which keeps
 * the code simple; the simulator is not a performance bottleneck for
 * the repair engine (the SMT solver is).
 */

func bv_not(a bitVal) bitVal {
	var out = a.clone()
	for ii := range out.words {
		out.words[ii] = ^out.words[ii]
	}
	out.mask()
	return out
}

func bv_and(a, b bitVal) bitVal {
	var out = a.clone()
	for ii := range out.words {
		out.words[ii] &= b.words[ii]
	}
	return out
}

func bv_or(a, b bitVal) bitVal {
	var out = a.clone()
	for ii := range out.words {
		out.words[ii] |= b.words[ii]
	}
	return out
}

func bv_xor(a, b bitVal) bitVal {
	var out = a.clone()
	for ii := range out.words {
		out.words[ii] ^= b.words[ii]
	}
	return out
}

func bv_neg(a bitVal) bitVal {
	return bv_from_big(new(big.Int).Neg(a.to_big()), a.width)
}

func bv_add(a, b bitVal) bitVal {
	return bv_from_big(new(big.Int).Add(a.to_big(), b.to_big()), a.width)
}

func bv_sub(a, b bitVal) bitVal {
	return bv_from_big(new(big.Int).Sub(a.to_big(), b.to_big()), a.width)
}

func bv_mul(a, b bitVal) bitVal {
	return bv_from_big(new(big.Int).Mul(a.to_big(), b.to_big()), a.width)
}

// division by zero follows the SMT-LIB convention: all ones for udiv,
// the dividend for urem.
func bv_udiv(a, b bitVal) bitVal {
	if b.is_zero() {
		var out = bv_zero(a.width)
		out.set_all_ones()
		return out
	}
	return bv_from_big(new(big.Int).Div(a.to_big(), b.to_big()), a.width)
}

func bv_urem(a, b bitVal) bitVal {
	if b.is_zero() {
		return a.clone()
	}
	return bv_from_big(new(big.Int).Mod(a.to_big(), b.to_big()), a.width)
}

func bv_sdiv(a, b bitVal) bitVal {
	if b.is_zero() {
		var out = bv_zero(a.width)
		out.set_all_ones()
		return out
	}
	return bv_from_big(new(big.Int).Quo(a.to_big_signed(), b.to_big_signed()), a.width)
}

func bv_srem(a, b bitVal) bitVal {
	if b.is_zero() {
		return a.clone()
	}
	return bv_from_big(new(big.Int).Rem(a.to_big_signed(), b.to_big_signed()), a.width)
}

func bv_shift_left(a, b bitVal) bitVal {
	var by = b.to_big()
	if !by.IsUint64() || by.Uint64() >= uint64(a.width) {
		return bv_zero(a.width)
	}
	return bv_from_big(new(big.Int).Lsh(a.to_big(), uint(by.Uint64())), a.width)
}

func bv_shift_right(a, b bitVal) bitVal {
	var by = b.to_big()
	if !by.IsUint64() || by.Uint64() >= uint64(a.width) {
		return bv_zero(a.width)
	}
	return bv_from_big(new(big.Int).Rsh(a.to_big(), uint(by.Uint64())), a.width)
}

func bv_arith_shift_right(a, b bitVal) bitVal {
	var by = b.to_big()
	var signed = a.to_big_signed()
	if !by.IsUint64() || by.Uint64() >= uint64(a.width) {
		if signed.Sign() < 0 {
			var out = bv_zero(a.width)
			out.set_all_ones()
			return out
		}
		return bv_zero(a.width)
	}
	return bv_from_big(new(big.Int).Rsh(signed, uint(by.Uint64())), a.width)
}

func bv_bool(b bool) bitVal {
	if b {
		return bv_from_u64(1, 1)
	}
	return bv_zero(1)
}

func bv_ucmp(a, b bitVal) int {
	for ii := len(a.words) - 1; ii >= 0; ii-- {
		if a.words[ii] != b.words[ii] {
			if a.words[ii] > b.words[ii] {
				return 1
			}
			return -1
		}
	}
	return 0
}

func bv_scmp(a, b bitVal) int {
	return a.to_big_signed().Cmp(b.to_big_signed())
}

func bv_concat(hi, lo bitVal) bitVal {
	var out = new(big.Int).Lsh(hi.to_big(), uint(lo.width))
	out.Or(out, lo.to_big())
	return bv_from_big(out, hi.width+lo.width)
}

func bv_slice(a bitVal, hi, lo uint32) bitVal {
	var out = bv_zero(hi - lo + 1)
	for ii := lo; ii <= hi; ii++ {
		if a.bit(ii) == 1 {
			out.words[(ii-lo)/64] |= uint64(1) << ((ii - lo) % 64)
		}
	}
	return out
}

func bv_zext(a bitVal, by uint32) bitVal {
	var out = bv_zero(a.width + by)
	copy(out.words, a.words)
	return out
}

func bv_sext(a bitVal, by uint32) bitVal {
	if a.msb() == 0 {
		return bv_zext(a, by)
	}
	var out = bv_zero(a.width + by)
	out.set_all_ones()
	for ii := uint32(0); ii < a.width; ii++ {
		if a.bit(ii) == 0 {
			out.words[ii/64] &^= uint64(1) << (ii % 64)
		}
	}
	return out
}

func bv_redand(a bitVal) bitVal {
	var all = bv_zero(a.width)
	all.set_all_ones()
	return bv_bool(a.equal(all))
}

func bv_redor(a bitVal) bitVal {
	return bv_bool(!a.is_zero())
}

func bv_redxor(a bitVal) bitVal {
	var count = 0
	for ii := uint32(0); ii < a.width; ii++ {
		if a.bit(ii) == 1 {
			count++
		}
	}
	return bv_bool(count%2 == 1)
}
