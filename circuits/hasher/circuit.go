// Package hasher provides a Poseidon2 (t=2) gadget for gnark circuits and its
// native counterpart. It is used to bind a thumbnail proof to the digest of
// every source pixel. Currently only supports BLS12-381.
package hasher

import (
	"errors"
	"math/big"

	poseidonbls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381/fr/poseidon2"
	"github.com/consensys/gnark/frontend"
)

var (
	ErrInvalidSizebuffer = errors.New("the size of the input should match the size of the hash buffer")
)

// Permutation is the in-circuit Poseidon2 permutation.
type Permutation struct {
	api        frontend.API
	degreeSBox int
	rf, rp     int
	// Round keys arranged as [round][lane].
	roundKeys [][]big.Int
}

// NewPermutation builds a Permutation from the constants in vars.go.
func NewPermutation(api frontend.API) *Permutation {
	params := GetParameters()
	roundKeys := make([][]big.Int, len(params.RoundKeys))
	for i := range roundKeys {
		roundKeys[i] = make([]big.Int, len(params.RoundKeys[i]))
		for j := range roundKeys[i] {
			params.RoundKeys[i][j].BigInt(&roundKeys[i][j])
		}
	}
	return &Permutation{
		api:        api,
		degreeSBox: poseidonbls12381.DegreeSBox(),
		rf:         ROUND_FULL,
		rp:         ROUND_PARTIAL,
		roundKeys:  roundKeys,
	}
}

func (h *Permutation) sBox(index int, input []frontend.Variable) {
	tmp := input[index]
	switch h.degreeSBox {
	case 3:
		input[index] = h.api.Mul(input[index], input[index])
		input[index] = h.api.Mul(tmp, input[index])
	case 5:
		input[index] = h.api.Mul(input[index], input[index])
		input[index] = h.api.Mul(input[index], input[index])
		input[index] = h.api.Mul(input[index], tmp)
	case 7:
		input[index] = h.api.Mul(input[index], input[index])
		input[index] = h.api.Mul(input[index], tmp)
		input[index] = h.api.Mul(input[index], input[index])
		input[index] = h.api.Mul(input[index], tmp)
	default:
		panic("unsupported sBox degree")
	}
}

// external matrix for t=2: circ(2, 1)
func (h *Permutation) matMulExternalInPlace(input []frontend.Variable) {
	tmp := h.api.Add(input[0], input[1])
	input[0] = h.api.Add(tmp, input[0])
	input[1] = h.api.Add(tmp, input[1])
}

// internal matrix for t=2: [[2, 1], [1, 3]]
func (h *Permutation) matMulInternalInPlace(input []frontend.Variable) {
	sum := h.api.Add(input[0], input[1])
	input[0] = h.api.Add(input[0], sum)
	input[1] = h.api.Mul(2, input[1])
	input[1] = h.api.Add(input[1], sum)
}

func (h *Permutation) addRoundKeyInPlace(round int, input []frontend.Variable) {
	for i := 0; i < len(h.roundKeys[round]); i++ {
		input[i] = h.api.Add(input[i], h.roundKeys[round][i])
	}
}

// Permutation applies the Poseidon2 permutation in place.
func (h *Permutation) Permutation(input []frontend.Variable) error {
	if len(input) != WIDTH {
		return ErrInvalidSizebuffer
	}
	h.matMulExternalInPlace(input)

	half := h.rf / 2
	for i := 0; i < half; i++ {
		h.addRoundKeyInPlace(i, input)
		for j := 0; j < WIDTH; j++ {
			h.sBox(j, input)
		}
		h.matMulExternalInPlace(input)
	}
	for i := half; i < half+h.rp; i++ {
		h.addRoundKeyInPlace(i, input)
		h.sBox(0, input)
		h.matMulInternalInPlace(input)
	}
	for i := half + h.rp; i < h.rf+h.rp; i++ {
		h.addRoundKeyInPlace(i, input)
		for j := 0; j < WIDTH; j++ {
			h.sBox(j, input)
		}
		h.matMulExternalInPlace(input)
	}
	return nil
}

// Compress returns perm([left,right])[1] + right, matching the native Compress.
func (h *Permutation) Compress(left, right frontend.Variable) frontend.Variable {
	vars := [2]frontend.Variable{left, right}
	if err := h.Permutation(vars[:]); err != nil {
		panic(err)
	}
	return h.api.Add(vars[1], right)
}

// Sum folds values from zero with Compress.
func (h *Permutation) Sum(vals ...frontend.Variable) frontend.Variable {
	var acc frontend.Variable = 0
	for i := range vals {
		acc = h.Compress(acc, vals[i])
	}
	return acc
}
