// native (off-circuit) Poseidon2 functions
package hasher

import (
	"log"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// Compress runs the native Poseidon2 permutation on (x,y) and returns
// perm([x,y])[1] + y, matching the circuit's Compress semantics.
func Compress(x, y fr.Element) fr.Element {
	vars := [2]fr.Element{x, y}
	if err := GetPermutation().Permutation(vars[:]); err != nil {
		log.Fatalln(err)
	}
	var ret fr.Element
	ret.Add(&vars[1], &y)
	return ret
}

// Sum folds a sequence using Compress(acc, v) starting from zero.
func Sum(val ...fr.Element) fr.Element {
	var ret fr.Element
	for _, v := range val {
		ret = Compress(ret, v)
	}
	return ret
}

// Digest is an incremental Sum.
type Digest struct {
	acc fr.Element
}

func (d *Digest) Write(vals ...fr.Element) {
	for _, v := range vals {
		d.acc = Compress(d.acc, v)
	}
}

func (d *Digest) Sum() fr.Element {
	return d.acc
}
