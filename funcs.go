package thumbnark

import (
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/eon-protocol/thumbnark/circuits/hasher"
)

// DecomposeG1 splits the coordinates of val into quotient and remainder
// modulo the scalar field: [[xq, xm], [yq, ym]].
func DecomposeG1(val bls12381.G1Affine) [2][2]fr.Element {
	var ixq, ixm, iyq, iym big.Int
	var exq, exm, eyq, eym fr.Element
	val.X.BigInt(&ixq)
	val.Y.BigInt(&iyq)
	ixq.DivMod(&ixq, fr.Modulus(), &ixm)
	iyq.DivMod(&iyq, fr.Modulus(), &iym)
	exq.SetBigInt(&ixq)
	exm.SetBigInt(&ixm)
	eyq.SetBigInt(&iyq)
	eym.SetBigInt(&iym)
	return [2][2]fr.Element{{exq, exm}, {eyq, eym}}
}

func HashG1(val bls12381.G1Affine) fr.Element {
	decompose := DecomposeG1(val)
	x := hasher.Compress(decompose[0][0], decompose[0][1])
	y := hasher.Compress(decompose[1][0], decompose[1][1])
	return hasher.Compress(x, y)
}

// HashG2 folds the compressed encoding of val in 31-byte chunks.
func HashG2(val bls12381.G2Affine) fr.Element {
	b := val.Bytes()
	var d hasher.Digest
	for i := 0; i < len(b); i += fr.Bytes - 1 {
		var e fr.Element
		e.SetBytes(b[i:min(i+fr.Bytes-1, len(b))])
		d.Write(e)
	}
	return d.Sum()
}

// SourceDigest folds every encoded source pixel in instance order.
func SourceDigest(pixels [][]fr.Element) fr.Element {
	var d hasher.Digest
	for _, blk := range pixels {
		d.Write(blk...)
	}
	return d.Sum()
}
