package thumbnark

import (
	"errors"
	"fmt"
	"io"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"
	"github.com/consensys/gnark/backend/plonk"
	plonkbls12381 "github.com/consensys/gnark/backend/plonk/bls12-381"
)

const NUM_CLAIMED = 6

// Proof is a PLONK proof of a commitment-free circuit.
//
// CL, CR, CO: wire commitments; CZ: permutation; CH1..CH3: quotient parts;
// HBP, HZO: opening quotients at ζ and ωζ; the rest are claimed values.
type Proof struct {
	CL, CR, CO, CZ, CH1, CH2, CH3, HBP, HZO bls12381.G1Affine
	CZO, COL, CVL, CVR, CVO, CS1, CS2       fr.Element
}

func (me *Proof) ToGnarkProof() plonk.Proof {
	return &plonkbls12381.Proof{
		LRO:              [3]bls12381.G1Affine{me.CL, me.CR, me.CO},
		Z:                me.CZ,
		H:                [3]bls12381.G1Affine{me.CH1, me.CH2, me.CH3},
		Bsb22Commitments: []bls12381.G1Affine{},
		BatchedProof: kzg.BatchOpeningProof{
			H:             me.HBP,
			ClaimedValues: []fr.Element{me.COL, me.CVL, me.CVR, me.CVO, me.CS1, me.CS2},
		},
		ZShiftedOpening: kzg.OpeningProof{
			H:            me.HZO,
			ClaimedValue: me.CZO,
		},
	}
}

func (me *Proof) FromGnarkProof(proof plonk.Proof) error {
	gp, ok := proof.(*plonkbls12381.Proof)
	if !ok {
		return fmt.Errorf("unexpected proof type %T", proof)
	}
	if len(gp.Bsb22Commitments) != 0 {
		return errors.New("proof carries commitments")
	}
	if len(gp.BatchedProof.ClaimedValues) != NUM_CLAIMED {
		return fmt.Errorf("proof has %d claimed values, want %d", len(gp.BatchedProof.ClaimedValues), NUM_CLAIMED)
	}
	me.CL = gp.LRO[0]
	me.CR = gp.LRO[1]
	me.CO = gp.LRO[2]
	me.CZ = gp.Z
	me.CH1 = gp.H[0]
	me.CH2 = gp.H[1]
	me.CH3 = gp.H[2]
	me.HBP = gp.BatchedProof.H
	me.HZO = gp.ZShiftedOpening.H
	me.CZO = gp.ZShiftedOpening.ClaimedValue
	me.COL = gp.BatchedProof.ClaimedValues[0]
	me.CVL = gp.BatchedProof.ClaimedValues[1]
	me.CVR = gp.BatchedProof.ClaimedValues[2]
	me.CVO = gp.BatchedProof.ClaimedValues[3]
	me.CS1 = gp.BatchedProof.ClaimedValues[4]
	me.CS2 = gp.BatchedProof.ClaimedValues[5]
	return nil
}

func (me *Proof) points() []*bls12381.G1Affine {
	return []*bls12381.G1Affine{&me.CL, &me.CR, &me.CO, &me.CZ, &me.CH1, &me.CH2, &me.CH3, &me.HBP, &me.HZO}
}

func (me *Proof) scalars() []*fr.Element {
	return []*fr.Element{&me.CZO, &me.COL, &me.CVL, &me.CVR, &me.CVO, &me.CS1, &me.CS2}
}

func (me *Proof) WriteTo(w io.Writer) (int64, error) {
	enc := bls12381.NewEncoder(w)
	for _, p := range me.points() {
		if err := enc.Encode(p); err != nil {
			return enc.BytesWritten(), err
		}
	}
	for _, s := range me.scalars() {
		if err := enc.Encode(s); err != nil {
			return enc.BytesWritten(), err
		}
	}
	return enc.BytesWritten(), nil
}

// ReadFrom decodes a proof; points are subgroup-checked by the decoder.
func (me *Proof) ReadFrom(r io.Reader) (int64, error) {
	dec := bls12381.NewDecoder(r)
	for _, p := range me.points() {
		if err := dec.Decode(p); err != nil {
			return dec.BytesRead(), err
		}
	}
	for _, s := range me.scalars() {
		if err := dec.Decode(s); err != nil {
			return dec.BytesRead(), err
		}
	}
	return dec.BytesRead(), nil
}
