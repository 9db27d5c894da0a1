package thumbnark

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/plonk"
	plonkbls12381 "github.com/consensys/gnark/backend/plonk/bls12-381"
	"github.com/consensys/gnark/constraint"
	csbls12381 "github.com/consensys/gnark/constraint/bls12-381"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"

	"github.com/eon-protocol/thumbnark/circuits/thumbnail"
)

// Pk holds everything the prover needs for one circuit shape.
type Pk struct {
	vk       Vk
	ccs      *csbls12381.SparseR1CS
	kzg      kzg.ProvingKey
	lagrange kzg.ProvingKey
}

// Compile builds the constraint system of a structure-only circuit.
func Compile(circuit *thumbnail.Circuit) (constraint.ConstraintSystem, error) {
	if circuit.Mode != thumbnail.StructureOnly {
		return nil, fail(ErrSetup, nil, fmt.Sprintf("compile expects a %s circuit, got %s", thumbnail.StructureOnly, circuit.Mode))
	}
	ccs, err := frontend.Compile(FIELD, scs.NewBuilder, circuit, COMPILE_OPTS...)
	if err != nil {
		return nil, fail(ErrSetup, err, "compile")
	}
	if nc := len(ccs.GetCommitments().CommitmentIndexes()); nc != 0 {
		return nil, fail(ErrSetup, nil, fmt.Sprintf("number of commitments is %d not 0", nc))
	}
	return ccs, nil
}

func (me *Pk) Vk() Vk {
	return me.vk
}

func (me *Pk) ToGnarkProvingKey() plonk.ProvingKey {
	return &plonkbls12381.ProvingKey{
		Kzg:         me.kzg,
		KzgLagrange: me.lagrange,
		Vk:          me.vk.ToGnarkVerifyingKey().(*plonkbls12381.VerifyingKey),
	}
}

func (me *Pk) ToGnarkConstraintSystem() constraint.ConstraintSystem {
	return me.ccs
}

func (me *Pk) FromGnarkConstraintSystemAndProvingKey(ccs constraint.ConstraintSystem, pk plonk.ProvingKey, canonical, lagrange kzg.ProvingKey) error {
	spr, ok := ccs.(*csbls12381.SparseR1CS)
	if !ok {
		return fmt.Errorf("unexpected constraint system type %T", ccs)
	}
	ivk, ok := pk.VerifyingKey().(plonk.VerifyingKey)
	if !ok {
		return fmt.Errorf("unexpected verifying key type %T", pk.VerifyingKey())
	}
	if err := me.vk.FromGnarkVerifyingKey(ivk); err != nil {
		return err
	}
	me.ccs = spr
	me.kzg = canonical
	me.lagrange = lagrange
	return nil
}

// Prove proves a fully bound circuit and returns the proof with the public
// part of the witness.
func (me *Pk) Prove(assignment *thumbnail.Circuit, opts ...backend.ProverOption) (*Proof, fr.Vector, error) {
	if err := assignment.CheckAssigned(); err != nil {
		return nil, nil, err
	}
	witness, err := frontend.NewWitness(assignment, FIELD)
	if err != nil {
		return nil, nil, fail(ErrProofGeneration, err, "new witness")
	}
	gp, err := plonk.Prove(me.ccs, me.ToGnarkProvingKey(), witness, opts...)
	if err != nil {
		return nil, nil, fail(ErrProofGeneration, err, "prove")
	}
	var proof Proof
	if err := proof.FromGnarkProof(gp); err != nil {
		return nil, nil, fail(ErrProofGeneration, err, "proof layout")
	}
	vec := witness.Vector().(fr.Vector)
	return &proof, vec[:me.vk.NP], nil
}
