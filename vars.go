package thumbnark

import (
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/frontend"
)

const CERT_VERSION = 1
const DEFAULT_RATIO = 10
const DEFAULT_POSITION = 5
const SRS_CACHE_DIR = ".thumbnark"

var FIELD = ecc.BLS12_381.ScalarField()
var COSET_SHIFT = fr.NewElement(7)
var COMPILE_OPTS = []frontend.CompileOption{frontend.IgnoreUnconstrainedInputs()}

// domain separators for fingerprints
var CID_VK = func() (val fr.Element) {
	val.SetString("31780581245946378919427018413066463154932811393064577541409124706541372316177")
	return
}()
var CID_CERT = func() (val fr.Element) {
	val.SetString("20977370452693185447113962713434609411283440536826622436520119219498930413702")
	return
}()
