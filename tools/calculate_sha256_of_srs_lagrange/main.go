package main

import (
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"log"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"

	"github.com/eon-protocol/thumbnark"
)

// Prints the sha256 of every power-of-two Lagrange basis of a cached setup.
func main() {
	dir := flag.String("dir", thumbnark.SRS_CACHE_DIR, "SRS cache directory")
	seed := flag.String("seed", "", "seed the setup was sampled with")
	size := flag.Uint64("size", 0, "number of points in the setup")
	flag.Parse()
	if *seed == "" || *size == 0 {
		log.Fatalln("usage:", "-seed", "SEED", "-size", "N")
	}
	params, err := thumbnark.SRSCache{Dir: *dir}.Load(thumbnark.SeedTag(*seed), *size)
	if err != nil {
		log.Fatalln(err)
	}
	ck := params.SRS.Pk.G1
	for i := 0; (1 << i) <= len(ck); i++ {
		lk, err := kzg.ToLagrangeG1(ck[:1<<i])
		if err != nil {
			log.Fatalln(err)
		}
		hasher := sha256.New()
		for _, xy := range lk {
			x, y := xy.X.Bytes(), xy.Y.Bytes()
			if _, err := hasher.Write(x[:]); err != nil {
				log.Fatalln(err)
			}
			if _, err := hasher.Write(y[:]); err != nil {
				log.Fatalln(err)
			}
		}
		sum := hasher.Sum(nil)
		fmt.Println("sha256", "(", "SRS.LK", "[", i, "]", ")", "=", hex.EncodeToString(sum[:]))
	}
}
