package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/eon-protocol/thumbnark"
)

// Prints the verifying key embedded in a certificate and its fingerprint.
func main() {
	if len(os.Args) != 2 {
		log.Fatalln("usage:", os.Args[0], "CERTIFICATE")
	}
	cert, err := thumbnark.LoadCertificate(os.Args[1])
	if err != nil {
		log.Fatalln(err)
	}
	vk, _, err := cert.Keys()
	if err != nil {
		log.Fatalln(err)
	}
	enc := hex.NewEncoder(os.Stdout)
	if _, err := vk.WriteTo(enc); err != nil {
		log.Fatalln(err)
	}
	fmt.Println()
	fp := vk.Fingerprint()
	fmt.Println("fingerprint", "=", fp.String())
	fmt.Println("geometry", "=", cert.Cols, "x", cert.Rows, "n", "=", cert.Ratio, "p", "=", cert.Position)
}
