package main

import (
	"fmt"
	"log"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/spf13/cobra"

	"github.com/eon-protocol/thumbnark"
)

var vkPath string
var vkFingerprint string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Setup, prove and verify in one pass",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig(cmd)
		d, err := prove(config, &progress{})
		if err != nil {
			log.Fatalln(err)
		}
		if err := d.BuildVerifierStatement(); err != nil {
			log.Fatalln(err)
		}
		ok, err := d.Verify()
		if err != nil {
			log.Fatalln(err)
		}
		printReport(d.Report())
		if !ok {
			os.Exit(1)
		}
	},
}

var proveCmd = &cobra.Command{
	Use:   "prove",
	Short: "Write the thumbnail, its certificate and the verifying key",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig(cmd)
		if config.Certificate == "" {
			config.Certificate = config.Output + ".cert"
		}
		out := vkPath
		if out == "" {
			out = config.Output + ".vk"
		}
		d, err := proveFiles(config, out, &progress{})
		if err != nil {
			log.Fatalln(err)
		}
		r := d.Report()
		fp := d.Vk().Fingerprint()
		fmt.Println("thumbnail", "=", config.Output)
		fmt.Println("certificate", "=", config.Certificate)
		fmt.Println("vk", "=", out)
		fmt.Println("fingerprint", "=", fp.String())
		fmt.Println("setup", "=", r.Setup, "prove", "=", r.Prove)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify THUMBNAIL CERTIFICATE",
	Short: "Check a thumbnail against its certificate under a trusted verifying key",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig(cmd)
		ok, err := verifyFiles(args[0], args[1], vkPath, vkFingerprint)
		if err != nil {
			log.Fatalln(err)
		}
		if !ok {
			fmt.Println("REJECT")
			os.Exit(1)
		}
		fmt.Println("ACCEPT")
	},
}

func init() {
	proveCmd.Flags().StringVar(&vkPath, "vk", "", "verifying key output, defaults to OUTPUT.vk")
	verifyCmd.Flags().StringVar(&vkPath, "vk", "", "trusted verifying key file")
	verifyCmd.Flags().StringVar(&vkFingerprint, "vk-fingerprint", "", "trusted verifying key fingerprint")
}

// prove runs the driver up to Proved.
func prove(config thumbnark.Config, p *progress) (*thumbnark.Driver, error) {
	var opts []thumbnark.Option
	if p != nil {
		opts = append(opts, thumbnark.WithProgress(p.add))
	}
	d, err := thumbnark.NewDriver(config, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.Load(); err != nil {
		return nil, err
	}
	if err := d.Setup(); err != nil {
		return nil, err
	}
	if p != nil {
		p.start(d.Geometry().Blocks())
	}
	if err := d.BuildProverStatement(); err != nil {
		return nil, err
	}
	if err := d.Prove(); err != nil {
		return nil, err
	}
	return d, nil
}

// proveFiles proves config and also writes the verifying key to vkOut.
func proveFiles(config thumbnark.Config, vkOut string, p *progress) (*thumbnark.Driver, error) {
	d, err := prove(config, p)
	if err != nil {
		return nil, err
	}
	if err := thumbnark.SaveVk(vkOut, d.Vk()); err != nil {
		return nil, err
	}
	return d, nil
}

// verifyFiles checks a thumbnail and certificate against the key in vkFile,
// or against the embedded key when its fingerprint is fingerprint.
func verifyFiles(thumbPath, certPath, vkFile, fingerprint string) (bool, error) {
	cert, err := thumbnark.LoadCertificate(certPath)
	if err != nil {
		return false, err
	}
	var trusted *thumbnark.Vk
	switch {
	case vkFile != "":
		if trusted, err = thumbnark.LoadVk(vkFile); err != nil {
			return false, err
		}
	case fingerprint != "":
		var fp fr.Element
		if _, err := fp.SetString(fingerprint); err != nil {
			return false, fmt.Errorf("%w: fingerprint: %w", thumbnark.ErrConfig, err)
		}
		if trusted, err = cert.Trusted(fp); err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("%w: verify needs --vk or --vk-fingerprint", thumbnark.ErrConfig)
	}
	thumb, err := thumbnark.LoadThumbnail(thumbPath)
	if err != nil {
		return false, err
	}
	return cert.Verify(thumb, trusted)
}

func printReport(r thumbnark.Report) {
	fmt.Println("blocks", "=", r.Blocks, "(", r.Geometry.Cols, "x", r.Geometry.Rows, ")")
	fmt.Println("constraints", "=", r.Constraints, "srs", "=", r.SetupSize)
	fmt.Println("setup", "=", r.Setup)
	fmt.Println("prove", "=", r.Prove)
	fmt.Println("verify", "=", r.Verify)
	fmt.Println("verified", "=", r.Verified)
}
