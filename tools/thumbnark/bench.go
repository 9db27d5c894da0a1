package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"

	"github.com/eon-protocol/thumbnark"
)

var benchRatios []int
var benchOut string

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time the pipeline over several ratios and chart it",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig(cmd)
		dir, err := os.MkdirTemp("", "thumbnark-bench")
		if err != nil {
			log.Fatalln(err)
		}
		defer os.RemoveAll(dir)

		labels := make([]string, 0, len(benchRatios))
		setup := make([]opts.BarData, 0, len(benchRatios))
		prove := make([]opts.BarData, 0, len(benchRatios))
		verify := make([]opts.BarData, 0, len(benchRatios))
		for _, n := range benchRatios {
			c := config
			c.Ratio = n
			c.Position = n * n / 2
			c.Output = filepath.Join(dir, fmt.Sprintf("thumbnail.%d.png", n))
			c.Certificate = ""
			d, err := thumbnark.NewDriver(c)
			if err != nil {
				log.Fatalln(err)
			}
			r, err := d.Run()
			if err != nil {
				log.Fatalln(err)
			}
			if !r.Verified {
				log.Fatalln("ratio", n, "did not verify")
			}
			fmt.Println("n", "=", n, "blocks", "=", r.Blocks, "setup", "=", r.Setup, "prove", "=", r.Prove, "verify", "=", r.Verify)
			labels = append(labels, fmt.Sprintf("n=%d (%d blocks)", n, r.Blocks))
			setup = append(setup, opts.BarData{Value: r.Setup.Milliseconds()})
			prove = append(prove, opts.BarData{Value: r.Prove.Milliseconds()})
			verify = append(verify, opts.BarData{Value: r.Verify.Milliseconds()})
		}

		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: "thumbnark stage timings", Subtitle: config.Source + ", milliseconds"}),
			charts.WithInitializationOpts(opts.Initialization{PageTitle: "thumbnark bench", Width: "1200px", Height: "600px"}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		)
		bar.SetXAxis(labels).
			AddSeries("setup", setup).
			AddSeries("prove", prove).
			AddSeries("verify", verify)

		f, err := os.Create(benchOut)
		if err != nil {
			log.Fatalln(err)
		}
		defer f.Close()
		if err := bar.Render(f); err != nil {
			log.Fatalln(err)
		}
		fmt.Println("chart", "=", benchOut)
	},
}

func init() {
	benchCmd.Flags().IntSliceVar(&benchRatios, "ratios", []int{20, 10, 5}, "ratios to run")
	benchCmd.Flags().StringVar(&benchOut, "chart", "bench.html", "HTML chart output")
}
