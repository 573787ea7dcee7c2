package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anchorcluster/anchorcluster/internal/scandist"
	"github.com/anchorcluster/anchorcluster/internal/source"
)

var scandistMaxPairs int

var scandistCmd = &cobra.Command{
	Use:   "scandist <input>",
	Short: "Run the scan-distance pre-pass over a frame file and print its percentile distribution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := source.OpenTextSource(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer src.Close()

		pct, err := scandist.Scan(context.Background(), textFrameReader{src}, scandistMaxPairs)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", args[0], err)
		}
		fmt.Printf("min    %.6f\n", pct.Min)
		fmt.Printf("p20    %.6f\n", pct.P20)
		fmt.Printf("median %.6f\n", pct.Median)
		fmt.Printf("p80    %.6f\n", pct.P80)
		fmt.Printf("max    %.6f\n", pct.Max)
		return nil
	},
}

// textFrameReader adapts a source.FrameSource to scandist.FrameReader, the
// same bridge anchorcluster.Engine uses internally for RunFile's
// auto-radius pre-pass.
type textFrameReader struct {
	src *source.TextSource
}

func (r textFrameReader) NextVector(ctx context.Context) ([]float64, error) {
	f, err := r.src.Next(ctx)
	if err != nil {
		return nil, err
	}
	return f.Vec, nil
}

func init() {
	scandistCmd.Flags().IntVar(&scandistMaxPairs, "max-pairs", 2000, "maximum number of consecutive-frame distances to sample")
}
