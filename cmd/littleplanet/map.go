package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/littleplanet/internal/logic/geometry"
)

func newMapCmd() *cobra.Command {
	var (
		x, y        float64
		inputShape  string
		outputShape string
		zoom        float64
		rotation    float64
	)

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Print the source coordinate sampled for one output pixel",
		Example: `  # Where does the center of a 1080x1080 planet come from in a 2000x4000 panorama?
  littleplanet map --x 540 --y 540 --input-shape 2000x4000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := geometry.ParseShape(inputShape)
			if err != nil {
				return fmt.Errorf("--input-shape: %w", err)
			}
			out, err := geometry.ParseShape(outputShape)
			if err != nil {
				return fmt.Errorf("--output-shape: %w", err)
			}
			proj := geometry.DefaultProjection()
			proj.Zoom, proj.Rotation = zoom, rotation
			if err := proj.Validate(); err != nil {
				return err
			}

			sx, sy := geometry.MapPoint(geometry.LittlePlanet(out, in, proj), x, y)
			fmt.Fprintf(cmd.OutOrStdout(), "(%g, %g) -> (%.6f, %.6f)\n", x, y, sx, sy)
			return nil
		},
	}

	cmd.Flags().Float64Var(&x, "x", 0, "output column")
	cmd.Flags().Float64Var(&y, "y", 0, "output row")
	cmd.Flags().StringVar(&inputShape, "input-shape", "", "source panorama shape as HEIGHTxWIDTH")
	cmd.Flags().StringVar(&outputShape, "output-shape", "1080x1080", "output shape as HEIGHTxWIDTH")
	cmd.Flags().Float64Var(&zoom, "zoom", geometry.DefaultZoom, "projection zoom factor")
	cmd.Flags().Float64Var(&rotation, "rotation", geometry.DefaultRotation, "rotation offset in turns")
	_ = cmd.MarkFlagRequired("input-shape")

	return cmd
}
