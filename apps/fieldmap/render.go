package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/olablt/gio-fieldmap/engine"
)

func init() {
	rootCmd.AddCommand(renderCmd)

	flags := renderCmd.Flags()
	flags.StringP("out", "o", "map.png", "output PNG `file`")
	flags.Float64("lat", 0, "center latitude (default view.lat)")
	flags.Float64("lng", 0, "center longitude (default view.lng)")
	flags.Int("zoom", 0, "zoom level (default view.zoom)")
	flags.Int("width", 0, "width in pixels (default view.width)")
	flags.Int("height", 0, "height in pixels (default view.height)")
	flags.Duration("wait", 10*time.Second, "how long to wait for tiles")
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the configured view to a PNG without opening a window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("lat") {
			cfg.View.Lat, _ = flags.GetFloat64("lat")
		}
		if flags.Changed("lng") {
			cfg.View.Lng, _ = flags.GetFloat64("lng")
		}
		if flags.Changed("zoom") {
			cfg.View.Zoom, _ = flags.GetInt("zoom")
		}
		if flags.Changed("width") {
			cfg.View.Width, _ = flags.GetInt("width")
		}
		if flags.Changed("height") {
			cfg.View.Height, _ = flags.GetInt("height")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		out, _ := flags.GetString("out")
		wait, _ := flags.GetDuration("wait")

		st, err := newStack(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		defer st.Close()

		e := newEngine(cfg, newViewport(cfg), st.Cache, engine.Callbacks{})
		img, _ := settle(cmd.Context(), e, wait, tickInterval(cfg.View.TickHz))
		return writePNG(out, img)
	},
}
