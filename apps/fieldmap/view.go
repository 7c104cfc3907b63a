package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"
	humanize "github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/olablt/gio-fieldmap/engine"
	"github.com/olablt/gio-fieldmap/mapview"
	"github.com/olablt/gio-fieldmap/overlay"
	"github.com/olablt/gio-fieldmap/tiles"
	"github.com/olablt/gio-fieldmap/viewport"
)

var viewGeoJSON string

func init() {
	rootCmd.AddCommand(viewCmd)
	viewCmd.Flags().StringVar(&viewGeoJSON, "geojson", "", "write each finished plot to this GeoJSON `file`")
}

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Open the interactive map window",
	Long: `Open the interactive map window.

Drag to pan and scroll to zoom. Click to select a location, Enter to start
drawing a plot from it, click to add vertices, Backspace to undo, Enter to
finish and Escape to cancel.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		st, err := newStack(cmd.Context(), cfg, reg)
		if err != nil {
			return err
		}
		if cfg.Metrics.Addr != "" {
			go serveMetrics(cfg.Metrics.Addr, reg)
		}

		refresh := make(chan struct{}, 1)
		st.Cache.SetOnLoadCallback(func() {
			select {
			case refresh <- struct{}{}:
			default:
			}
		})

		vp := newViewport(cfg)
		mv := mapview.New(newEngine(cfg, vp, st.Cache, viewCallbacks(vp)), cfg.View.TickHz)

		go func() {
			w := new(app.Window)
			w.Option(
				app.Title("Field map"),
				app.Size(unit.Dp(cfg.View.Width), unit.Dp(cfg.View.Height)),
			)
			go func() {
				for range refresh {
					w.Invalidate()
				}
			}()

			var ops op.Ops
			for {
				switch e := w.Event().(type) {
				case app.DestroyEvent:
					st.Close()
					if logCloser != nil {
						_ = logCloser.Close()
					}
					if e.Err != nil {
						log.Error(e.Err)
						os.Exit(1)
					}
					os.Exit(0)
				case app.FrameEvent:
					gtx := app.NewContext(&ops, e)
					mv.Layout(gtx)
					e.Frame(gtx.Ops)
				}
			}
		}()
		app.Main()
		return nil
	},
}

func viewCallbacks(vp *viewport.Viewport) engine.Callbacks {
	return engine.Callbacks{
		OnLocate: func(geo tiles.LatLng, screen tiles.Point) {
			env := probeEnvironment(screen, vp.Rect())
			log.Infof("selected %.5f,%.5f: %s soil, %d mm rain, %d°C, %s",
				geo.Lat, geo.Lng, env.Soil, env.RainfallMM, env.TempC, env.WaterSource)
		},
		OnFinish: func(poly *overlay.Polygon) {
			log.WithField("id", poly.ID).Infof("plot area %s px², ~%s m²",
				humanize.Comma(int64(poly.Area)), humanize.Comma(int64(poly.AreaMeters(vp))))
			if viewGeoJSON == "" {
				return
			}
			if err := writeJSON(viewGeoJSON, poly.Feature(vp)); err != nil {
				log.Errorf("write %s: %v", viewGeoJSON, err)
			}
		},
		OnError: func(err error) {
			if errors.Is(err, overlay.ErrInsufficientPoints) {
				log.Warn("a plot needs at least 3 points")
				return
			}
			log.Error(err)
		},
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Infof("metrics on http://%s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("metrics server: %v", err)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
