package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/paulmach/orb/geojson"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/olablt/gio-fieldmap/engine"
	"github.com/olablt/gio-fieldmap/overlay"
	"github.com/olablt/gio-fieldmap/tiles"
	"github.com/olablt/gio-fieldmap/viewport"
)

// script is a recorded session. Each step is applied and followed by one
// frame; "frame" steps also write that frame to disk once tiles settle.
type script struct {
	Steps []step `json:"steps"`
}

type step struct {
	Op     string  `json:"op"` // down, move, up, click, drag, scroll, key, resize, plot, frame
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Steps  int     `json:"steps"`
	Button string  `json:"button"`
	Key    string  `json:"key"`
	W      int     `json:"w"`
	H      int     `json:"h"`
	Out    string  `json:"out"`
}

func init() {
	rootCmd.AddCommand(replayCmd)

	flags := replayCmd.Flags()
	flags.String("out-dir", ".", "directory for frame PNGs")
	flags.String("geojson", "", "write finished plots to this GeoJSON `file`")
	flags.Duration("wait", 10*time.Second, "how long each frame step waits for tiles")
	flags.Bool("progress", true, "show a progress bar")
}

var replayCmd = &cobra.Command{
	Use:   "replay <script.json>",
	Short: "Replay a scripted session headlessly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := loadScript(args[0])
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		outDir, _ := flags.GetString("out-dir")
		geoOut, _ := flags.GetString("geojson")
		wait, _ := flags.GetDuration("wait")
		progress, _ := flags.GetBool("progress")

		st, err := newStack(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		defer st.Close()

		r := &replayer{
			vp:     newViewport(cfg),
			outDir: outDir,
			wait:   wait,
			tick:   tickInterval(cfg.View.TickHz),
		}
		r.engine = newEngine(cfg, r.vp, st.Cache, r.callbacks())

		var bar io.Writer
		if progress {
			bar = os.Stderr
		}
		if err := r.run(cmd.Context(), sc, bar); err != nil {
			return err
		}
		log.Infof("replayed %d steps, %d plots", len(sc.Steps), len(r.features.Features))
		if geoOut != "" {
			return writeJSON(geoOut, r.features)
		}
		return nil
	},
}

func loadScript(path string) (*script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc script
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &sc, nil
}

type replayer struct {
	vp     *viewport.Viewport
	engine *engine.Engine
	outDir string
	wait   time.Duration
	tick   time.Duration

	features *geojson.FeatureCollection
	errs     []error
	frames   int
}

func (r *replayer) callbacks() engine.Callbacks {
	r.features = geojson.NewFeatureCollection()
	return engine.Callbacks{
		OnLocate: func(geo tiles.LatLng, screen tiles.Point) {
			log.Debugf("located %.5f,%.5f at %.0f,%.0f", geo.Lat, geo.Lng, screen.X, screen.Y)
		},
		OnFinish: func(poly *overlay.Polygon) {
			r.features.Append(poly.Feature(r.vp))
		},
		OnError: func(err error) {
			r.errs = append(r.errs, err)
			log.Warnf("replay: %v", err)
		},
	}
}

// run applies every step. A nil progress writer disables the bar.
func (r *replayer) run(ctx context.Context, sc *script, progress io.Writer) error {
	var bar *pb.ProgressBar
	if progress != nil {
		bar = pb.New(len(sc.Steps)).SetWriter(progress)
		bar.Start()
		defer bar.Finish()
	}
	for i, s := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.apply(ctx, s); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, s.Op, err)
		}
		if bar != nil {
			bar.Increment()
		}
	}
	return nil
}

func (r *replayer) apply(ctx context.Context, s step) error {
	pos := tiles.Pt(s.X, s.Y)
	e := r.engine
	switch s.Op {
	case "down":
		e.Post(engine.PointerDown{Pos: pos, Button: parseButton(s.Button)})
	case "move":
		e.Post(engine.PointerMove{Pos: pos})
	case "up":
		e.Post(engine.PointerUp{Pos: pos})
	case "click":
		e.Post(engine.PointerDown{Pos: pos, Button: parseButton(s.Button)}, engine.PointerUp{Pos: pos})
	case "drag":
		to := pos.Add(tiles.Pt(s.DX, s.DY))
		e.Post(
			engine.PointerDown{Pos: pos, Button: viewport.ButtonPrimary},
			engine.PointerMove{Pos: to},
			engine.PointerUp{Pos: to},
		)
	case "scroll":
		e.Post(engine.Scroll{Pos: pos, Steps: s.Steps})
	case "key":
		e.Post(engine.Key{Name: engine.KeyName(s.Key)})
	case "resize":
		e.Post(engine.Resize{Rect: image.Rect(0, 0, s.W, s.H)})
	case "plot":
		e.Frame()
		e.BeginPlot()
	case "frame":
		img, _ := settle(ctx, e, r.wait, r.tick)
		r.frames++
		name := s.Out
		if name == "" {
			name = fmt.Sprintf("frame-%03d.png", r.frames)
		}
		return writePNG(filepath.Join(r.outDir, name), img)
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	e.Frame()
	return nil
}

func parseButton(name string) viewport.Button {
	switch name {
	case "secondary", "right":
		return viewport.ButtonSecondary
	case "tertiary", "middle":
		return viewport.ButtonTertiary
	default:
		return viewport.ButtonPrimary
	}
}
