// Command g3ddemo renders a grid of lit, normal-mapped cubes orbited by a
// point light.
//
// The scene comes from an optional YAML file; flags override it. Without a
// native window handle the demo runs headless on the software backend and
// reports frame statistics:
//
//	g3ddemo -frames 300 -v
//	g3ddemo -config scene.yaml -display $DISPLAY_PTR -window $WINDOW_ID
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/gogpu/wgpu/hal/allbackends" // register GPU backends

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/asset"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML scene file")
		frames     = flag.Int("frames", -1, "frames to render (overrides the scene)")
		backends   = flag.String("backend", "", "comma-separated backend priority, e.g. vulkan,gl")
		display    = flag.Uint64("display", 0, "native display handle")
		window     = flag.Uint64("window", 0, "native window handle; 0 runs headless")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfigFile(*configPath); err != nil {
			logger.Error("loading scene", "err", err)
			os.Exit(1)
		}
	}
	if *frames >= 0 {
		cfg.Frames = *frames
	}
	if *backends != "" {
		cfg.Backends = strings.Split(*backends, ",")
	}
	target := g3d.SurfaceTarget{Display: uintptr(*display), Window: uintptr(*window)}
	if target.Window == 0 {
		cfg.Backends = []string{"empty"}
	}

	if err := run(cfg, target, logger); err != nil {
		logger.Error("g3ddemo failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, target g3d.SurfaceTarget, logger *slog.Logger) error {
	opts := append(cfg.Options(), g3d.WithLogger(logger))
	e, err := g3d.New(target, cfg.Width, cfg.Height, opts...)
	if err != nil {
		return err
	}
	defer e.Close()
	logger.Info("engine started",
		"backend", e.BackendName(),
		"adapter", e.AdapterInfo().Name,
		"version", g3d.Version,
	)

	if err := populate(e, &cfg); err != nil {
		return err
	}

	dt := time.Second / time.Duration(cfg.FPS)
	ticker := time.NewTicker(dt)
	defer ticker.Stop()

	start := time.Now()
	last := start
	for range cfg.Frames {
		now := <-ticker.C
		if err := e.Render(now.Sub(last)); err != nil {
			return fmt.Errorf("frame %d: %w", e.Stats().FramesRendered, err)
		}
		last = now
	}

	st := e.Stats()
	logger.Info("done",
		"stats", st.String(),
		"elapsed", time.Since(start).Round(time.Millisecond),
		"memory", e.MemoryStats().String(),
	)
	return nil
}

// populate loads the cube model with the scene's material, fills the
// instance grid and installs the debug material.
func populate(e *g3d.Engine, cfg *Config) error {
	mat, err := cfg.Material.Record("cube")
	if err != nil {
		return err
	}
	cube, err := e.LoadModel([]asset.MeshRecord{asset.Cube(0)}, []asset.MaterialRecord{mat})
	if err != nil {
		return fmt.Errorf("load cube: %w", err)
	}
	in, err := e.AddToScene(cube, cfg.Grid.PerRow*cfg.Grid.PerRow)
	if err != nil {
		return err
	}
	if err := in.Set(g3d.Grid(cfg.Grid.PerRow, cfg.Grid.Spacing)); err != nil {
		return err
	}

	debug := debugChecker()
	if cfg.DebugMaterial != nil {
		if debug, err = cfg.DebugMaterial.Record("debug"); err != nil {
			return err
		}
	}
	dm, err := e.LoadMaterial(debug)
	if err != nil {
		return fmt.Errorf("load debug material: %w", err)
	}
	e.SetDebugMaterial(dm)
	return nil
}
