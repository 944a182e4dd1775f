//go:build ebiten

package main

import (
	"errors"
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"mixcrop/internal/app"
	"mixcrop/internal/config"
	"mixcrop/internal/setup"
	_ "mixcrop/internal/sims/cereal"
	_ "mixcrop/internal/sims/legume"
	_ "mixcrop/internal/sims/rampant"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	runCfg, err := config.Load(cfg.RunFile)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Seed != 0 {
		runCfg.Seed = cfg.Seed
	}
	run, err := setup.Build(runCfg, setup.Options{})
	if err != nil {
		log.Fatal(err)
	}
	game, err := app.New(run, cfg)
	if err != nil {
		log.Fatal(err)
	}
	w, h := game.Layout(0, 0)

	ebiten.SetWindowTitle("mixcrop: canopy layout")
	ebiten.SetWindowSize(w, h)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
