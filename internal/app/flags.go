package app

import "flag"

// Config represents the command-line parameters of the viewer.
type Config struct {
	RunFile string
	Scale   int
	SPS     int
	Panel   int
	Raster  int
	Seed    int64
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{Scale: 4, SPS: 4, Panel: 280, Raster: 160}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.RunFile, "config", c.RunFile, "YAML run file (defaults when empty)")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel scale multiplier")
	fs.IntVar(&c.SPS, "sps", c.SPS, "coupled steps per second")
	fs.IntVar(&c.Panel, "panel", c.Panel, "parameter panel width in pixels")
	fs.IntVar(&c.Raster, "raster", c.Raster, "layout raster size in cells")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for plant positions (0 keeps the run file's)")
}
