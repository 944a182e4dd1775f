// Package light runs the shared light exchange of a coupled run.
package light

import (
	"errors"
	"fmt"

	"mixcrop/internal/layout"
)

// ErrUnknownModel is returned for a light model tag outside the known set.
var ErrUnknownModel = errors.New("light: unknown light model")

// Model selects the light engine family.
type Model int

const (
	// ModelCaribu works on triangulated scenes and reports per organ.
	ModelCaribu Model = iota
	// ModelRATP works on voxel grids.
	ModelRATP
	// ModelRiRi5 works on voxel grids.
	ModelRiRi5
)

// String returns the configuration tag of m.
func (m Model) String() string {
	switch m {
	case ModelRATP:
		return "ratp"
	case ModelRiRi5:
		return "riri5"
	default:
		return "caribu"
	}
}

// Voxel reports whether m consumes voxel grids.
func (m Model) Voxel() bool { return m == ModelRATP || m == ModelRiRi5 }

// ParseModel reads a lightmodel tag.
func ParseModel(s string) (Model, error) {
	switch s {
	case "caribu":
		return ModelCaribu, nil
	case "ratp":
		return ModelRATP, nil
	case "riri5":
		return ModelRiRi5, nil
	}
	return ModelCaribu, fmt.Errorf("%w: %q", ErrUnknownModel, s)
}

// Config parameterises the light engine.
type Config struct {
	Model Model
	// Extinction is the canopy extinction coefficient.
	Extinction float64
	// VoxelSize is the engine voxel in metres.
	VoxelSize layout.Vec3
	// LegumeVoxelCM is the voxel of the legume leaf grid, in centimetres.
	// When non-zero and a legume grid is present it replaces VoxelSize.
	LegumeVoxelCM layout.Vec3
}

// DefaultConfig returns a caribu engine with 10 cm voxels.
func DefaultConfig() Config {
	return Config{
		Model:      ModelCaribu,
		Extinction: 0.7,
		VoxelSize:  layout.Vec3{X: 0.1, Y: 0.1, Z: 0.1},
	}
}

// Voxel returns the engine voxel size, in metres.
func (c Config) Voxel(legumeGrid bool) layout.Vec3 {
	l := c.LegumeVoxelCM
	if legumeGrid && l.X > 0 && l.Y > 0 && l.Z > 0 {
		return l.Scale(0.01)
	}
	return c.VoxelSize
}
