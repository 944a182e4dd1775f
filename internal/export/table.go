package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"mixcrop/internal/coupling"
)

// Header is the column order of the steps table.
var Header = []string{
	"t", "doy", "light", "soil", "bare", "plants", "energy", "intercepted",
	"soil_energy", "transpiration", "evaporation", "uptake", "water",
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// WriteCSV writes one row per step report.
func WriteCSV(w io.Writer, reports []coupling.StepReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range reports {
		rec := []string{
			strconv.Itoa(r.T),
			strconv.Itoa(r.DOY),
			strconv.FormatBool(r.Light),
			strconv.FormatBool(r.Soil),
			strconv.FormatBool(r.Bare),
			strconv.Itoa(r.Plants),
			formatFloat(r.Energy),
			formatFloat(r.Intercepted),
			formatFloat(r.SoilEnergy),
			formatFloat(r.Transpiration),
			formatFloat(r.Evaporation),
			formatFloat(r.Uptake),
			formatFloat(r.Water),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// StepsKey is the object name of a run's steps table.
func StepsKey(run string) string { return run + "/steps.csv" }

// Steps writes the steps table of run to sink.
func Steps(ctx context.Context, sink Sink, run string, reports []coupling.StepReport) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, reports); err != nil {
		return err
	}
	return sink.Put(ctx, StepsKey(run), bytes.NewReader(buf.Bytes()), "text/csv")
}
