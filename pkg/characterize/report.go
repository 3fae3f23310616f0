package characterize

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/util"
)

type jsonCell struct {
	Code       int        `json:"code"`
	BiasIndex  int        `json:"bias_index"`
	Vin        float64    `json:"vin"`
	Resistance []*float64 `json:"resistance"` // null where open
}

type jsonFailure struct {
	Job   string `json:"job"`
	Error string `json:"error"`
}

type jsonReport struct {
	Driver   string        `json:"driver"`
	Corner   string        `json:"corner"`
	Voltage  float64       `json:"voltage"`
	TempC    float64       `json:"temp_c"`
	Freq     []float64     `json:"freq"`
	Vin      []float64     `json:"vin"`
	PullUp   []jsonCell    `json:"pull_up"`
	PullDown []jsonCell    `json:"pull_down"`
	Failures []jsonFailure `json:"failures,omitempty"`
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func (r *Result) cells(kind LegKind) []jsonCell {
	var out []jsonCell
	for c, row := range r.Table(kind) {
		for b, curve := range row {
			if curve == nil {
				continue
			}
			cell := jsonCell{Code: c + 1, BiasIndex: b, Vin: r.Vin[b], Resistance: make([]*float64, len(curve))}
			for i, s := range curve {
				cell.Resistance[i] = finite(s.Resistance)
			}
			out = append(out, cell)
		}
	}
	return out
}

// WriteJSON writes the whole table. Resistances share the top-level freq
// vector; open circuits are null.
func WriteJSON(w io.Writer, r *Result) error {
	rep := jsonReport{
		Driver:   r.Driver,
		Corner:   r.Pvt.Corner.String(),
		Voltage:  r.Pvt.Voltage,
		TempC:    r.Pvt.TempC,
		Freq:     r.Freq,
		Vin:      r.Vin,
		PullUp:   r.cells(PullUp),
		PullDown: r.cells(PullDown),
	}
	for _, f := range r.Failures {
		rep.Failures = append(rep.Failures, jsonFailure{Job: f.Key.String(), Error: f.Err.Error()})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(rep), "encoding json report")
}

// WriteCSV writes one row per cell and frequency.
func WriteCSV(w io.Writer, r *Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"kind", "code", "bias_index", "vin", "freq", "resistance"}); err != nil {
		return errors.Wrap(err, "writing csv")
	}
	format := func(v float64) string { return strconv.FormatFloat(v, 'g', 10, 64) }

	for _, kind := range []LegKind{PullUp, PullDown} {
		for c, row := range r.Table(kind) {
			for b, curve := range row {
				for _, s := range curve {
					rec := []string{
						kind.Prefix(),
						strconv.Itoa(c + 1),
						strconv.Itoa(b),
						format(r.Vin[b]),
						format(s.Freq),
						format(s.Resistance),
					}
					if err := cw.Write(rec); err != nil {
						return errors.Wrap(err, "writing csv")
					}
				}
			}
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "writing csv")
}

// WriteSummary prints, per leg family, the resistance at the lowest swept
// frequency for every code and bias point.
func WriteSummary(w io.Writer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "driver %s at %s\n", r.Driver, r.Pvt)
	if len(r.Freq) > 0 {
		fmt.Fprintf(tw, "R at %s, %d points to %s\n",
			util.FormatFrequency(r.Freq[0]), len(r.Freq), util.FormatFrequency(r.Freq[len(r.Freq)-1]))
	}

	for _, kind := range []LegKind{PullUp, PullDown} {
		fmt.Fprintf(tw, "\n%s\ncode\t", kind)
		for _, v := range r.Vin {
			fmt.Fprintf(tw, "vin=%s\t", util.FormatValueFactor(v, "V"))
		}
		fmt.Fprintln(tw)

		for c, row := range r.Table(kind) {
			fmt.Fprintf(tw, "%d\t", c+1)
			for _, curve := range row {
				if len(curve) == 0 {
					fmt.Fprint(tw, "failed\t")
					continue
				}
				fmt.Fprintf(tw, "%s\t", util.FormatResistance(curve[0].Resistance))
			}
			fmt.Fprintln(tw)
		}
	}

	if len(r.Failures) > 0 {
		fmt.Fprintf(tw, "\n%d jobs failed\n", len(r.Failures))
		for _, f := range r.Failures {
			fmt.Fprintf(tw, "  %v\n", f)
		}
	}
	return tw.Flush()
}
