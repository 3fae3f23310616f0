package netlist

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type WriteOptions struct {
	// Sanitize rewrites bus bits a[3] as a_3 for simulators that reject
	// brackets in node names.
	Sanitize bool
	// Control lines are emitted verbatim before .end.
	Control []string
}

var sanitizer = strings.NewReplacer("[", "_", "]", "")

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Write renders n as a SPICE deck that Parse reads back.
func Write(w io.Writer, n *NetlistData, opts WriteOptions) error {
	bw := bufio.NewWriter(w)

	node := func(s string) string {
		if opts.Sanitize {
			return sanitizer.Replace(s)
		}
		return s
	}
	nodes := func(list []string) string {
		out := make([]string, len(list))
		for i, s := range list {
			out[i] = node(s)
		}
		return strings.Join(out, " ")
	}

	title := n.Title
	if title == "" {
		title = "untitled"
	}
	fmt.Fprintf(bw, "* %s\n", title)

	modelNames := make([]string, 0, len(n.Models))
	for k := range n.Models {
		modelNames = append(modelNames, k)
	}
	sort.Strings(modelNames)
	for _, k := range modelNames {
		m := n.Models[k]
		keys := make([]string, 0, len(m.Params))
		for p := range m.Params {
			keys = append(keys, p)
		}
		sort.Strings(keys)
		params := make([]string, len(keys))
		for i, p := range keys {
			params[i] = p + "=" + formatFloat(m.Params[p])
		}
		fmt.Fprintf(bw, ".model %s %s(%s)\n", m.Name, strings.ToLower(m.Type), strings.Join(params, " "))
	}

	subNames := make([]string, 0, len(n.Subckts))
	for k := range n.Subckts {
		subNames = append(subNames, k)
	}
	sort.Strings(subNames)
	for _, k := range subNames {
		sub := n.Subckts[k]
		fmt.Fprintf(bw, "\n.subckt %s %s\n", sub.Name, nodes(sub.Ports))
		for _, e := range sub.Elements {
			line, err := formatElement(e, nodes)
			if err != nil {
				return errors.Wrapf(err, "subckt %s", sub.Name)
			}
			fmt.Fprintln(bw, line)
		}
		fmt.Fprintf(bw, ".ends %s\n", sub.Name)
	}

	fmt.Fprintln(bw)
	for _, e := range n.Elements {
		line, err := formatElement(e, nodes)
		if err != nil {
			return err
		}
		fmt.Fprintln(bw, line)
	}

	fmt.Fprintln(bw)
	fmt.Fprintf(bw, ".temp %s\n", formatFloat(n.Temp))
	if len(n.Options) > 0 {
		keys := make([]string, 0, len(n.Options))
		for k := range n.Options {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		opts := make([]string, len(keys))
		for i, k := range keys {
			opts[i] = k + "=" + n.Options[k]
		}
		fmt.Fprintf(bw, ".options %s\n", strings.Join(opts, " "))
	}

	switch n.Analysis {
	case AnalysisOP:
		fmt.Fprintln(bw, ".op")
	case AnalysisAC:
		ac := n.ACParam
		fmt.Fprintf(bw, ".ac %s %d %s %s\n", strings.ToLower(ac.Sweep), ac.Points, formatFloat(ac.FStart), formatFloat(ac.FStop))
	}

	for _, line := range opts.Control {
		fmt.Fprintln(bw, line)
	}
	fmt.Fprintln(bw, ".end")

	return bw.Flush()
}

func sortedParams(params map[string]string, skip ...string) []string {
	var out []string
	for k, v := range params {
		skipped := false
		for _, s := range skip {
			if k == s {
				skipped = true
				break
			}
		}
		if !skipped {
			out = append(out, k+"="+v)
		}
	}
	sort.Strings(out)
	return out
}

func formatElement(e Element, nodes func([]string) string) (string, error) {
	parts := []string{e.Name, nodes(e.Nodes)}

	switch e.Type {
	case "R", "C":
		parts = append(parts, formatFloat(e.Value))
		parts = append(parts, sortedParams(e.Params)...)

	case "V", "I":
		parts = append(parts, "DC", formatFloat(e.Value))
		if mag, ok := e.Params["acmag"]; ok {
			phase := e.Params["acphase"]
			if phase == "" {
				phase = "0"
			}
			parts = append(parts, "AC", mag, phase)
		}

	case "D":
		parts = append(parts, e.Params["model"])
		parts = append(parts, sortedParams(e.Params, "model")...)

	case "S":
		parts = append(parts, e.Params["model"])
		if state, ok := e.Params["state"]; ok {
			parts = append(parts, state)
		}

	case "M":
		parts = append(parts, e.Params["model"])
		parts = append(parts, sortedParams(e.Params, "model")...)

	case "X":
		parts = append(parts, e.Params["subckt"])
		parts = append(parts, sortedParams(e.Params, "subckt")...)

	default:
		return "", errors.Errorf("cannot write element %s of type %s", e.Name, e.Type)
	}

	return strings.Join(parts, " "), nil
}
