package netlist

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/device"
)

type AnalysisType int

const (
	AnalysisNone AnalysisType = iota
	AnalysisOP
	AnalysisAC
)

type ACParam struct {
	Sweep  string  // DEC, OCT, LIN
	Points int     // points per decade/octave, or total for LIN
	FStart float64 // start frequency
	FStop  float64 // stop frequency
}

type NetlistData struct {
	Title    string
	Elements []Element                    // Top-level elements, X instances unexpanded
	Models   map[string]device.ModelParam // Keyed by lower-case model name
	Subckts  map[string]*Subckt           // Keyed by lower-case subckt name
	Analysis AnalysisType
	ACParam  ACParam
	Temp     float64           // degC
	Options  map[string]string // .options key=value
	Includes []string
}

type Element struct {
	Type   string            // Part type (R, C, V, I, D, S, M, X)
	Name   string            // Part name
	Nodes  []string          // Node names
	Value  float64           // Part value; DC value of sources
	Params map[string]string // Model name, AC phasor, geometry, subckt
}

type Subckt struct {
	Name     string
	Ports    []string
	Elements []Element
}

const DefaultTemp = 27.0

var unitMap = map[string]float64{
	"T":   1e12,  // tera
	"G":   1e9,   // giga
	"meg": 1e6,   // mega
	"M":   1e-3,  // milli, as in SPICE
	"K":   1e3,   // kilo
	"k":   1e3,   // kilo
	"m":   1e-3,  // milli
	"u":   1e-6,  // micro
	"n":   1e-9,  // nano
	"p":   1e-12, // pico
	"f":   1e-15, // femto
}

var (
	valueRe = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)(meg|MEG|Meg|[TGMKkmunpf])?[A-Za-z]*$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

func New(title string) *NetlistData {
	return &NetlistData{
		Title:   title,
		Models:  make(map[string]device.ModelParam),
		Subckts: make(map[string]*Subckt),
		Temp:    DefaultTemp,
		Options: make(map[string]string),
	}
}

// parser carries the open .subckt while lines are consumed.
type parser struct {
	data   *NetlistData
	subckt *Subckt
	ended  bool
}

// Parse reads a SPICE deck. The first line is the title.
func Parse(input string) (*NetlistData, error) {
	return parse(input, true)
}

// ParseLibrary reads a file of .subckt and .model definitions with no
// title line.
func ParseLibrary(input string) (*NetlistData, error) {
	return parse(input, false)
}

// ParseFile reads a deck from disk and merges its .include files, resolved
// relative to the deck.
func ParseFile(path string) (*NetlistData, error) {
	return parseFile(path, true, 0)
}

// ParseLibraryFile is ParseLibrary on a file, following .include cards.
func ParseLibraryFile(path string) (*NetlistData, error) {
	return parseFile(path, false, 0)
}

func parseFile(path string, hasTitle bool, depth int) (*NetlistData, error) {
	if depth > 8 {
		return nil, errors.Errorf("%s: .include nested too deep", path)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading netlist")
	}
	data, err := parse(string(buf), hasTitle)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	for _, inc := range data.Includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		lib, err := parseFile(inc, false, depth+1)
		if err != nil {
			return nil, err
		}
		data.Merge(lib)
	}
	return data, nil
}

// Merge copies models, subcircuits and elements of other into n. Existing
// definitions win.
func (n *NetlistData) Merge(other *NetlistData) {
	for k, m := range other.Models {
		if _, ok := n.Models[k]; !ok {
			n.Models[k] = m
		}
	}
	for k, s := range other.Subckts {
		if _, ok := n.Subckts[k]; !ok {
			n.Subckts[k] = s
		}
	}
	n.Elements = append(n.Elements, other.Elements...)
}

func parse(input string, hasTitle bool) (*NetlistData, error) {
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	p := &parser{data: New("")}

	if hasTitle && scanner.Scan() {
		p.data.Title = strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "*"))
	}

	var currentLine string
	lineNo := 0
	if hasTitle {
		lineNo = 1
	}
	startLine := lineNo

	flush := func() error {
		if currentLine == "" {
			return nil
		}
		err := p.parseLine(currentLine)
		currentLine = ""
		return errors.Wrapf(err, "line %d", startLine)
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		// Inline comment
		if idx := strings.IndexByte(line, ';'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)

		if len(line) == 0 || strings.HasPrefix(line, "*") {
			continue
		}

		if strings.HasPrefix(line, "+") {
			if currentLine == "" {
				return nil, errors.Errorf("line %d: continuation without a preceding line", lineNo)
			}
			currentLine += " " + strings.TrimSpace(line[1:])
			continue
		}

		if err := flush(); err != nil {
			return nil, err
		}
		if p.ended {
			break
		}
		currentLine = line
		startLine = lineNo
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning netlist")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if p.subckt != nil {
		return nil, errors.Errorf("subckt %s: missing .ends", p.subckt.Name)
	}

	return p.data, nil
}

func (p *parser) parseLine(line string) error {
	line = spaceRe.ReplaceAllString(line, " ")

	if strings.HasPrefix(line, ".") {
		return p.parseDotOperator(line)
	}

	element, err := parseElement(line)
	if err != nil {
		return err
	}

	if p.subckt != nil {
		p.subckt.Elements = append(p.subckt.Elements, *element)
	} else {
		p.data.Elements = append(p.data.Elements, *element)
	}
	return nil
}

func (p *parser) parseDotOperator(line string) error {
	var err error

	fields := strings.Fields(line)
	data := p.data

	switch strings.ToLower(fields[0]) {
	case ".model":
		return parseModel(data, fields[1:])

	case ".subckt":
		if p.subckt != nil {
			return errors.Errorf("nested .subckt inside %s", p.subckt.Name)
		}
		if len(fields) < 2 {
			return errors.New(".subckt needs a name")
		}
		ports, err := ExpandPorts(fields[2:]...)
		if err != nil {
			return errors.Wrapf(err, "subckt %s ports", fields[1])
		}
		p.subckt = &Subckt{Name: fields[1], Ports: ports}

	case ".ends":
		if p.subckt == nil {
			return errors.New(".ends without .subckt")
		}
		key := strings.ToLower(p.subckt.Name)
		if _, dup := data.Subckts[key]; dup {
			return errors.Errorf("duplicate subckt %s", p.subckt.Name)
		}
		data.Subckts[key] = p.subckt
		p.subckt = nil

	case ".op":
		data.Analysis = AnalysisOP

	case ".ac":
		data.Analysis = AnalysisAC
		if len(fields) < 5 {
			return errors.New("insufficient AC parameters, need sweep type, points, fstart, and fstop")
		}

		data.ACParam.Sweep = strings.ToUpper(fields[1])
		if data.ACParam.Sweep != "DEC" && data.ACParam.Sweep != "OCT" && data.ACParam.Sweep != "LIN" {
			return errors.Errorf("invalid sweep type: %s", data.ACParam.Sweep)
		}
		if data.ACParam.Points, err = strconv.Atoi(fields[2]); err != nil {
			return errors.Wrap(err, "invalid points number")
		}
		if data.ACParam.FStart, err = ParseValue(fields[3]); err != nil {
			return errors.Wrap(err, "invalid fstart")
		}
		if data.ACParam.FStop, err = ParseValue(fields[4]); err != nil {
			return errors.Wrap(err, "invalid fstop")
		}

	case ".temp":
		if len(fields) < 2 {
			return errors.New(".temp needs a value")
		}
		if data.Temp, err = ParseValue(fields[1]); err != nil {
			return errors.Wrap(err, "invalid temperature")
		}

	case ".options", ".option":
		for _, f := range fields[1:] {
			k, v, found := strings.Cut(f, "=")
			if !found {
				v = "1"
			}
			data.Options[strings.ToLower(k)] = v
		}

	case ".include", ".inc":
		if len(fields) < 2 {
			return errors.New(".include needs a path")
		}
		data.Includes = append(data.Includes, strings.Trim(fields[1], `"'`))

	case ".end":
		p.ended = true

	case ".control", ".endc":
		return errors.Errorf("%s blocks are not supported", fields[0])

	default:
		return errors.Errorf("unsupported dot command: %s", fields[0])
	}

	return nil
}

var modelDefaults = map[string]bool{"D": true, "SW": true, "NMOS": true, "PMOS": true}

func parseModel(data *NetlistData, fields []string) error {
	if len(fields) < 2 {
		return errors.New("insufficient model parameters")
	}

	modelName := fields[0]
	rest := strings.Join(fields[1:], " ")
	rest = strings.NewReplacer("(", " ", ")", " ").Replace(rest)
	words := strings.Fields(rest)

	modelType := strings.ToUpper(words[0])
	if !modelDefaults[modelType] {
		return errors.Errorf("unsupported model type: %s", modelType)
	}

	// "a = 1" and "a=1" are both accepted.
	paramStr := strings.Join(words[1:], " ")
	paramStr = strings.ReplaceAll(paramStr, " = ", "=")
	params := make(map[string]float64)
	for _, pair := range strings.Fields(paramStr) {
		k, v, found := strings.Cut(pair, "=")
		if !found {
			return errors.Errorf("model %s: malformed parameter %q", modelName, pair)
		}
		value, err := ParseValue(v)
		if err != nil {
			return errors.Wrapf(err, "model %s: parameter %s", modelName, k)
		}
		params[strings.ToLower(k)] = value
	}

	data.Models[strings.ToLower(modelName)] = device.ModelParam{
		Type:   modelType,
		Name:   modelName,
		Params: params,
	}
	return nil
}

// Parse circuit element
func parseElement(line string) (*Element, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil, errors.Errorf("invalid element format: %s", line)
	}

	elem := &Element{
		Name:   fields[0],
		Type:   strings.ToUpper(fields[0][:1]),
		Params: make(map[string]string),
	}

	switch elem.Type {
	case "V", "I":
		return parseSource(elem, fields)

	case "R", "C":
		if len(fields) < 4 {
			return nil, errors.Errorf("%s: needs two nodes and a value", elem.Name)
		}
		elem.Nodes = fields[1:3]
		value, err := ParseValue(fields[3])
		if err != nil {
			return nil, errors.Wrapf(err, "%s value", elem.Name)
		}
		elem.Value = value
		return elem, parseInstanceParams(elem, fields[4:])

	case "D":
		if len(fields) < 4 {
			return nil, errors.Errorf("%s: needs two nodes and a model", elem.Name)
		}
		elem.Nodes = fields[1:3]
		elem.Params["model"] = fields[3]
		return elem, parseInstanceParams(elem, fields[4:])

	case "S":
		if len(fields) < 6 {
			return nil, errors.Errorf("%s: needs four nodes and a model", elem.Name)
		}
		elem.Nodes = fields[1:5]
		elem.Params["model"] = fields[5]
		for _, f := range fields[6:] {
			switch strings.ToLower(f) {
			case "on", "off":
				elem.Params["state"] = strings.ToLower(f)
			default:
				return nil, errors.Errorf("%s: unexpected token %q", elem.Name, f)
			}
		}
		return elem, nil

	case "M":
		if len(fields) < 6 {
			return nil, errors.Errorf("%s: needs four nodes and a model", elem.Name)
		}
		elem.Nodes = fields[1:5]
		elem.Params["model"] = fields[5]
		return elem, parseInstanceParams(elem, fields[6:])

	case "X":
		end := len(fields)
		for end > 1 && strings.Contains(fields[end-1], "=") {
			end--
		}
		if end < 3 {
			return nil, errors.Errorf("%s: needs nodes and a subckt name", elem.Name)
		}
		nodes, err := ExpandPorts(fields[1 : end-1]...)
		if err != nil {
			return nil, errors.Wrapf(err, "%s nodes", elem.Name)
		}
		elem.Nodes = nodes
		elem.Params["subckt"] = fields[end-1]
		return elem, parseInstanceParams(elem, fields[end:])

	default:
		return nil, errors.Errorf("unsupported element type %s (%s)", elem.Type, elem.Name)
	}
}

func parseInstanceParams(elem *Element, fields []string) error {
	for _, f := range fields {
		k, v, found := strings.Cut(f, "=")
		if !found || k == "" {
			return errors.Errorf("%s: malformed parameter %q", elem.Name, f)
		}
		if _, err := ParseValue(v); err != nil {
			return errors.Wrapf(err, "%s parameter %s", elem.Name, k)
		}
		elem.Params[strings.ToLower(k)] = v
	}
	return nil
}

// parseSource accepts "[DC] v", "AC mag [phase]" and both combined.
func parseSource(elem *Element, fields []string) (*Element, error) {
	if len(fields) < 4 {
		return nil, errors.Errorf("insufficient %s source parameters", elem.Type)
	}
	elem.Nodes = []string{fields[1], fields[2]}

	words := fields[3:]
	for i := 0; i < len(words); i++ {
		switch strings.ToUpper(words[i]) {
		case "DC":
			if i+1 >= len(words) {
				return nil, errors.New("missing DC value")
			}
			value, err := ParseValue(words[i+1])
			if err != nil {
				return nil, errors.Wrap(err, "invalid DC value")
			}
			elem.Value = value
			i++

		case "AC":
			if i+1 >= len(words) {
				return nil, errors.New("missing AC magnitude")
			}
			if _, err := ParseValue(words[i+1]); err != nil {
				return nil, errors.Wrap(err, "invalid AC magnitude")
			}
			elem.Params["acmag"] = words[i+1]
			elem.Params["acphase"] = "0"
			i++
			if i+1 < len(words) {
				if _, err := ParseValue(words[i+1]); err == nil {
					elem.Params["acphase"] = words[i+1]
					i++
				}
			}

		default:
			if i != 0 {
				return nil, errors.Errorf("unsupported source specification: %s", words[i])
			}
			value, err := ParseValue(words[i])
			if err != nil {
				return nil, errors.Wrapf(err, "unsupported source type %s", words[i])
			}
			elem.Value = value
		}
	}

	return elem, nil
}

// ParseValue - Parse value and factor. 1k -> 1000, 10meg -> 1e7, 2.5pF -> 2.5e-12
func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, errors.Errorf("invalid value format: %s", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, errors.Wrap(err, val)
	}

	if suffix := matches[2]; suffix != "" {
		if strings.EqualFold(suffix, "meg") {
			suffix = "meg"
		}
		num *= unitMap[suffix]
	}

	return num, nil
}

// FloatParam reads a numeric instance parameter.
func (e Element) FloatParam(key string) (float64, bool, error) {
	s, ok := e.Params[key]
	if !ok {
		return 0, false, nil
	}
	v, err := ParseValue(s)
	return v, true, err
}
