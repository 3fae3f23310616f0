package netlist

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/edp1096/drvchar/pkg/device"
)

func lookupModel(elem Element, models map[string]device.ModelParam, types ...string) (device.ModelParam, error) {
	name := elem.Params["model"]
	model, ok := models[strings.ToLower(name)]
	if !ok {
		return device.ModelParam{}, errors.Errorf("%s: undefined model %q", elem.Name, name)
	}
	for _, t := range types {
		if strings.EqualFold(model.Type, t) {
			return model, nil
		}
	}
	return device.ModelParam{}, errors.Errorf("%s: model %s has type %s, want %s",
		elem.Name, name, model.Type, strings.Join(types, " or "))
}

// CreateDevice builds the simulator device of a flattened element.
func CreateDevice(elem Element, models map[string]device.ModelParam) (device.Device, error) {
	switch elem.Type {
	case "R":
		r := device.NewResistor(elem.Name, elem.Nodes, elem.Value)
		tc1, _, err := elem.FloatParam("tc1")
		if err != nil {
			return nil, err
		}
		tc2, _, err := elem.FloatParam("tc2")
		if err != nil {
			return nil, err
		}
		r.SetTempCoefficients(tc1, tc2)
		return r, nil

	case "C":
		return device.NewCapacitor(elem.Name, elem.Nodes, elem.Value), nil

	case "V", "I":
		mag, _, err := elem.FloatParam("acmag")
		if err != nil {
			return nil, err
		}
		phase, _, err := elem.FloatParam("acphase")
		if err != nil {
			return nil, err
		}
		if elem.Type == "V" {
			return device.NewACVoltageSource(elem.Name, elem.Nodes, elem.Value, mag, phase), nil
		}
		return device.NewACCurrentSource(elem.Name, elem.Nodes, elem.Value, mag, phase), nil

	case "D":
		model, err := lookupModel(elem, models, "D")
		if err != nil {
			return nil, err
		}
		diode := device.NewDiode(elem.Name, elem.Nodes)
		diode.SetModelParameters(model.Params)
		return diode, nil

	case "S":
		model, err := lookupModel(elem, models, "SW")
		if err != nil {
			return nil, err
		}
		sw := device.NewSwitch(elem.Name, elem.Nodes)
		sw.SetModelParameters(model.Params)
		sw.SetInitialState(elem.Params["state"] == "on")
		return sw, nil

	case "M":
		model, err := lookupModel(elem, models, "NMOS", "PMOS")
		if err != nil {
			return nil, err
		}
		m := device.NewMosfet(elem.Name, elem.Nodes)
		m.SetModel(model)
		w, _, err := elem.FloatParam("w")
		if err != nil {
			return nil, err
		}
		l, _, err := elem.FloatParam("l")
		if err != nil {
			return nil, err
		}
		m.SetGeometry(w, l)
		return m, nil

	case "X":
		return nil, errors.Errorf("%s: subcircuit instance must be flattened", elem.Name)
	}

	return nil, errors.Errorf("unsupported element type: %s", elem.Type)
}
