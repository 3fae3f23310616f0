package netlist

import (
	"strings"

	"github.com/pkg/errors"
)

const maxDepth = 16

// HierSep joins instance names to the names inside them: Xdut.Rpu0,
// Xdut.n3.
const HierSep = "."

// Flatten expands every X instance of the top level, recursively, into
// primitive elements. Internal nodes and element names are prefixed with
// the instance path; ground stays global.
func (n *NetlistData) Flatten() ([]Element, error) {
	return n.flatten(n.Elements, "", nil, 0)
}

func isGlobal(node string) bool {
	return node == "0" || strings.EqualFold(node, "gnd")
}

func (n *NetlistData) flatten(elements []Element, prefix string, portMap map[string]string, depth int) ([]Element, error) {
	if depth > maxDepth {
		return nil, errors.Errorf("subckt nesting deeper than %d at %q", maxDepth, prefix)
	}

	mapNode := func(node string) string {
		if isGlobal(node) {
			return node
		}
		if actual, ok := portMap[node]; ok {
			return actual
		}
		return prefix + node
	}

	var out []Element
	for _, elem := range elements {
		nodes := make([]string, len(elem.Nodes))
		for i, node := range elem.Nodes {
			nodes[i] = mapNode(node)
		}

		if elem.Type != "X" {
			flat := elem
			flat.Name = prefix + elem.Name
			flat.Nodes = nodes
			out = append(out, flat)
			continue
		}

		name := elem.Params["subckt"]
		sub, ok := n.Subckts[strings.ToLower(name)]
		if !ok {
			return nil, errors.Errorf("instance %s: unknown subckt %s", prefix+elem.Name, name)
		}
		if len(nodes) != len(sub.Ports) {
			return nil, errors.Errorf("instance %s: %d nodes for %d ports of %s",
				prefix+elem.Name, len(nodes), len(sub.Ports), sub.Name)
		}

		inner := make(map[string]string, len(sub.Ports))
		for i, port := range sub.Ports {
			inner[port] = nodes[i]
		}

		expanded, err := n.flatten(sub.Elements, prefix+elem.Name+HierSep, inner, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}

	return out, nil
}
