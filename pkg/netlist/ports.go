package netlist

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

// Port lists may use bus notation: "pu_ctl[3:0]" expands to pu_ctl[3],
// pu_ctl[2], pu_ctl[1], pu_ctl[0] and "pd_ctlb[0:1]" to pd_ctlb[0],
// pd_ctlb[1]. A single index, "a[2]", names one bit.

type portList struct {
	Ports []*portSpec `parser:"@@*"`
}

type portSpec struct {
	Name string    `parser:"@Name"`
	Bus  *busRange `parser:"( '[' @@ ']' )?"`
}

type busRange struct {
	From int  `parser:"@Name"`
	To   *int `parser:"( ':' @Name )?"`
}

var (
	portLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Punct", Pattern: `[\[\]:]`},
		{Name: "Name", Pattern: `[^\s\[\]:]+`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	portParser = participle.MustBuild[portList](
		participle.Lexer(portLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
)

// BusBit formats the name of one bit of a bus.
func BusBit(base string, index int) string {
	return fmt.Sprintf("%s[%d]", base, index)
}

func (p *portSpec) expand() []string {
	if p.Bus == nil {
		return []string{p.Name}
	}
	if p.Bus.To == nil {
		return []string{BusBit(p.Name, p.Bus.From)}
	}

	from, to := p.Bus.From, *p.Bus.To
	step := 1
	if to < from {
		step = -1
	}
	names := make([]string, 0, abs(to-from)+1)
	for i := from; ; i += step {
		names = append(names, BusBit(p.Name, i))
		if i == to {
			break
		}
	}
	return names
}

// ExpandPorts expands bus notation in a list of port or node tokens.
func ExpandPorts(tokens ...string) ([]string, error) {
	src := strings.Join(tokens, " ")
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}

	list, err := portParser.ParseString("", src)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing port list %q", src)
	}

	var out []string
	for _, p := range list.Ports {
		if p.Bus != nil && (p.Bus.From < 0 || (p.Bus.To != nil && *p.Bus.To < 0)) {
			return nil, errors.Errorf("port %s: negative bus index", p.Name)
		}
		out = append(out, p.expand()...)
	}
	return out, nil
}

// SplitBusBit splits "name[i]" into its base name and index.
func SplitBusBit(port string) (base string, index int, ok bool) {
	if !strings.HasSuffix(port, "]") {
		return port, 0, false
	}
	list, err := portParser.ParseString("", port)
	if err != nil || len(list.Ports) != 1 {
		return port, 0, false
	}
	p := list.Ports[0]
	if p.Bus == nil || p.Bus.To != nil {
		return port, 0, false
	}
	return p.Name, p.Bus.From, true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
