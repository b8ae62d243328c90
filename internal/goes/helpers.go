// Copyright © 2015-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package goes

import (
	"fmt"
	"strings"

	"github.com/platinasystems/pciqbus/lang"
)

type maner interface {
	Man() lang.Alt
}

var section = struct {
	name, synopsis lang.Alt
}{
	name: lang.Alt{
		lang.EnUS: "NAME",
	},
	synopsis: lang.Alt{
		lang.EnUS: "SYNOPSIS",
	},
}

func Usage(v interface{ Usage() string }) string {
	return fmt.Sprint("usage:\t", strings.TrimSpace(v.Usage()))
}

func (g *Goes) Usage() string {
	usage := g.USAGE
	if len(usage) == 0 {
		usage = fmt.Sprint(g.NAME, ` COMMAND [ARGS]...
	`, g.NAME, ` COMMAND -{h|apropos|man}
	`, g.NAME, ` {apropos|help|man|usage} [COMMAND]`)
	}
	return usage
}

func (g *Goes) Apropos() lang.Alt {
	apropos := g.APROPOS
	if apropos == nil {
		apropos = lang.Alt{
			lang.EnUS: "PCI-QBUS bridge tools",
		}
	}
	return apropos
}

func (g *Goes) Man() lang.Alt {
	man := g.MAN
	if man == nil {
		man = lang.Alt{
			lang.EnUS: `
SEE ALSO
	` + g.NAME + ` apropos [COMMAND], ` + g.NAME + ` man COMMAND`,
		}
	}
	return man
}

func (g *Goes) apropos(args ...string) error {
	if len(args) == 0 {
		args = g.Names()
	}
	for i, name := range args {
		v, found := g.ByName[name]
		if !found {
			if i == 0 {
				return fmt.Errorf("%s: not found", name)
			}
			continue
		}
		fmt.Printf("%-16s%s\n", name, v.Apropos())
	}
	return nil
}

func (g *Goes) help(args ...string) error {
	if len(args) == 0 {
		fmt.Println(Usage(g))
		return g.apropos()
	}
	return g.usage(args...)
}

func (g *Goes) usage(args ...string) error {
	var u interface{ Usage() string } = g
	if len(args) > 0 {
		v, found := g.ByName[args[0]]
		if !found {
			return fmt.Errorf("%s: not found", args[0])
		}
		u = v
	}
	fmt.Println(Usage(u))
	return nil
}

func (g *Goes) man(args ...string) error {
	type page interface {
		Apropos() lang.Alt
		String() string
		Usage() string
	}
	var pages []page
	for i, arg := range args {
		v := g.ByName[arg]
		if v == nil {
			if i == 0 {
				return fmt.Errorf("%s: not found", arg)
			}
			break
		}
		pages = append(pages, v)
	}
	if len(pages) == 0 {
		pages = []page{g}
	}
	for i, v := range pages {
		if i > 0 {
			fmt.Println()
		}
		fmt.Print(section.name, "\n\t", v, " - ",
			v.Apropos(), "\n\n", section.synopsis, "\n\t",
			strings.TrimSpace(v.Usage()), "\n")
		if method, found := v.(maner); found {
			man := method.Man().String()
			if !strings.HasPrefix(man, "\n") {
				fmt.Println()
			}
			fmt.Print(man)
			if !strings.HasSuffix(man, "\n") {
				fmt.Println()
			}
		}
	}
	return nil
}
