// Copyright (C) 2024 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// gwdump inspects graph streams: it prints stream headers and decodes
// stream contents for debugging. Decoding is limited to what a bare engine
// knows; streams naming application types need those types registered in
// the reading process and will not fully decode here.
package main

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/graphwire/graphwire/core/data/vle"
	"github.com/graphwire/graphwire/framework/graph"
	"github.com/graphwire/graphwire/framework/wire"
)

func main() {
	app := cli.NewApp()
	app.Name = "gwdump"
	app.Usage = "inspect graph wire format streams"
	app.Commands = []cli.Command{
		{
			Name:      "header",
			Usage:     "print a stream's header",
			ArgsUsage: "<stream>",
			Action:    header,
		},
		{
			Name:      "dump",
			Usage:     "decode a stream and print its object graph",
			ArgsUsage: "<stream>",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "manifest",
					Usage: "YAML engine manifest to apply before decoding",
				},
				cli.IntFlag{
					Name:  "depth",
					Usage: "maximum nesting depth to print, 0 for no limit",
				},
			},
			Action: dump,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func open(ctx *cli.Context) (*os.File, error) {
	if ctx.NArg() != 1 {
		return nil, errors.New("expected exactly one stream file")
	}
	return os.Open(ctx.Args().First())
}

func header(ctx *cli.Context) error {
	f, err := open(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	r := vle.Reader(f)
	h := wire.ReadHeader(r)
	if err := r.Error(); err != nil {
		return errors.Wrap(err, "reading header")
	}
	fmt.Printf("protocol: %d.%d\n", h.Major, h.Minor)
	fmt.Printf("runtime:  %d.%d\n", h.Runtime.Major, h.Runtime.Minor)
	return nil
}

func dump(ctx *cli.Context) error {
	f, err := open(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	e := graph.NewEngine()
	if path := ctx.String("manifest"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "reading manifest")
		}
		if err := graph.ApplyManifest(e, data); err != nil {
			return err
		}
	}

	value, err := e.Deserialize(f)
	if err != nil {
		return errors.Wrap(err, "decoding stream")
	}

	printer := spew.ConfigState{Indent: "  ", MaxDepth: ctx.Int("depth")}
	printer.Dump(value)
	return nil
}
