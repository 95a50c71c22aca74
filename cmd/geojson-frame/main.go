package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"mapworkbench/internal/frame"
	"mapworkbench/internal/geo"
)

type options struct {
	in, out  string
	kind     string
	bounds   geo.Bounds
	rotation float64
}

func main() {
	var o options
	flag.StringVar(&o.in, "in", "", "Input GeoJSON file")
	flag.StringVar(&o.out, "out", "", "Output GeoJSON file (default stdout)")
	flag.StringVar(&o.kind, "kind", "auto", "Coordinate system of the input: auto, wgs84 or local")
	flag.Float64Var(&o.bounds.South, "south", 0, "South edge of the target rectangle")
	flag.Float64Var(&o.bounds.West, "west", 0, "West edge of the target rectangle")
	flag.Float64Var(&o.bounds.North, "north", 0, "North edge of the target rectangle")
	flag.Float64Var(&o.bounds.East, "east", 0, "East edge of the target rectangle")
	flag.Float64Var(&o.rotation, "rotation", 0, "Clockwise rotation in degrees")
	flag.Parse()

	if o.in == "" {
		log.Fatal("No input file specified. Use -in")
	}

	data, err := os.ReadFile(o.in)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", o.in, err)
	}

	out, summary, err := run(data, o)
	if err != nil {
		log.Fatal(err)
	}
	log.Println(summary)

	if o.out == "" {
		os.Stdout.Write(out)
		return
	}
	if err := os.WriteFile(o.out, out, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", o.out, err)
	}
	log.Printf("Wrote %s", o.out)
}

// run imports data and, for local-XY input, renders it into the requested
// rectangle. A zero rectangle keeps the default frame.
func run(data []byte, o options) ([]byte, string, error) {
	kind, err := frame.ParseKind(o.kind)
	if err != nil {
		return nil, "", err
	}
	res, err := frame.Import(data, kind)
	if err != nil {
		return nil, "", err
	}

	if res.Frame == nil {
		out, err := res.Collection.MarshalJSON()
		if err != nil {
			return nil, "", err
		}
		return out, fmt.Sprintf("Input is %s (detected %s), %d features passed through",
			res.Kind, res.Detected, len(res.Collection.Features)), nil
	}

	if o.bounds != (geo.Bounds{}) {
		b := geo.NewBounds(o.bounds.South, o.bounds.West, o.bounds.North, o.bounds.East)
		if err := b.Validate(); err != nil {
			return nil, "", err
		}
		res.Frame.Bounds = b
	}
	res.Frame.Rotation = geo.NormalizeDegrees(o.rotation)

	fc := res.Frame.Render()
	out, err := fc.MarshalJSON()
	if err != nil {
		return nil, "", err
	}
	return out, fmt.Sprintf("Placed %d local features into %+v rotated %v°",
		len(fc.Features), res.Frame.Bounds, res.Frame.Rotation), nil
}
