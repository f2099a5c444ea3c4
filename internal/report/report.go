// Package report renders the experiment plan as a Graphviz DOT file.
// Vertices are colored by execution status, with completed vertices
// shaded by their speedup over the scalar baseline.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/template"

	"github.com/pkg/errors"
	colors "gopkg.in/go-playground/colors.v1"

	"github.com/seqbench/seqbench/internal/engine"
	"github.com/seqbench/seqbench/internal/store"
)

const maxRGB = 240

// Draw writes the plan graph as DOT to path. Graphviz turns the file
// into the SVG referenced by the run output.
func Draw(plan *engine.Plan, path string) error {
	var buf bytes.Buffer
	if err := Render(plan, &buf); err != nil {
		return errors.Wrapf(err, "unable to render plan to %s", path)
	}

	return errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644), "unable to write %s", path)
}

// Render writes the DOT description of the plan.
func Render(plan *engine.Plan, w io.Writer) error {
	desc := description{
		GraphType:    "digraph",
		EdgeOperator: "->",
		Attributes: map[string]string{
			"rankdir": "LR",
		},
	}

	adjacency, err := plan.Graph.AdjacencyMap()
	if err != nil {
		return errors.Wrap(err, "unable to read plan adjacency")
	}

	ids := make([]string, 0, len(adjacency))
	for id := range adjacency {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		exp, _, err := plan.Graph.VertexWithProperties(id)
		if err != nil {
			return errors.Wrapf(err, "unable to get vertex %s", id)
		}

		attrs := map[string]string{
			"shape":     "box",
			"style":     "filled",
			"fillcolor": vertexColor(plan, id),
			"label":     vertexLabel(plan, id, exp),
		}
		desc.Statements = append(desc.Statements, statement{Source: id, SourceAttributes: attrs})

		targets := make([]string, 0, len(adjacency[id]))
		for target := range adjacency[id] {
			targets = append(targets, target)
		}
		sort.Strings(targets)
		for _, target := range targets {
			desc.Statements = append(desc.Statements, statement{Source: id, Target: target})
		}
	}

	return renderDOT(w, desc)
}

func vertexLabel(plan *engine.Plan, id string, exp engine.Experiment) string {
	label := fmt.Sprintf("%s\\n%s %s %s", id, exp.Operation, exp.Backend, exp.ScaleName)
	if speedup, ok := plan.Store.Attribute(id, store.AttrSpeedup); ok {
		label += "\\n" + speedup + "x"
	}

	return label
}

// vertexColor maps status to a fill color. Completed experiments fade
// from white to green as their speedup grows, capped at 8x.
func vertexColor(plan *engine.Plan, id string) string {
	status, _ := plan.Store.Attribute(id, store.AttrStatus)
	switch status {
	case store.StatusFailed:
		red, err := colors.RGB(maxRGB, 64, 64)
		if err != nil {
			return "red"
		}

		return red.ToHEX().String()
	case store.StatusCompleted:
		ratio := 0.0
		if raw, ok := plan.Store.Attribute(id, store.AttrSpeedup); ok {
			if speedup, err := strconv.ParseFloat(raw, 64); err == nil {
				ratio = (speedup - 1) / 7
			}
		}
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}
		level := uint8(maxRGB - ratio*float64(maxRGB-96))
		green, err := colors.RGB(level, maxRGB, level)
		if err != nil {
			return "green"
		}

		return green.ToHEX().String()
	case store.StatusRunning:
		return "lightblue"
	case store.StatusSkipped:
		return "lightyellow"
	default:
		return "white"
	}
}

const dotTemplate = `strict {{.GraphType}} {
	{{range $k, $v := .Attributes}}
		{{$k}}="{{$v}}";
	{{end}}
	{{range $s := .Statements}}
		"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}"{{else}}[ {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}} ]{{end}};
	{{end}}
	}
	`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           string
	Target           string
	SourceAttributes map[string]string
}

func renderDOT(w io.Writer, d description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "failed to parse template")
	}

	return errors.Wrap(tpl.Execute(w, d), "failed to render template")
}
