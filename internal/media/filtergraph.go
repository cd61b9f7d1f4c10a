package media

import (
	"fmt"
	"strings"
)

// Pad is a labeled filter graph pad, e.g. "0:v" or "vx1".
type Pad string

// Ref returns the bracketed form used in filter_complex expressions and
// -map arguments.
func (p Pad) Ref() string {
	return "[" + string(p) + "]"
}

// InputVideo is the video pad of the nth -i input.
func InputVideo(n int) Pad {
	return Pad(fmt.Sprintf("%d:v", n))
}

// InputAudio is the audio pad of the nth -i input.
func InputAudio(n int) Pad {
	return Pad(fmt.Sprintf("%d:a", n))
}

type filterNode struct {
	inputs  []Pad
	filter  string
	outputs []Pad
}

// Graph is a typed ffmpeg filter_complex graph. Nodes are appended via the
// Add* methods and serialized exactly once into the ffmpeg expression
// syntax; no intermediate stringly-typed state leaks out.
type Graph struct {
	nodes    []filterNode
	videoOut Pad
	audioOut Pad
}

// NewGraph creates an empty filter graph.
func NewGraph() *Graph {
	return &Graph{}
}

// AddXFade appends a video crossfade between two pads, active for duration
// seconds starting at offset seconds into the first input's timeline.
func (g *Graph) AddXFade(a, b, out Pad, transition string, duration, offset float64) {
	g.nodes = append(g.nodes, filterNode{
		inputs:  []Pad{a, b},
		filter:  fmt.Sprintf("xfade=transition=%s:duration=%.3f:offset=%.3f", transition, duration, offset),
		outputs: []Pad{out},
	})
	g.videoOut = out
}

// AddACrossfade appends an audio crossfade between two pads.
func (g *Graph) AddACrossfade(a, b, out Pad, duration float64) {
	g.nodes = append(g.nodes, filterNode{
		inputs:  []Pad{a, b},
		filter:  fmt.Sprintf("acrossfade=d=%.3f", duration),
		outputs: []Pad{out},
	})
	g.audioOut = out
}

// AddConcat appends a concat filter joining n segments, each contributing
// one video and one audio stream. Input pads must alternate v,a per segment.
func (g *Graph) AddConcat(inputs []Pad, outV, outA Pad, n int) {
	g.nodes = append(g.nodes, filterNode{
		inputs:  inputs,
		filter:  fmt.Sprintf("concat=n=%d:v=1:a=1", n),
		outputs: []Pad{outV, outA},
	})
	g.videoOut = outV
	g.audioOut = outA
}

// VideoOut is the final video output pad of the graph.
func (g *Graph) VideoOut() Pad {
	return g.videoOut
}

// AudioOut is the final audio output pad of the graph.
func (g *Graph) AudioOut() Pad {
	return g.audioOut
}

// Serialize renders the graph into ffmpeg filter_complex syntax.
func (g *Graph) Serialize() string {
	parts := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		var sb strings.Builder
		for _, in := range node.inputs {
			sb.WriteString(in.Ref())
		}
		sb.WriteString(node.filter)
		for _, out := range node.outputs {
			sb.WriteString(out.Ref())
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, ";")
}

// BuildCrossfadeGraph builds the chained xfade/acrossfade graph for n
// segments with the given per-segment durations. Each transition overlaps
// adjacent segments, so every xfade offset is the accumulated content so
// far minus one transition length per boundary crossed:
//
//	offset_0 = d_0 - T
//	offset_i = offset_{i-1} + d_i - T
//
// Total output duration is sum(d) - (n-1)*T.
func BuildCrossfadeGraph(durations []float64, transitionDur float64) (*Graph, error) {
	n := len(durations)
	if n < 2 {
		return nil, fmt.Errorf("crossfade requires at least 2 segments, got %d", n)
	}

	for i, d := range durations {
		if transitionDur >= d {
			return nil, fmt.Errorf("transition duration %.3fs is not shorter than segment %d (%.3fs)", transitionDur, i, d)
		}
	}

	g := NewGraph()

	// Video chain
	prev := InputVideo(0)
	offset := durations[0] - transitionDur
	for i := 1; i < n; i++ {
		out := Pad(fmt.Sprintf("vx%d", i))
		g.AddXFade(prev, InputVideo(i), out, "fade", transitionDur, offset)
		offset += durations[i] - transitionDur
		prev = out
	}

	// Audio chain
	prevA := InputAudio(0)
	for i := 1; i < n; i++ {
		out := Pad(fmt.Sprintf("ax%d", i))
		g.AddACrossfade(prevA, InputAudio(i), out, transitionDur)
		prevA = out
	}

	return g, nil
}

// CrossfadeDuration is the expected output duration of a crossfade chain.
func CrossfadeDuration(durations []float64, transitionDur float64) float64 {
	var total float64
	for _, d := range durations {
		total += d
	}
	return total - float64(len(durations)-1)*transitionDur
}
