package stream

import "strings"

// Tags holds the literal markers that delimit a suppressed region.
type Tags struct {
	Open  string
	Close string
}

// DefaultTags are the reasoning markers emitted by thinking models.
var DefaultTags = Tags{Open: "<think>", Close: "</think>"}

// State is the filter position carried between fragments of one stream.
type State struct {
	InsideSuppressedRegion bool
}

// Process returns the part of fragment that lies outside any suppressed region
// together with the state to use for the next fragment.
//
// Markers are located with a plain substring search inside the fragment, so a
// marker whose characters are split across two fragments is not recognised.
func (t Tags) Process(fragment string, st State) (string, State) {
	if fragment == "" {
		return "", st
	}
	if t.Open == "" || t.Close == "" {
		t = DefaultTags
	}

	var out strings.Builder
	rest := fragment

	for rest != "" {
		if !st.InsideSuppressedRegion {
			start := strings.Index(rest, t.Open)
			if start == -1 {
				out.WriteString(rest)
				break
			}
			out.WriteString(rest[:start])
			st.InsideSuppressedRegion = true
			rest = rest[start+len(t.Open):]
			continue
		}

		end := strings.Index(rest, t.Close)
		if end == -1 {
			break
		}
		st.InsideSuppressedRegion = false
		rest = rest[end+len(t.Close):]
	}

	return out.String(), st
}

// Filter owns the state of a single stream.
// A new Filter must be created for every stream.
type Filter struct {
	tags  Tags
	state State
}

func NewFilter(tags Tags) *Filter {
	return &Filter{tags: tags}
}

// Write feeds the next fragment and returns its visible part.
func (f *Filter) Write(fragment string) string {
	var out string
	out, f.state = f.tags.Process(fragment, f.state)
	return out
}

// Inside reports whether the stream is currently inside a suppressed region.
func (f *Filter) Inside() bool {
	return f.state.InsideSuppressedRegion
}
