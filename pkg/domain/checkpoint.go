package domain

import (
	"fmt"
	"maps"
	"sort"
)

// PipeCheckpoint maps condition ids to their last recorded value.
type PipeCheckpoint map[string]any

// Document is the whole checkpoint document: pipe id -> PipeCheckpoint.
// A pipe missing from the document has never run.
type Document map[string]PipeCheckpoint

// Pipe returns a copy of the slice recorded for id, or an empty slice.
func (d Document) Pipe(id string) PipeCheckpoint {
	cp, ok := d[id]
	if !ok {
		return PipeCheckpoint{}
	}
	return cp.Clone()
}

// Has reports whether anything was recorded for the pipe.
func (d Document) Has(id string) bool {
	_, ok := d[id]
	return ok
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for id, cp := range d {
		out[id] = cp.Clone()
	}
	return out
}

// PipeIDs returns the recorded pipe ids in sorted order.
func (d Document) PipeIDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ToMap converts the document into plain maps for encoders.
func (d Document) ToMap() map[string]any {
	out := make(map[string]any, len(d))
	for id, cp := range d {
		out[id] = map[string]any(cp.Clone())
	}
	return out
}

// Clone returns a deep copy of the pipe checkpoint.
func (c PipeCheckpoint) Clone() PipeCheckpoint {
	if c == nil {
		return nil
	}
	out := make(PipeCheckpoint, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

// DocumentFromMap converts a decoded YAML/JSON mapping into a Document.
// A nil pipe entry is kept as an empty slice.
func DocumentFromMap(raw map[string]any) (Document, error) {
	doc := make(Document, len(raw))
	for id, v := range raw {
		switch typed := v.(type) {
		case nil:
			doc[id] = PipeCheckpoint{}
		case map[string]any:
			doc[id] = PipeCheckpoint(typed).Clone()
		case PipeCheckpoint:
			doc[id] = typed.Clone()
		case map[any]any:
			cp := make(PipeCheckpoint, len(typed))
			for k, val := range typed {
				cp[fmt.Sprint(k)] = cloneValue(val)
			}
			doc[id] = cp
		default:
			return nil, fmt.Errorf("checkpoint for pipe %q: expected mapping, got %T", id, v)
		}
	}
	return doc, nil
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[k] = cloneValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[fmt.Sprint(k)] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = cloneValue(val)
		}
		return out
	case PipeCheckpoint:
		return typed.Clone()
	case map[string]string:
		return maps.Clone(typed)
	default:
		return v
	}
}
