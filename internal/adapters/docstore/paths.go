package docstore

import (
	"encoding/json"
	"fmt"
)

// normalize deep-copies data into plain JSON values.
func normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	wrapped, err := normalize(map[string]any{"v": v})
	if err != nil {
		return nil, err
	}
	return wrapped["v"], nil
}

// applyFields applies writes to data in place. Intermediate objects are
// created as needed; a non-object in the way is replaced.
func applyFields(data map[string]any, writes []FieldWrite) error {
	for _, w := range writes {
		if len(w.Path) == 0 {
			return ErrInvalidPath
		}
		for _, p := range w.Path {
			if p == "" {
				return fmt.Errorf("%w: empty segment in %v", ErrInvalidPath, w.Path)
			}
		}
		if w.Delete {
			deletePath(data, w.Path)
			continue
		}
		v, err := normalizeValue(w.Value)
		if err != nil {
			return err
		}
		setPath(data, w.Path, v)
	}
	return nil
}

func setPath(data map[string]any, path []string, v any) {
	cur := data
	for _, p := range path[:len(path)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = v
}

func deletePath(data map[string]any, path []string) {
	cur := data
	for _, p := range path[:len(path)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, path[len(path)-1])
}

// lookupPath returns the value at path.
func lookupPath(data map[string]any, path []string) (any, bool) {
	var cur any = data
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// deepMerge merges src into dst; nested objects merge, everything else
// is replaced.
func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		sm, srcIsMap := v.(map[string]any)
		dm, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			deepMerge(dm, sm)
			continue
		}
		dst[k] = v
	}
}
