// Package shaper implements the payload shaper: pure, recursive tree
// transforms (delete, add, rename) applied to an outbound request body in
// delete→add→rename order before it is sent upstream.
package shaper

// Delete returns a fresh copy of tree with every map entry whose key
// appears in names recursively removed, at every nesting level. Scalars
// are returned unchanged. An empty names set is the identity transform.
func Delete(tree any, names []string) any {
	if len(names) == 0 {
		return deepCopy(tree)
	}
	nameSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		nameSet[n] = struct{}{}
	}
	return deleteRec(tree, nameSet)
}

func deleteRec(node any, names map[string]struct{}) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			if _, excluded := names[k]; excluded {
				continue
			}
			out[k] = deleteRec(val, names)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, el := range v {
			out[i] = deleteRec(el, names)
		}
		return out
	default:
		return v
	}
}

// Add returns a fresh copy of tree where every map node (at any nesting
// level, including maps nested inside arrays) gains each (k, v) in
// additions that it does not already contain. Existing keys always win;
// Add never overwrites a present key, even one whose value is nil or the
// zero value.
func Add(tree any, additions map[string]any) any {
	if len(additions) == 0 {
		return deepCopy(tree)
	}
	return addRec(tree, additions)
}

func addRec(node any, additions map[string]any) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v)+len(additions))
		for k, val := range v {
			out[k] = addRec(val, additions)
		}
		for k, val := range additions {
			if _, present := out[k]; !present {
				out[k] = deepCopy(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, el := range v {
			out[i] = addRec(el, additions)
		}
		return out
	default:
		return v
	}
}

// Rename returns a fresh copy of tree where every map key present in
// renames is substituted with its mapped name, at every nesting level.
// A nil or empty renames map is the identity transform.
func Rename(tree any, renames map[string]string) any {
	if len(renames) == 0 {
		return deepCopy(tree)
	}
	return renameRec(tree, renames)
}

func renameRec(node any, renames map[string]string) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			newKey := k
			if mapped, ok := renames[k]; ok {
				newKey = mapped
			}
			out[newKey] = renameRec(val, renames)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, el := range v {
			out[i] = renameRec(el, renames)
		}
		return out
	default:
		return v
	}
}

// Shape applies the three transforms in the mandated delete→add→rename
// order, producing the outbound payload for one backend descriptor.
func Shape(tree any, keyDelete []string, keyAdd map[string]any, keyRename map[string]string) any {
	tree = Delete(tree, keyDelete)
	tree = Add(tree, keyAdd)
	tree = Rename(tree, keyRename)
	return tree
}

func deepCopy(node any) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, el := range v {
			out[i] = deepCopy(el)
		}
		return out
	default:
		return v
	}
}
