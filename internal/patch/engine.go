package patch

import (
	"encoding/json"
	"fmt"

	"github.com/reelplan/reelplan/internal/asset"
	"github.com/reelplan/reelplan/internal/tree"
)

// Op is a patch operation verb.
type Op string

const (
	OpReplace Op = "replace"
	OpAdd     Op = "add"
	OpRemove  Op = "remove"
)

// Operation is one structured edit instruction. Operations are not persisted
// as entities; the applied list is recorded in the resulting version's
// provenance for audit.
type Operation struct {
	Path  string `json:"path"`
	Op    Op     `json:"op"`
	Value any    `json:"value,omitempty"`
}

// Apply applies ops to plan strictly in list order and returns the patched
// plan. Later operations see earlier operations' effects, so a dependent
// edit (drop a scene's ref, then remove the character) works in one call.
//
// Apply is atomic: any failure returns the error with plan untouched. The
// result is re-validated against the full Plan invariants before returning.
func Apply(plan *asset.Plan, ops []Operation) (*asset.Plan, error) {
	raw, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	root, err := tree.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	for i, op := range ops {
		segs, err := ParsePath(op.Path)
		if err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}

		var val tree.Value
		if op.Op == OpReplace || op.Op == OpAdd {
			val, err = tree.DecodeAny(op.Value)
			if err != nil {
				return nil, fmt.Errorf("patch %d (%s): %w", i, op.Path, err)
			}
		}

		root, err = applyOne(root, segs, op.Op, val, op.Path)
		if err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}

		// Referential integrity is checked after every removal so that
		// ordering within the list matters: dropping the scene ref first
		// legalizes removing the entity later in the same call.
		if op.Op == OpRemove {
			if err := checkReferences(root); err != nil {
				return nil, fmt.Errorf("patch %d (%s): %w", i, op.Path, err)
			}
		}
	}

	encoded, err := tree.Encode(root)
	if err != nil {
		return nil, fmt.Errorf("encode patched plan: %w", err)
	}
	var out asset.Plan
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, &asset.SchemaError{Kind: asset.KindPlan, Message: fmt.Sprintf("patched plan no longer decodes: %v", err)}
	}
	if err := asset.ValidatePlan(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// applyOne recurses along the accessor sequence and returns the (possibly
// replaced) container. Mutating through a returned container handles the
// sequence-splice case where removal changes the slice header.
func applyOne(v tree.Value, segs []Segment, op Op, val tree.Value, fullPath string) (tree.Value, error) {
	if len(segs) == 1 {
		return applyLeaf(v, segs[0], op, val, fullPath)
	}

	seg := segs[0]
	switch container := v.(type) {
	case tree.Object:
		if seg.Kind != SegmentKey {
			return nil, &InvalidPathError{Path: fullPath, Message: fmt.Sprintf("cannot index object with [%d]", seg.Index)}
		}
		child, ok := container[seg.Key]
		if !ok {
			return nil, &InvalidPathError{Path: fullPath, Message: fmt.Sprintf("segment %q does not exist", seg.Key)}
		}
		updated, err := applyOne(child, segs[1:], op, val, fullPath)
		if err != nil {
			return nil, err
		}
		container[seg.Key] = updated
		return container, nil

	case tree.Array:
		if seg.Kind != SegmentIndex {
			return nil, &InvalidPathError{Path: fullPath, Message: fmt.Sprintf("cannot key into sequence with %q", seg.Key)}
		}
		if seg.Index < 0 || seg.Index >= len(container) {
			return nil, &InvalidPathError{Path: fullPath, Message: fmt.Sprintf("index %d out of range (len %d)", seg.Index, len(container))}
		}
		updated, err := applyOne(container[seg.Index], segs[1:], op, val, fullPath)
		if err != nil {
			return nil, err
		}
		container[seg.Index] = updated
		return container, nil

	default:
		return nil, &InvalidPathError{Path: fullPath, Message: fmt.Sprintf("segment %s addresses a %s, not a container", seg, tree.KindOf(v))}
	}
}

func applyLeaf(v tree.Value, seg Segment, op Op, val tree.Value, fullPath string) (tree.Value, error) {
	switch container := v.(type) {
	case tree.Object:
		if seg.Kind != SegmentKey {
			return nil, &InvalidPathError{Path: fullPath, Message: fmt.Sprintf("cannot index object with [%d]", seg.Index)}
		}
		existing, exists := container[seg.Key]

		switch op {
		case OpReplace:
			if !exists {
				return nil, &InvalidPathError{Path: fullPath, Message: fmt.Sprintf("replace target %q does not exist", seg.Key)}
			}
			if err := checkShape(existing, val, fullPath); err != nil {
				return nil, err
			}
			container[seg.Key] = val
			return container, nil

		case OpAdd:
			if exists {
				// Adding to an existing sequence appends.
				if arr, ok := existing.(tree.Array); ok {
					container[seg.Key] = append(arr, val)
					return container, nil
				}
				return nil, &InvalidPathError{Path: fullPath, Message: fmt.Sprintf("add target %q already exists", seg.Key)}
			}
			container[seg.Key] = val
			return container, nil

		case OpRemove:
			if !exists {
				return nil, &InvalidPathError{Path: fullPath, Message: fmt.Sprintf("remove target %q does not exist", seg.Key)}
			}
			delete(container, seg.Key)
			return container, nil
		}
		return nil, &InvalidPathError{Path: fullPath, Message: fmt.Sprintf("unknown op %q", op)}

	case tree.Array:
		if seg.Kind != SegmentIndex {
			return nil, &InvalidPathError{Path: fullPath, Message: fmt.Sprintf("cannot key into sequence with %q", seg.Key)}
		}
		if seg.Index < 0 || seg.Index >= len(container) {
			return nil, &InvalidPathError{Path: fullPath, Message: fmt.Sprintf("index %d out of range (len %d)", seg.Index, len(container))}
		}

		switch op {
		case OpReplace:
			if err := checkShape(container[seg.Index], val, fullPath); err != nil {
				return nil, err
			}
			container[seg.Index] = val
			return container, nil

		case OpAdd:
			return nil, &InvalidPathError{Path: fullPath, Message: "add cannot target a sequence index; address the sequence itself to append"}

		case OpRemove:
			out := make(tree.Array, 0, len(container)-1)
			out = append(out, container[:seg.Index]...)
			out = append(out, container[seg.Index+1:]...)
			return out, nil
		}
		return nil, &InvalidPathError{Path: fullPath, Message: fmt.Sprintf("unknown op %q", op)}

	default:
		return nil, &InvalidPathError{Path: fullPath, Message: fmt.Sprintf("segment %s addresses a %s, not a container", seg, tree.KindOf(v))}
	}
}

// checkShape enforces that a replacement matches the variant of the value it
// replaces. A Null target accepts any shape, since optional fields decode as
// null before they are first set.
func checkShape(existing, replacement tree.Value, fullPath string) error {
	if _, isNull := existing.(tree.Null); isNull {
		return nil
	}
	if tree.KindOf(existing) != tree.KindOf(replacement) {
		return &InvalidPathError{
			Path:    fullPath,
			Message: fmt.Sprintf("replace value is %s, target is %s", tree.KindOf(replacement), tree.KindOf(existing)),
		}
	}
	return nil
}

// checkReferences walks the scene list and verifies every character and
// location ref still resolves against the plan's entity maps.
func checkReferences(root tree.Value) error {
	obj, ok := root.(tree.Object)
	if !ok {
		return nil
	}
	chars := objectKeys(obj["characters"])
	locs := objectKeys(obj["locations"])

	scenes, ok := obj["scenes"].(tree.Array)
	if !ok {
		return nil
	}
	for _, s := range scenes {
		scene, ok := s.(tree.Object)
		if !ok {
			continue
		}
		sceneID := ""
		if id, ok := scene["scene_id"].(tree.String); ok {
			sceneID = string(id)
		}
		for _, ref := range stringItems(scene["character_refs"]) {
			if !chars[ref] {
				return &DanglingReferenceError{SceneID: sceneID, RefKind: "character", EntityID: ref}
			}
		}
		for _, ref := range stringItems(scene["location_refs"]) {
			if !locs[ref] {
				return &DanglingReferenceError{SceneID: sceneID, RefKind: "location", EntityID: ref}
			}
		}
	}
	return nil
}

func objectKeys(v tree.Value) map[string]bool {
	out := make(map[string]bool)
	if obj, ok := v.(tree.Object); ok {
		for k := range obj {
			out[k] = true
		}
	}
	return out
}

func stringItems(v tree.Value) []string {
	arr, ok := v.(tree.Array)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, elem := range arr {
		if s, ok := elem.(tree.String); ok {
			out = append(out, string(s))
		}
	}
	return out
}
