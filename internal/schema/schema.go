package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/reelplan/reelplan/internal/asset"
)

//go:embed assets.cue
var assetsCUE string

// Validator checks one raw payload. A nil return means the payload conforms.
// The alias matches the store's injected validator signature.
type Validator = func(payload []byte) error

var definitionForKind = map[asset.Kind]string{
	asset.KindScript:   "#Script",
	asset.KindPlan:     "#Plan",
	asset.KindShotPlan: "#ShotPlan",
	asset.KindImage:    "#Image",
}

var (
	compileOnce sync.Once
	compiled    map[asset.Kind]cue.Value
	compileErr  error
)

func compile() {
	ctx := cuecontext.New()
	root := ctx.CompileString(assetsCUE)
	if err := root.Err(); err != nil {
		compileErr = fmt.Errorf("compile asset schemas: %w", err)
		return
	}

	compiled = make(map[asset.Kind]cue.Value, len(definitionForKind))
	for kind, def := range definitionForKind {
		v := root.LookupPath(cue.ParsePath(def))
		if !v.Exists() {
			compileErr = fmt.Errorf("schema definition %s not found", def)
			return
		}
		compiled[kind] = v
	}
}

// Validators builds the per-kind validator set injected into the store.
// Schemas compile once per process; compile failure is a programmer error
// surfaced on first use.
func Validators() (map[asset.Kind]Validator, error) {
	compileOnce.Do(compile)
	if compileErr != nil {
		return nil, compileErr
	}

	out := make(map[asset.Kind]Validator, len(compiled))
	for kind, schemaVal := range compiled {
		kind, schemaVal := kind, schemaVal
		out[kind] = func(payload []byte) error {
			if err := cuejson.Validate(payload, schemaVal); err != nil {
				return &asset.SchemaError{Kind: kind, Message: err.Error()}
			}
			return nil
		}
	}
	return out, nil
}

// Validate checks one payload of the given kind against its schema.
func Validate(kind asset.Kind, payload []byte) error {
	vs, err := Validators()
	if err != nil {
		return err
	}
	v, ok := vs[kind]
	if !ok {
		return fmt.Errorf("no schema registered for kind %q", kind)
	}
	return v(payload)
}
