package decision

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// outputSchema generates the JSON schema for a decision's output struct,
// used to constrain the model's structured-output request so its response
// can be unmarshaled directly into v's type without a second parsing pass.
func outputSchema(v any) (string, error) {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		r.ExpandedStruct = true
	}

	schema := r.Reflect(v)
	if schema == nil {
		return "", fmt.Errorf("reflect schema for %T", v)
	}
	schema.Version = ""

	raw, err := schema.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal schema for %T: %w", v, err)
	}
	return string(raw), nil
}

// decodeOutput unmarshals a model's raw JSON response into dst, returning
// a descriptive error on malformed output so callers can route to
// DecisionFallback.
func decodeOutput(raw string, dst any) error {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}
