package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// envelopeSchema describes every ajax.php response.
const envelopeSchema = `{
  "type": "object",
  "required": ["status"],
  "properties": {
    "status": {"enum": ["success", "failure"]},
    "error": {"type": "string"}
  },
  "if": {"properties": {"status": {"const": "success"}}},
  "then": {"required": ["response"]},
  "else": {"required": ["error"]}
}`

var (
	envelopeOnce     sync.Once
	envelopeCompiled *jsonschema.Schema
	envelopeErr      error
)

func compiledEnvelope() (*jsonschema.Schema, error) {
	envelopeOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("envelope.json", bytes.NewReader([]byte(envelopeSchema))); err != nil {
			envelopeErr = fmt.Errorf("add schema: %w", err)
			return
		}
		envelopeCompiled, envelopeErr = compiler.Compile("envelope.json")
		if envelopeErr != nil {
			envelopeErr = fmt.Errorf("compile schema: %w", envelopeErr)
		}
	})
	return envelopeCompiled, envelopeErr
}

// envelope is the decoded, validated response wrapper.
type envelope struct {
	Status   string
	Error    string
	Response any
}

// decodeEnvelope validates raw against the envelope schema and unescapes
// every string in the response payload.
func decodeEnvelope(raw []byte) (envelope, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return envelope{}, fmt.Errorf("decode response: %w", err)
	}
	schema, err := compiledEnvelope()
	if err != nil {
		return envelope{}, err
	}
	if err := schema.Validate(doc); err != nil {
		return envelope{}, fmt.Errorf("response does not match envelope: %w", err)
	}
	obj := doc.(map[string]any)
	env := envelope{Status: obj["status"].(string)}
	if msg, ok := obj["error"].(string); ok {
		env.Error = msg
	}
	env.Response = unescapeJSON(obj["response"])
	return env, nil
}

// unescapeJSON replaces HTML entities in every string of a decoded JSON value.
func unescapeJSON(value any) any {
	switch v := value.(type) {
	case string:
		return html.UnescapeString(v)
	case map[string]any:
		for k, item := range v {
			v[k] = unescapeJSON(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = unescapeJSON(item)
		}
		return v
	default:
		return value
	}
}

// decodeInto re-encodes a generic payload into a typed target.
func decodeInto(payload any, target any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
