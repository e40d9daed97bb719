package settings

import (
	"sort"
	"strconv"
)

type ValueType string

const (
	TypeFloat ValueType = "float"
	TypeInt   ValueType = "int"
)

// Spec declares a generation config key's type and inclusive bounds.
type Spec struct {
	Type ValueType
	Min  float64
	Max  float64
}

// GenerationSchema is the closed set of generation config keys. Absent keys
// mean "use the model default".
var GenerationSchema = map[string]Spec{
	"temperature":       {Type: TypeFloat, Min: 0.0, Max: 2.0},
	"top_p":             {Type: TypeFloat, Min: 0.0, Max: 1.0},
	"top_k":             {Type: TypeInt, Min: 1, Max: 100},
	"max_output_tokens": {Type: TypeInt, Min: 1, Max: 65536},
	"presence_penalty":  {Type: TypeFloat, Min: -2.0, Max: 2.0},
	"frequency_penalty": {Type: TypeFloat, Min: -2.0, Max: 2.0},
}

// SchemaKeys returns the schema's keys in sorted order.
func SchemaKeys() []string {
	keys := make([]string, 0, len(GenerationSchema))
	for k := range GenerationSchema {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GenerationConfig holds a conversation's sparse generation parameters. Nil
// fields are unset.
type GenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	TopK             *int     `json:"top_k,omitempty"`
	MaxOutputTokens  *int     `json:"max_output_tokens,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
}

// IsEmpty reports whether no key is set.
func (g *GenerationConfig) IsEmpty() bool {
	return g == nil || (g.Temperature == nil && g.TopP == nil && g.TopK == nil &&
		g.MaxOutputTokens == nil && g.PresencePenalty == nil && g.FrequencyPenalty == nil)
}

// Values returns the set keys and their values.
func (g *GenerationConfig) Values() map[string]any {
	values := map[string]any{}
	if g == nil {
		return values
	}
	if g.Temperature != nil {
		values["temperature"] = *g.Temperature
	}
	if g.TopP != nil {
		values["top_p"] = *g.TopP
	}
	if g.TopK != nil {
		values["top_k"] = *g.TopK
	}
	if g.MaxOutputTokens != nil {
		values["max_output_tokens"] = *g.MaxOutputTokens
	}
	if g.PresencePenalty != nil {
		values["presence_penalty"] = *g.PresencePenalty
	}
	if g.FrequencyPenalty != nil {
		values["frequency_penalty"] = *g.FrequencyPenalty
	}
	return values
}

// Set validates raw against the key's schema (type coercion, then inclusive
// bounds) and assigns it.
func (g *GenerationConfig) Set(key, raw string) error {
	spec, ok := GenerationSchema[key]
	if !ok {
		return &KeyError{Key: key, ValidKeys: SchemaKeys()}
	}

	var floatValue float64
	var intValue int
	switch spec.Type {
	case TypeFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return &TypeError{Key: key, Value: raw, Want: spec.Type}
		}
		floatValue = v
	case TypeInt:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return &TypeError{Key: key, Value: raw, Want: spec.Type}
		}
		intValue = v
		floatValue = float64(v)
	}

	if floatValue < spec.Min || floatValue > spec.Max {
		return &RangeError{Key: key, Value: floatValue, Min: spec.Min, Max: spec.Max}
	}

	switch key {
	case "temperature":
		g.Temperature = &floatValue
	case "top_p":
		g.TopP = &floatValue
	case "top_k":
		g.TopK = &intValue
	case "max_output_tokens":
		g.MaxOutputTokens = &intValue
	case "presence_penalty":
		g.PresencePenalty = &floatValue
	case "frequency_penalty":
		g.FrequencyPenalty = &floatValue
	}
	return nil
}

// Reset clears one key. Unknown keys are rejected.
func (g *GenerationConfig) Reset(key string) error {
	switch key {
	case "temperature":
		g.Temperature = nil
	case "top_p":
		g.TopP = nil
	case "top_k":
		g.TopK = nil
	case "max_output_tokens":
		g.MaxOutputTokens = nil
	case "presence_penalty":
		g.PresencePenalty = nil
	case "frequency_penalty":
		g.FrequencyPenalty = nil
	default:
		return &KeyError{Key: key, ValidKeys: SchemaKeys()}
	}
	return nil
}
