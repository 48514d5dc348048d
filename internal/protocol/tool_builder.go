package protocol

import "strings"

// Parameter primitive type names used by the fluent ToolBuilder API.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// ToolBuilder provides a fluent API for building a meta-tool's JSON Schema.
// It is used only for spike's own synthetic tools (toolset control, the
// agent loop's none today) — tools discovered from upstreams carry their
// schema forward untouched and byte-exact.
type ToolBuilder struct {
	name         string
	description  string
	params       []paramDef
	outputParams []paramDef
}

type paramDef struct {
	name        string
	paramType   string
	description string
	required    bool
	properties  map[string]*paramDef
	itemSchema  *paramDef
}

// Parameter is a single input or output field for NewTool.
type Parameter interface {
	apply(b *paramBuilder)
	toParamDef() paramDef
}

// Option customizes a Parameter, currently only Required().
type Option interface {
	isRequired() bool
}

type requiredOption struct{}

func (requiredOption) isRequired() bool { return true }

// Required marks a parameter as required in the generated schema.
func Required() Option { return requiredOption{} }

func processOptions(options []Option) bool {
	for _, opt := range options {
		if opt.isRequired() {
			return true
		}
	}
	return false
}

type paramBuilder struct {
	params       []paramDef
	outputParams []paramDef
}

type parameterBase struct {
	name        string
	description string
	required    bool
}

type simpleParam struct {
	parameterBase
	kind string
}

func (p *simpleParam) toParamDef() paramDef {
	return paramDef{name: p.name, paramType: p.kind, description: p.description, required: p.required}
}

func (p *simpleParam) apply(b *paramBuilder) { b.params = append(b.params, p.toParamDef()) }

func newSimple(kind, name, description string, options []Option) Parameter {
	return &simpleParam{
		parameterBase: parameterBase{name: name, description: description, required: processOptions(options)},
		kind:          kind,
	}
}

func String(name, description string, options ...Option) Parameter {
	return newSimple(TypeString, name, description, options)
}

func Number(name, description string, options ...Option) Parameter {
	return newSimple(TypeNumber, name, description, options)
}

func Boolean(name, description string, options ...Option) Parameter {
	return newSimple(TypeBoolean, name, description, options)
}

func StringArray(name, description string, options ...Option) Parameter {
	return newSimple("array:string", name, description, options)
}

type objectParam struct {
	parameterBase
	properties []Parameter
}

func (o *objectParam) toParamDef() paramDef {
	props := make(map[string]*paramDef, len(o.properties))
	for _, p := range o.properties {
		def := p.toParamDef()
		props[def.name] = &def
	}
	return paramDef{name: o.name, paramType: TypeObject, description: o.description, required: o.required, properties: props}
}

func (o *objectParam) apply(b *paramBuilder) { b.params = append(b.params, o.toParamDef()) }

// Object creates an object parameter. Pass Required() among properties to
// mark the object itself required; an empty properties list yields a
// generic open object (additionalProperties: true).
func Object(name, description string, propertiesAndOptions ...interface{}) Parameter {
	var properties []Parameter
	required := false
	for _, item := range propertiesAndOptions {
		switch v := item.(type) {
		case Parameter:
			properties = append(properties, v)
		case Option:
			if v.isRequired() {
				required = true
			}
		}
	}
	return &objectParam{
		parameterBase: parameterBase{name: name, description: description, required: required},
		properties:    properties,
	}
}

type outputParam struct{ parameters []Parameter }

func (o *outputParam) toParamDef() paramDef { return paramDef{} }
func (o *outputParam) apply(b *paramBuilder) {
	for _, p := range o.parameters {
		b.outputParams = append(b.outputParams, p.toParamDef())
	}
}

// Output wraps parameters that describe a tool's structured output schema.
func Output(parameters ...Parameter) Parameter {
	return &outputParam{parameters: parameters}
}

// NewTool builds a ToolBuilder declaratively from Parameter values.
func NewTool(name, description string, parameters ...Parameter) *ToolBuilder {
	b := &paramBuilder{}
	for _, p := range parameters {
		p.apply(b)
	}
	return &ToolBuilder{name: name, description: description, params: b.params, outputParams: b.outputParams}
}

func (t *ToolBuilder) Name() string { return t.name }

// Description normalizes whitespace: newlines/tabs become spaces, runs
// of whitespace collapse to one space.
func (t *ToolBuilder) Description() string {
	desc := strings.ReplaceAll(t.description, "\n", " ")
	desc = strings.ReplaceAll(desc, "\t", " ")
	return strings.Join(strings.Fields(desc), " ")
}

func (t *ToolBuilder) BuildSchema() map[string]interface{} {
	return t.buildSchemaFromParams(t.params)
}

func (t *ToolBuilder) BuildOutputSchema() map[string]interface{} {
	if len(t.outputParams) == 0 {
		return nil
	}
	return t.buildSchemaFromParams(t.outputParams)
}

func (t *ToolBuilder) buildSchemaFromParams(params []paramDef) map[string]interface{} {
	properties := make(map[string]interface{}, len(params))
	var required []string
	for _, param := range params {
		prop := t.buildParamSchema(&param)
		if param.description != "" {
			prop["description"] = param.description
		}
		properties[param.name] = prop
		if param.required {
			required = append(required, param.name)
		}
	}
	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (t *ToolBuilder) buildParamSchema(param *paramDef) map[string]interface{} {
	switch {
	case strings.HasPrefix(param.paramType, "array:"):
		itemType := strings.TrimPrefix(param.paramType, "array:")
		var itemSchema map[string]interface{}
		if itemType == TypeObject && param.itemSchema != nil {
			itemSchema = t.buildObjectSchema(param.itemSchema)
		} else {
			itemSchema = map[string]interface{}{"type": itemType}
		}
		return map[string]interface{}{"type": "array", "items": itemSchema}
	case param.paramType == TypeObject:
		return t.buildObjectSchema(param)
	default:
		return map[string]interface{}{"type": param.paramType}
	}
}

func (t *ToolBuilder) buildObjectSchema(param *paramDef) map[string]interface{} {
	if len(param.properties) == 0 {
		return map[string]interface{}{"type": "object", "additionalProperties": true}
	}
	properties := make(map[string]interface{}, len(param.properties))
	var required []string
	for name, def := range param.properties {
		prop := t.buildParamSchema(def)
		if def.description != "" {
			prop["description"] = def.description
		}
		properties[name] = prop
		if def.required {
			required = append(required, name)
		}
	}
	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ToTool converts the builder into the wire Tool shape.
func (t *ToolBuilder) ToTool() Tool {
	tool := Tool{Name: t.name, Description: t.Description(), InputSchema: t.BuildSchema()}
	if out := t.BuildOutputSchema(); out != nil {
		tool.OutputSchema = out
	}
	return tool
}
