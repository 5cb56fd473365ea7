package server

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/thadeucbr/mcp-tools/protocol"
	"github.com/thadeucbr/mcp-tools/schema"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Tool is a callable function exposed to clients.
type Tool struct {
	name          string
	description   string
	inputType     reflect.Type
	inputSchema   *schema.Schema
	validateInput bool
	annotations   *ToolAnnotations
	handler       reflect.Value
	hasContext    bool
}

// Name returns the tool name.
func (t *Tool) Name() string {
	return t.name
}

// ToolBuilder provides a fluent API for building tools. The first failure is
// kept and reported by Err; later calls become no-ops.
type ToolBuilder struct {
	tool   *Tool
	server *Server
	err    error
}

// Description sets the tool description.
func (b *ToolBuilder) Description(desc string) *ToolBuilder {
	b.tool.description = desc
	return b
}

// ValidateInput checks arguments against the generated schema before the
// handler runs. Violations are reported as invalid params.
func (b *ToolBuilder) ValidateInput() *ToolBuilder {
	b.tool.validateInput = true
	return b
}

// Handler sets the handler and registers the tool. Accepted signatures:
//
//	func(in T) (R, error)
//	func(ctx context.Context, in T) (R, error)
func (b *ToolBuilder) Handler(fn any) *ToolBuilder {
	if b.err != nil {
		return b
	}
	if err := b.bind(fn); err != nil {
		b.err = fmt.Errorf("tool %q: %w", b.tool.name, err)
		return b
	}
	b.server.registerTool(b.tool)
	return b
}

// Err reports why the tool could not be registered.
func (b *ToolBuilder) Err() error {
	return b.err
}

func (b *ToolBuilder) bind(fn any) error {
	if fn == nil {
		return fmt.Errorf("handler is nil")
	}
	fnType := reflect.TypeOf(fn)
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("handler must be a function, got %s", fnType.Kind())
	}

	inputIdx := 0
	switch fnType.NumIn() {
	case 1:
	case 2:
		if !fnType.In(0).Implements(contextType) {
			return fmt.Errorf("first parameter must be context.Context when using 2 parameters")
		}
		b.tool.hasContext = true
		inputIdx = 1
	default:
		return fmt.Errorf("handler must have 1 or 2 parameters, got %d", fnType.NumIn())
	}

	if fnType.NumOut() != 2 {
		return fmt.Errorf("handler must return (result, error), got %d return values", fnType.NumOut())
	}
	if !fnType.Out(1).Implements(errorType) {
		return fmt.Errorf("second return value must be error")
	}

	inputType := fnType.In(inputIdx)
	if inputType.Kind() == reflect.Ptr {
		return fmt.Errorf("input must be passed by value, got %s", inputType)
	}

	inputSchema, err := schema.GenerateFromType(inputType)
	if err != nil {
		return fmt.Errorf("generate input schema: %w", err)
	}

	b.tool.inputType = inputType
	b.tool.inputSchema = inputSchema
	b.tool.handler = reflect.ValueOf(fn)
	return nil
}

// Execute decodes input and runs the handler.
func (t *Tool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	if len(input) == 0 || string(input) == "null" {
		input = json.RawMessage(`{}`)
	}

	if t.validateInput {
		if err := t.inputSchema.Validate(input); err != nil {
			return nil, protocol.NewInvalidParams(fmt.Sprintf("input validation failed: %v", err))
		}
	}

	inputPtr := reflect.New(t.inputType)
	if err := json.Unmarshal(input, inputPtr.Interface()); err != nil {
		return nil, protocol.NewInvalidParams(fmt.Sprintf("failed to parse input: %v", err))
	}

	args := make([]reflect.Value, 0, 2)
	if t.hasContext {
		args = append(args, reflect.ValueOf(ctx))
	}
	args = append(args, inputPtr.Elem())

	results := t.handler.Call(args)
	if errVal := results[1].Interface(); errVal != nil {
		return nil, errVal.(error)
	}
	return results[0].Interface(), nil
}
