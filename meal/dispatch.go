package meal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/thadeucbr/mcp-tools/middleware"
	"github.com/thadeucbr/mcp-tools/schema"
)

// Operation selects a ledger operation.
type Operation int

const (
	OpUnknown Operation = iota
	OpCreate
	OpRead
	OpUpdate
	OpDelete
	OpDailySummary
)

var operationNames = map[Operation]string{
	OpCreate:       "create",
	OpRead:         "read",
	OpUpdate:       "update",
	OpDelete:       "delete",
	OpDailySummary: "daily_summary",
}

// ParseOperation maps a wire name to an Operation. Unknown names map to
// OpUnknown.
func ParseOperation(name string) Operation {
	for op, n := range operationNames {
		if n == name {
			return op
		}
	}
	return OpUnknown
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements json.Marshaler.
func (o Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON implements json.Unmarshaler. Any string is accepted.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("operation must be a string: %w", err)
	}
	*o = ParseOperation(name)
	return nil
}

// JSONSchema describes Operation as a string enum.
func (Operation) JSONSchema() *schema.Schema {
	return &schema.Schema{
		Type: "string",
		Enum: []any{"create", "read", "update", "delete", "daily_summary"},
	}
}

// Request is the meal_register tool input. Decoding never fails: a
// malformed request is kept and reported through the envelope.
type Request struct {
	Operation Operation `json:"operation" jsonschema:"required,description=create | read | update | delete | daily_summary"`
	UserID    string    `json:"userId,omitempty" jsonschema:"description=Owner of the meals; required for create/read/daily_summary and optional ownership check for update/delete"`
	MealID    string    `json:"mealId,omitempty" jsonschema:"description=Meal id for update and delete"`
	MealData  *MealData `json:"mealData,omitempty" jsonschema:"description=Meal fields for create and update"`

	rawOperation string
	decodeErr    error
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	var p plain
	err := json.Unmarshal(data, &p)

	var raw struct {
		Operation any `json:"operation"`
	}
	_ = json.Unmarshal(data, &raw)

	*r = Request(p)
	r.rawOperation = fmt.Sprint(raw.Operation)
	if raw.Operation == nil {
		r.rawOperation = ""
	}
	if err != nil {
		r.decodeErr = err
	}
	return nil
}

func (r Request) mealData() MealData {
	if r.MealData == nil {
		return MealData{}
	}
	return *r.MealData
}

// Envelope is the uniform tool response. Data holds the payload on success
// and the error message on failure.
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// Dispatch runs req and wraps the outcome in an Envelope. It never returns
// an error; every failure becomes Success false.
func (l *Ledger) Dispatch(ctx context.Context, req Request) Envelope {
	data, err := l.dispatch(ctx, req)
	if err != nil {
		fields := []middleware.Field{
			middleware.F("operation", req.Operation.String()),
			middleware.F("kind", KindOf(err).String()),
			middleware.F("error", err.Error()),
		}
		if KindOf(err) == KindStore {
			l.logger.Error("meal operation failed", fields...)
		} else {
			l.logger.Debug("meal operation rejected", fields...)
		}
		return Envelope{Success: false, Data: err.Error()}
	}
	return Envelope{Success: true, Data: data}
}

func (l *Ledger) dispatch(ctx context.Context, req Request) (any, error) {
	if req.decodeErr != nil {
		return nil, invalidf("decode", "malformed request: %v", req.decodeErr)
	}

	switch req.Operation {
	case OpCreate:
		return l.Create(ctx, req.UserID, req.mealData())
	case OpRead:
		return l.ReadToday(ctx, req.UserID)
	case OpUpdate:
		return l.Update(ctx, req.MealID, req.UserID, req.mealData())
	case OpDelete:
		return l.Delete(ctx, req.MealID, req.UserID)
	case OpDailySummary:
		return l.DailySummary(ctx, req.UserID)
	case OpUnknown:
		if req.rawOperation == "" {
			return nil, invalidf("dispatch", "operation is required")
		}
		return nil, &Error{Kind: KindUnsupported, Op: "dispatch", Err: fmt.Errorf("unsupported operation %q", req.rawOperation)}
	}
	return nil, &Error{Kind: KindUnsupported, Op: "dispatch", Err: fmt.Errorf("unhandled operation %v", req.Operation)}
}
