package meal

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/thadeucbr/mcp-tools/schema"
)

// Record is one logged meal.
type Record struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	MealType    string    `json:"mealType"`
	Description string    `json:"description"`
	Calories    float64   `json:"calories"`
	Carbs       float64   `json:"carbs"`
	Protein     float64   `json:"protein"`
	Fat         float64   `json:"fat"`
	ConsumedAt  time.Time `json:"consumedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Opt is a JSON field that remembers whether it was present. A missing key
// and an explicit null both leave Set false; any other value, including a
// zero value, sets it.
type Opt[T any] struct {
	Value T
	Set   bool
}

// Some returns a present Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Set: true}
}

// Get returns the value and whether it was present.
func (o Opt[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// Or returns the value if present and fallback otherwise.
func (o Opt[T]) Or(fallback T) T {
	if o.Set {
		return o.Value
	}
	return fallback
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// JSONSchema describes Opt[T] as T.
func (Opt[T]) JSONSchema() *schema.Schema {
	s, err := schema.GenerateFromType(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return &schema.Schema{}
	}
	return s
}

// MealData carries the meal fields of a create or update request.
type MealData struct {
	MealType    Opt[string]  `json:"mealType" jsonschema:"description=Meal category such as breakfast or lunch"`
	Description Opt[string]  `json:"description" jsonschema:"description=What was eaten"`
	Calories    Opt[float64] `json:"calories" jsonschema:"description=Energy in kcal,minimum=0"`
	Carbs       Opt[float64] `json:"carbs" jsonschema:"description=Carbohydrates in grams,minimum=0"`
	Protein     Opt[float64] `json:"protein" jsonschema:"description=Protein in grams,minimum=0"`
	Fat         Opt[float64] `json:"fat" jsonschema:"description=Fat in grams,minimum=0"`
	Date        Opt[string]  `json:"date" jsonschema:"description=When the meal was eaten (RFC 3339 or YYYY-MM-DD); defaults to now"`
}

// Changes is a sparse update. Unset fields are left untouched.
type Changes struct {
	MealType    Opt[string]
	Description Opt[string]
	Calories    Opt[float64]
	Carbs       Opt[float64]
	Protein     Opt[float64]
	Fat         Opt[float64]
	UpdatedAt   time.Time
}

// Totals are the summed nutrients of a day.
type Totals struct {
	TotalCalories float64 `json:"totalCalories"`
	TotalCarbs    float64 `json:"totalCarbs"`
	TotalProtein  float64 `json:"totalProtein"`
	TotalFat      float64 `json:"totalFat"`
	MealCount     int     `json:"mealCount"`
}

// Summary is the daily_summary payload.
type Summary struct {
	Date   string   `json:"date"`
	Totals Totals   `json:"totals"`
	Meals  []Record `json:"meals"`
}

// UpdateResult is the update payload.
type UpdateResult struct {
	ModifiedCount int64 `json:"modifiedCount"`
}

// DeleteResult is the delete payload.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}
