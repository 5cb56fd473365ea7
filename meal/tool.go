package meal

import (
	"context"

	"github.com/thadeucbr/mcp-tools/server"
)

// ToolName is the registered name of the ledger tool.
const ToolName = "meal_register"

// RegisterTools registers the meal_register tool on srv.
func RegisterTools(srv *server.Server, ledger *Ledger) error {
	return srv.Tool(ToolName).
		Description("Record and query meals. operation=create needs userId and mealData " +
			"{mealType, description, calories, carbs?, protein?, fat?, date?}; read and daily_summary " +
			"need userId and cover today; update needs mealId and any subset of mealData; delete needs mealId. " +
			"Responds with {success, data}.").
		Title("Meal register").
		Destructive().
		Handler(func(ctx context.Context, req Request) (Envelope, error) {
			return ledger.Dispatch(ctx, req), nil
		}).
		Err()
}
