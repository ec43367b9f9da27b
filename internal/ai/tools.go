package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-pos-ledger/internal/services"

	"github.com/google/generative-ai-go/genai"
	"github.com/shopspring/decimal"
)

// --- DEFINE TOOLS ---
var tools = []*genai.Tool{
	{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "check_inventory",
				Description: "Get the full inventory list. Use this to find ANY product details like ID, Name, SKU, Price, Cost, or Stock.",
			},
			{
				Name:        "update_product_price",
				Description: "Update the selling price of a specific product using its ID",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"product_id": {Type: genai.TypeInteger, Description: "ID of the product"},
						"new_price":  {Type: genai.TypeNumber, Description: "New selling price"},
					},
					Required: []string{"product_id", "new_price"},
				},
			},
			{
				Name:        "create_product",
				Description: "Add a new product to the inventory",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":       {Type: genai.TypeString, Description: "Name of the product"},
						"price_sell": {Type: genai.TypeNumber, Description: "Selling price"},
						"price_buy":  {Type: genai.TypeNumber, Description: "Buying (cost) price"},
						"category":   {Type: genai.TypeString, Description: "Category (Accessories, Parts, etc)"},
						"stock":      {Type: genai.TypeInteger, Description: "Initial stock count"},
					},
					Required: []string{"name", "price_sell", "category", "stock"},
				},
			},
			{
				Name:        "get_sales_report",
				Description: "Get revenue, profit and order count for a date range, both days included.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
						"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
					},
					Required: []string{"start_date", "end_date"},
				},
			},
			{
				Name:        "get_dashboard",
				Description: "Get today's revenue and order count, all-time net profit and the number of low-stock products.",
			},
			{
				Name:        "get_top_selling",
				Description: "Get the best selling products from recent sales.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"limit": {Type: genai.TypeInteger, Description: "How many products to return (default 5)"},
					},
				},
			},
		},
	},
}

// simpleProduct is the slimmed product view the model reads.
type simpleProduct struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Category string `json:"category"`
	Stock    int    `json:"stock"`
	Price    string `json:"price"`
	Cost     string `json:"cost"`
}

// ExecuteTool runs one model-issued call and returns the payload sent back.
// Failures are reported to the model as {"error": ...} rather than aborting.
func (a *Agent) ExecuteTool(ctx context.Context, call genai.FunctionCall) map[string]any {
	out, err := a.executeTool(ctx, call)
	if err != nil {
		a.log.WithError(err).WithField("tool", call.Name).Warn("assistant tool failed")
		return map[string]any{"error": err.Error()}
	}
	return out
}

func (a *Agent) executeTool(ctx context.Context, call genai.FunctionCall) (map[string]any, error) {
	args := call.Args
	switch call.Name {
	case "check_inventory":
		products, err := a.inventory.List(ctx)
		if err != nil {
			return nil, err
		}
		list := make([]simpleProduct, 0, len(products))
		for _, p := range products {
			list = append(list, simpleProduct{
				ID:       p.ID,
				Name:     p.Name,
				SKU:      p.SKU,
				Category: p.Category,
				Stock:    p.Stock,
				Price:    p.PriceSell.String(),
				Cost:     p.PriceBuy.String(),
			})
		}
		return plain("inventory", list)

	case "update_product_price":
		id, err := numberArg(args, "product_id")
		if err != nil {
			return nil, err
		}
		price, err := numberArg(args, "new_price")
		if err != nil {
			return nil, err
		}
		if err := a.inventory.UpdatePrice(ctx, uint(id), decimal.NewFromFloat(price)); err != nil {
			return nil, err
		}
		return map[string]any{"status": "Success", "new_price": price}, nil

	case "create_product":
		name, err := stringArg(args, "name")
		if err != nil {
			return nil, err
		}
		priceSell, err := numberArg(args, "price_sell")
		if err != nil {
			return nil, err
		}
		stock, err := numberArg(args, "stock")
		if err != nil {
			return nil, err
		}
		category, _ := stringArg(args, "category")
		priceBuy, _ := numberArg(args, "price_buy")

		p, err := a.inventory.Create(ctx, services.ProductInput{
			Name:      name,
			Category:  category,
			PriceSell: decimal.NewFromFloat(priceSell),
			PriceBuy:  decimal.NewFromFloat(priceBuy),
			Stock:     int(stock),
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"status": "created", "id": p.ID, "sku": p.SKU}, nil

	case "get_sales_report":
		loc := a.reports.Location()
		startStr, err := stringArg(args, "start_date")
		if err != nil {
			return nil, err
		}
		endStr, err := stringArg(args, "end_date")
		if err != nil {
			return nil, err
		}
		start, err1 := time.ParseInLocation("2006-01-02", startStr, loc)
		end, err2 := time.ParseInLocation("2006-01-02", endStr, loc)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("dates must be in YYYY-MM-DD format")
		}

		// end_date is inclusive
		report, err := a.reports.SalesReport(ctx, start, end.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"revenue":     report.TotalRevenue.String(),
			"profit":      report.TotalProfit.String(),
			"sales_count": report.TotalCount,
		}, nil

	case "get_dashboard":
		stats, err := a.reports.DashboardStats(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"today_revenue":   stats.TotalRevenue.String(),
			"today_orders":    stats.TotalOrders,
			"net_profit":      stats.NetProfit.String(),
			"low_stock_count": stats.LowStockCount,
		}, nil

	case "get_top_selling":
		limit, _ := numberArg(args, "limit")
		top, err := a.reports.TopSellingProducts(ctx, int(limit))
		if err != nil {
			return nil, err
		}
		return plain("top_selling", top)

	default:
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}
}

// plain converts v to the map/slice/scalar shapes a FunctionResponse can carry.
func plain(key string, v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return map[string]any{key: decoded}, nil
}

func numberArg(args map[string]any, key string) (float64, error) {
	switch v := args[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case nil:
		return 0, fmt.Errorf("missing argument %s", key)
	default:
		return 0, fmt.Errorf("argument %s must be a number", key)
	}
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing argument %s", key)
	}
	return v, nil
}
