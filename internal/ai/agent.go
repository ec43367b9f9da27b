package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pos-ledger/internal/database"
	"go-pos-ledger/internal/models"
	"go-pos-ledger/internal/services"

	"github.com/google/generative-ai-go/genai"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const (
	defaultModel = "gemini-2.0-flash-001"
	// maxToolRounds bounds how many tool calls one question may chain.
	maxToolRounds = 5
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("assistant is not configured")

// Inventory is the product surface the assistant may read and change.
type Inventory interface {
	List(ctx context.Context) ([]models.Product, error)
	Create(ctx context.Context, in services.ProductInput) (*models.Product, error)
	UpdatePrice(ctx context.Context, id uint, price decimal.Decimal) error
}

// Reports is the read-only analytics surface the assistant may query.
type Reports interface {
	SalesReport(ctx context.Context, start, end time.Time) (*database.SalesReportResult, error)
	DashboardStats(ctx context.Context) (*services.DashboardStats, error)
	TopSellingProducts(ctx context.Context, limit int) ([]services.ProductSales, error)
	Location() *time.Location
}

// Agent answers shop questions with Gemini, calling back into the services
// for inventory and sales data.
type Agent struct {
	apiKey    string
	model     string
	inventory Inventory
	reports   Reports
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewAgent(apiKey string, inventory Inventory, reports Reports, log logrus.FieldLogger) *Agent {
	return &Agent{
		apiKey:    apiKey,
		model:     defaultModel,
		inventory: inventory,
		reports:   reports,
		log:       log.WithField("module", "ai"),
		now:       time.Now,
	}
}

func (a *Agent) Enabled() bool {
	return a.apiKey != ""
}

// Ask runs one question through the model, executing tool calls until the
// model answers in text or the round limit is hit.
func (a *Agent) Ask(ctx context.Context, userMessage string) (string, error) {
	if !a.Enabled() {
		return "", ErrDisabled
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel(a.model)
	model.Tools = tools

	// --- 1. INTELLIGENCE: Rules for the model ---
	today := a.now().In(a.reports.Location()).Format("2006-01-02")
	systemPrompt := fmt.Sprintf(`SYSTEM: Today is %s. You are a POS assistant for a small retail and repair shop.

	RULES:
	1. UPDATE: If a user asks to update a product by NAME, do NOT ask them for the ID. Instead:
	   - Call 'check_inventory' to find the ID.
	   - Call 'update_product_price' using that ID.

	2. READ: For PRICE, COST, STOCK or DETAILS of a product, call 'check_inventory' and read the JSON.

	3. SALES: For revenue or profit over dates use 'get_sales_report'. For today use 'get_dashboard'.
	   For best sellers use 'get_top_selling'.

	USER: %s`, today, userMessage)

	session := model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(systemPrompt))
	if err != nil {
		return "", err
	}

	// --- 2. HANDLE TOOL CALLS ---
	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			return printResponse(resp), nil
		}

		replies := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			a.log.WithField("tool", call.Name).Info("🤖 assistant called tool")
			replies = append(replies, genai.FunctionResponse{
				Name:     call.Name,
				Response: a.ExecuteTool(ctx, call),
			})
		}

		resp, err = session.SendMessage(ctx, replies...)
		if err != nil {
			return "", err
		}
	}

	a.log.Warn("assistant hit the tool round limit")
	return printResponse(resp), nil
}

// --- HELPER FUNCTIONS ---

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if call, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func printResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "I completed the action."
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I completed the action."
}
