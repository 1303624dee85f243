// Package assist extracts transactions from documents the statement parsers
// cannot read, typically scans, by sending them to a generative AI model.
//
// Sending a document is only done with the user's explicit consent: the
// document leaves the machine.
package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	importer "github.com/etnz/pcs-import"
	"github.com/etnz/pcs-import/statement"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Gemini is the only supported provider.
const Gemini = "gemini"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrUnsupportedProvider is returned for a provider other than Gemini.
var ErrUnsupportedProvider = errors.New("unsupported assisted extraction provider")

// Generator generates content, it is implemented by genai.Models.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewClient returns the generator for cfg.
func NewClient(ctx context.Context, cfg importer.ProviderConfig) (Generator, error) {
	if !strings.EqualFold(cfg.Provider, Gemini) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key for provider %s", cfg.Provider)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create %s client: %w", cfg.Provider, err)
	}
	return client.Models, nil
}

// Extractor asks a model to extract the transactions of a PDF document.
type Extractor struct {
	gen     Generator
	model   string
	limiter *rate.Limiter
	logger  *log.Logger
}

// New returns an extractor using model, sending at most requestsPerMinute
// documents per minute. Zero or less means unlimited.
func New(gen Generator, model string, requestsPerMinute int, logger *log.Logger) *Extractor {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.Default()
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &Extractor{gen: gen, model: model, limiter: rate.NewLimiter(limit, 1), logger: logger}
}

const prompt = `You are reading a bank or broker statement.
Extract every transaction and answer with a single JSON object:

{
  "institution": "name of the bank or broker",
  "transactions": [
    {
      "date": "YYYY-MM-DD",
      "type": "one of Buy, Sell, Dividend, Interest, Deposit, Withdrawal, Fee, TaxRefund, TransferIn, TransferOut, Unknown",
      "security": "security name, empty for cash movements",
      "isin": "ISIN if printed",
      "wkn": "WKN if printed",
      "shares": "number of shares, empty for cash movements",
      "gross": "gross amount, positive",
      "fee": "fees, positive",
      "tax": "taxes, positive",
      "net": "amount booked on the account, positive",
      "currency": "ISO 4217 code"
    }
  ]
}

Amounts are written with a '.' decimal separator and no thousands separator.
Do not invent transactions. Use "Unknown" when the type is unclear.`

// Extract sends the document at path to the model. consent must be true,
// otherwise nothing is sent and importer.ErrConsentRequired is returned.
func (e *Extractor) Extract(ctx context.Context, path string, consent bool) (*statement.Statement, error) {
	if !consent {
		return nil, importer.ErrConsentRequired
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read document: %w", err)
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	e.logger.Printf("sending %q to %s for assisted extraction", importer.DisplayName(path), e.model)
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, "application/pdf"),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	resp, err := e.gen.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return nil, fmt.Errorf("assisted extraction failed: %w", err)
	}
	return Decode(resp.Text())
}

// Decode reads the JSON answer of the model.
func Decode(answer string) (*statement.Statement, error) {
	answer = strings.TrimSpace(answer)
	answer = strings.TrimPrefix(answer, "```json")
	answer = strings.TrimSuffix(strings.TrimPrefix(answer, "```"), "```")

	var doc any
	if err := json.Unmarshal([]byte(answer), &doc); err != nil {
		return nil, fmt.Errorf("invalid answer from the model: %w", err)
	}

	s := &statement.Statement{}
	if v, err := lookup("$.institution", doc); err == nil {
		s.Institution, _ = v.(string)
	}
	if s.Institution == "" {
		s.Institution = "Unknown institution"
	}
	v, err := lookup("$.transactions", doc)
	if err != nil {
		return nil, fmt.Errorf("no transactions in the answer: %w", err)
	}
	rows, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("transactions is a %T, not a list", v)
	}
	for i, r := range rows {
		obj, ok := r.(map[string]any)
		if !ok {
			s.Warnings = append(s.Warnings, fmt.Sprintf("transaction %d: not an object", i+1))
			continue
		}
		tx, warnings, err := decodeTransaction(obj)
		for _, w := range warnings {
			s.Warnings = append(s.Warnings, fmt.Sprintf("transaction %d: %s", i+1, w))
		}
		if err != nil {
			s.Warnings = append(s.Warnings, fmt.Sprintf("transaction %d skipped: %v", i+1, err))
			continue
		}
		s.Transactions = append(s.Transactions, tx)
	}
	if len(s.Transactions) == 0 {
		return nil, errors.New("the model found no transaction in the document")
	}
	return s, nil
}
