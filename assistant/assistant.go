// Package assistant answers free-text questions about the ledger through an
// LLM. It never fails: problems degrade to a fixed apology.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tool_custody/config"
	"tool_custody/models"
)

const contextLimit = 50

const (
	MsgNoAPIKey     = "عذراً، مفتاح API غير متوفر. يرجى إضافته في الإعدادات."
	MsgEmptyAnswer  = "لم أتمكن من تحليل البيانات حالياً."
	MsgProviderDown = "حدث خطأ أثناء الاتصال بالمساعد الذكي."
)

// Generator sends a context block and the user's question to a model.
type Generator interface {
	Generate(ctx context.Context, background, query string) (string, error)
}

type Reporter struct {
	gen      Generator
	language string
}

// NewReporter accepts a nil Generator, meaning no API key is configured.
func NewReporter(gen Generator, language string) *Reporter {
	if language == "" {
		language = "Arabic"
	}
	return &Reporter{gen: gen, language: language}
}

func (r *Reporter) Report(ctx context.Context, txs []models.Transaction, query string) string {
	if r.gen == nil {
		return MsgNoAPIKey
	}
	background, err := BuildContext(txs, r.language)
	if err != nil {
		config.Error("assistant context: %v", err)
		return MsgProviderDown
	}
	answer, err := r.gen.Generate(ctx, background, query)
	if err != nil {
		config.Error("assistant generate: %v", err)
		return MsgProviderDown
	}
	if strings.TrimSpace(answer) == "" {
		return MsgEmptyAnswer
	}
	return answer
}

type contextEntry struct {
	Item     string `json:"item"`
	Trainer  string `json:"trainer"`
	Out      string `json:"out"`
	Returned string `json:"returned"`
}

// BuildContext summarises the active-loan count and the most recent
// transactions in checkout order.
func BuildContext(txs []models.Transaction, language string) (string, error) {
	active := 0
	for _, t := range txs {
		if t.IsActive {
			active++
		}
	}
	recent := txs
	if len(recent) > contextLimit {
		recent = recent[len(recent)-contextLimit:]
	}
	entries := make([]contextEntry, 0, len(recent))
	for _, t := range recent {
		e := contextEntry{
			Item:     t.ItemName,
			Trainer:  t.TrainerName,
			Out:      t.CheckoutTime.UTC().Format(time.RFC3339),
			Returned: "Not yet",
		}
		if t.ReturnTime != nil {
			e.Returned = t.ReturnTime.UTC().Format(time.RFC3339)
		}
		entries = append(entries, e)
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("You are the assistant of a training department's tool warehouse.\n\n")
	sb.WriteString("Current data:\n")
	fmt.Fprintf(&sb, "- Active loans (not yet returned): %d\n", active)
	fmt.Fprintf(&sb, "- Latest transactions: %s\n\n", b)
	fmt.Fprintf(&sb, "Answer the user's question from this data in %s. Be brief and useful.", language)
	return sb.String(), nil
}
