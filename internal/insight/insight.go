// Package insight produces the AI commentary on spending habits and keeps
// the latest result.
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"brokeometer/internal/core"
	"brokeometer/internal/storage"
)

const (
	// FallbackText is returned whenever generation fails.
	FallbackText = "My brain is as broke as we are. Refresh in a bit, bestie."
	// EmptyText replaces an empty model answer.
	EmptyText = "Something went wrong."
)

// Generator turns the expense log and budget into commentary. It never
// fails: problems are reported through the returned text.
type Generator interface {
	Generate(ctx context.Context, expenses []core.Expense, b core.UserBudget, period string) string
}

// StaticGenerator always answers with the same text. Used when no model is
// configured.
type StaticGenerator string

func (g StaticGenerator) Generate(context.Context, []core.Expense, core.UserBudget, string) string {
	return string(g)
}

// Result is the persisted latest insight.
type Result struct {
	Text        string    `json:"text"`
	Period      string    `json:"period"`
	GeneratedAt time.Time `json:"generated_at"`
}

type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Sections splits markdown on "###" headers. The first line of each chunk is
// the title; blank chunks are dropped.
func Sections(text string) []Section {
	var out []Section
	for _, chunk := range strings.Split(text, "###") {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		title, body, _ := strings.Cut(chunk, "\n")
		out = append(out, Section{
			Title: strings.TrimSpace(title),
			Body:  strings.TrimSpace(body),
		})
	}
	return out
}

// SaveResult overwrites the stored insight.
func SaveResult(ctx context.Context, store storage.RecordStore, r Result) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal insight: %w", err)
	}
	if err := store.Put(ctx, storage.KeyInsight, body); err != nil {
		return fmt.Errorf("save insight: %w", err)
	}
	return nil
}

// LatestResult returns the stored insight, or storage.ErrNotFound.
func LatestResult(ctx context.Context, store storage.RecordStore) (Result, error) {
	body, err := store.Get(ctx, storage.KeyInsight)
	if err != nil {
		return Result{}, err
	}
	var r Result
	if err := json.Unmarshal(body, &r); err != nil {
		return Result{}, errors.Join(storage.ErrNotFound, fmt.Errorf("decode insight: %w", err))
	}
	return r, nil
}
