package insight

import (
	"bytes"
	"encoding/json"
	"strconv"
	"text/template"

	"brokeometer/internal/core"
)

var promptTemplate = template.Must(template.New("prompt").Parse(`
You are the AI mascot of "broke-o-meter", a witty, self-aware, and roasting budget assistant for students.

PERSONA:
- You are a supportive but sassy best friend.
- If the user buys the same thing (like "ice cream", "coffee", "momos") more than twice, ROAST THEM HARD.
- Ask them if they are depressed or just irresponsible.
- Use phrases like "eating our feelings", "delusional spending", or "main character energy".
- NEVER use emojis. Use sharp, funny words instead.

DATA PROVIDED:
- Month: {{.Period}}
- Total Budget: {{.Symbol}}{{.Limit}}
- Total Spent: {{.Symbol}}{{.Spent}}
- Remaining: {{.Symbol}}{{.Remaining}}
- Transaction History (Notes & Counts): {{.Notes}}
- Category Data: {{.Categories}}

TASKS:
1. THE READ: Roast the user based on repetitive items in transaction notes. If they have "ice cream" 3 times, mention the 3rd ice cream specifically.
2. THE DAMAGE: Comment on their remaining {{.Symbol}}{{.Remaining}}. If it is below {{.Symbol}}1000, show mild panic.
3. BROKE SURVIVAL GUIDE: Give 3 funny tips for surviving on zero money.
4. MONETARY SYMBOL: Always use {{.Symbol}}.

OUTPUT FORMAT:
Return exactly these Markdown headers:
{{range .Headers}}
### {{.Title}}
({{.Hint}})
{{end}}
`))

type header struct {
	Title string
	Hint  string
}

// headers are the sections the model is asked to produce, in order.
var headers = []header{
	{"THE READ", "The roast goes here. Be specific about their items."},
	{"THE DAMAGE", "Analyze the budget status."},
	{"BROKE STUDENT SURVIVAL GUIDE", "3 funny student tips"},
	{"A FINAL WORD OF ENCOURAGEMENT", "One last witty supportive line"},
}

type promptData struct {
	Period     string
	Symbol     string
	Limit      string
	Spent      string
	Remaining  string
	Notes      string
	Categories string
	Headers    []header
}

// BuildPrompt renders the model prompt from the whole expense log.
func BuildPrompt(expenses []core.Expense, b core.UserBudget, period string) (string, error) {
	spent := core.TotalSpent(expenses)

	notes, err := json.Marshal(core.NoteFrequencies(expenses))
	if err != nil {
		return "", err
	}
	byCategory := make(map[string]float64)
	for _, c := range core.ByCategory(expenses) {
		byCategory[string(c.Category)] = c.Amount
	}
	categories, err := json.Marshal(byCategory)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = promptTemplate.Execute(&buf, promptData{
		Period:     period,
		Symbol:     core.CurrencySymbol,
		Limit:      strconv.FormatFloat(b.MonthlyLimit, 'f', -1, 64),
		Spent:      strconv.FormatFloat(spent, 'f', 2, 64),
		Remaining:  strconv.FormatFloat(b.MonthlyLimit-spent, 'f', 2, 64),
		Notes:      string(notes),
		Categories: string(categories),
		Headers:    headers,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
