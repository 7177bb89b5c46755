package inference

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/trousev/mealcontrol/internal/domain"
)

// Normalize maps one raw inference response onto a Result.
//
// The service does not commit to a single response shape. Three are seen in
// practice, tried in priority order:
//
//  1. a top-level meal_components array
//  2. an output array of heterogeneous items, one of which is a message
//     whose text is itself JSON carrying meal_components
//  3. message text containing a clarification payload, possibly embedded in
//     surrounding prose
//
// Any remaining non-empty message text becomes a FreeText reply so the user
// never sees a blank turn. Otherwise a *ParseError describes what was
// attempted. An empty meal_components array counts as "no components", not a
// failure, and absent numeric fields decode as zero rather than invalidating
// the component.
func Normalize(raw []byte) (Result, error) {
	root := gjson.ParseBytes(raw)

	if comps := componentsFrom(root); len(comps) > 0 {
		return Components{MealName: mealNameFrom(root), Components: comps}, nil
	}

	text := messageText(root)
	if text != "" {
		if inner := gjson.Parse(text); inner.IsObject() || inner.IsArray() {
			if comps := componentsFrom(inner); len(comps) > 0 {
				return Components{MealName: mealNameFrom(inner), Components: comps}, nil
			}
		}
		if q := clarificationFrom(text); q != "" {
			return Clarification{Question: q}, nil
		}
		return FreeText{Text: text}, nil
	}

	return nil, &ParseError{Diagnostic: diagnostic(raw, root)}
}

func componentsFrom(v gjson.Result) []domain.MealComponent {
	arr := v.Get("meal_components")
	if !arr.IsArray() {
		return nil
	}

	var comps []domain.MealComponent
	arr.ForEach(func(_, item gjson.Result) bool {
		name := strings.TrimSpace(item.Get("name").String())
		if name == "" {
			return true
		}
		comps = append(comps, domain.MealComponent{
			Name:         name,
			WeightGrams:  item.Get("weight_g").Float(),
			EnergyKcal:   item.Get("energy_kcal").Float(),
			ProteinGrams: item.Get("protein_g").Float(),
			FatGrams:     item.Get("fat_g").Float(),
			CarbGrams:    item.Get("carbs_g").Float(),
		})
		return true
	})
	return comps
}

func mealNameFrom(v gjson.Result) string {
	return strings.TrimSpace(v.Get("name").String())
}

// messageText digs the answer text out of a shape-(b) response: the first
// output item typed "message", preferring content[0].text, then
// message.content, then a bare text field.
func messageText(root gjson.Result) string {
	var text string
	root.Get("output").ForEach(func(_, item gjson.Result) bool {
		if item.Get("type").String() != "message" {
			return true
		}
		for _, path := range []string{"content.0.text", "message.content", "text"} {
			if t := strings.TrimSpace(item.Get(path).String()); t != "" {
				text = t
				return false
			}
		}
		return true
	})
	return text
}

var (
	namePattern     = regexp.MustCompile(`"name"\s*:\s*"([^"]+)"`)
	questionPattern = regexp.MustCompile(`"question"\s*:\s*"([^"]+)"`)
)

// clarificationFrom recovers a clarifying question from message text. Clean
// payloads look like [{"name": "Rice", "question": "White or brown?"}]. The
// regex fallback also pulls the pair out of surrounding prose when the model
// wraps the JSON in commentary; that is best effort and may misfire on text
// that merely mentions a "question" key.
func clarificationFrom(text string) string {
	for _, base := range []string{"0.", ""} {
		q := strings.TrimSpace(gjson.Get(text, base+"question").String())
		if q == "" {
			continue
		}
		if name := strings.TrimSpace(gjson.Get(text, base+"name").String()); name != "" {
			return fmt.Sprintf("Question about %s: %s", name, q)
		}
		return q
	}

	if !strings.Contains(text, `"question"`) {
		return ""
	}
	q := questionPattern.FindStringSubmatch(text)
	if q == nil {
		return ""
	}
	if name := namePattern.FindStringSubmatch(text); name != nil {
		return fmt.Sprintf("Question about %s: %s", name[1], q[1])
	}
	return q[1]
}

// diagnostic summarizes a response none of the branches could use. It is
// surfaced to the user and logged, so it must never be empty.
func diagnostic(raw []byte, root gjson.Result) string {
	var b strings.Builder
	b.WriteString("no components, question, or text recovered")

	fmt.Fprintf(&b, "; meal_components=%d", len(root.Get("meal_components").Array()))

	output := root.Get("output").Array()
	messages := 0
	for _, item := range output {
		if item.Get("type").String() == "message" {
			messages++
		}
	}
	fmt.Fprintf(&b, ", output items=%d (message items=%d)", len(output), messages)

	if errText := root.Get("error").String(); errText != "" {
		fmt.Fprintf(&b, ", service error=%q", errText)
	}
	if !gjson.ValidBytes(raw) {
		b.WriteString(", body is not valid JSON")
	}
	return b.String()
}
