package detection

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jbownzino/hoopwatch/pkg/modal"
)

// Result is the JSON object the classifier prompt instructs the LLM to
// return for each frame.
type Result struct {
	HasModal              bool   `json:"has_modal"`
	Type                  string `json:"type,omitempty"`
	ModalText             string `json:"modal_text,omitempty"`
	WhyHarmful            string `json:"why_harmful,omitempty"`
	ContentTypeLabel      string `json:"content_type_label,omitempty"`
	SemanticUnderstanding string `json:"semantic_understanding,omitempty"`
}

// Record is a single confirmed detection, persisted alongside the session.
type Record struct {
	Category              modal.Category `json:"category"`
	ModalText             string         `json:"modal_text"`
	WhyHarmful            string         `json:"why_harmful,omitempty"`
	ContentTypeLabel      string         `json:"content_type_label,omitempty"`
	SemanticUnderstanding string         `json:"semantic_understanding,omitempty"`
	ScreenshotPath        string         `json:"screenshot_path,omitempty"`
	DetectedAt            time.Time      `json:"detected_at"`
}

// Labels maps each category to the human-readable label used in reports
// and in the judge prompt.
var Labels = map[modal.Category]string{
	modal.CategoryViolence: "Violence/weapons",
	modal.CategoryDrugs:    "Drug promotion",
	modal.CategorySexual:   "Sexual/inappropriate",
}

// Label returns the report label for a category, title-casing the raw
// category name when it has no fixed label.
func Label(cat modal.Category) string {
	if label, ok := Labels[cat]; ok {
		return label
	}
	return cases.Title(language.English).String(string(cat))
}

// ParseResult extracts the classifier's JSON object from raw LLM output.
// Models frequently wrap the object in markdown code fences; the JSON is
// carved out before unmarshalling.
func ParseResult(raw string) (*Result, error) {
	text := strings.TrimSpace(raw)
	if strings.Contains(text, "```") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start >= 0 && end > start {
			text = text[start : end+1]
		}
	}

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("failed to parse detection result: %w", err)
	}
	return &result, nil
}

// NormalizeCategory folds the free-form type string a model returns into
// one of the known categories. Models sometimes answer with near-synonyms
// ("weapons", "drug promotion", "inappropriate"); those are mapped by
// substring. An unrecognized type is an error rather than a silent
// fallback, so the caller can skip the frame and retry.
func NormalizeCategory(raw string) (modal.Category, error) {
	t := strings.ToLower(strings.TrimSpace(raw))
	switch modal.Category(t) {
	case modal.CategoryViolence, modal.CategoryDrugs, modal.CategorySexual:
		return modal.Category(t), nil
	}

	switch {
	case strings.Contains(t, "violence"), strings.Contains(t, "weapon"):
		return modal.CategoryViolence, nil
	case strings.Contains(t, "drug"):
		return modal.CategoryDrugs, nil
	case strings.Contains(t, "sexual"), strings.Contains(t, "inappropriate"):
		return modal.CategorySexual, nil
	}
	return "", fmt.Errorf("unrecognized content type %q", raw)
}

// NewRecord builds a Record from a parsed classifier result, filling in
// canonical text and labels when the model omitted them.
func NewRecord(result *Result, cat modal.Category, now time.Time) Record {
	rec := Record{
		Category:              cat,
		ModalText:             strings.TrimSpace(result.ModalText),
		WhyHarmful:            result.WhyHarmful,
		ContentTypeLabel:      result.ContentTypeLabel,
		SemanticUnderstanding: result.SemanticUnderstanding,
		DetectedAt:            now,
	}
	if rec.ModalText == "" {
		for _, m := range modal.DefaultCatalog() {
			if m.Category == cat {
				rec.ModalText = m.Text
				break
			}
		}
	}
	if rec.WhyHarmful == "" {
		rec.WhyHarmful = "violates terms of service"
	}
	if rec.ContentTypeLabel == "" {
		rec.ContentTypeLabel = Label(cat)
	}
	return rec
}
