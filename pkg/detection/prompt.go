package detection

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jbownzino/hoopwatch/pkg/modal"
)

// ClassifyPrompt is the base instruction sent with every frame. The
// model must answer with exactly one JSON object matching Result.
const ClassifyPrompt = `You are classifying a game screenshot for harmful content modals.

If you see a modal overlay with: white box, red border, warning icon, and a "Close" button, with text that is clearly harmful, respond with exactly one JSON object (no other text). Use this shape:
{
  "has_modal": true,
  "type": "violence" | "drugs" | "sexual",
  "modal_text": "exact text you see in the modal",
  "why_harmful": "one short sentence: promotes X, violates ToS, etc.",
  "content_type_label": "Violence/weapons" | "Drug promotion" | "Sexual/inappropriate",
  "semantic_understanding": "one sentence: This content promotes X which violates game terms of service"
}

Classify by meaning:
- violence: promotes violence, weapons, threats -> type "violence", content_type_label "Violence/weapons"
- drugs: promotes or encourages drug use -> type "drugs", content_type_label "Drug promotion"
- sexual: sexual or inappropriate (e.g. requests for photos) -> type "sexual", content_type_label "Sexual/inappropriate"

If there is no such modal, or the screen shows only normal game play, respond:
{"has_modal": false}

Reply with exactly one JSON object, nothing else.`

// PromptWithProgress appends context about which categories have already
// been detected so the model can classify the current modal against the
// remaining ones. With no detections yet it returns the base prompt.
func PromptWithProgress(detected map[modal.Category]bool) string {
	var done, remaining []string
	for _, cat := range modal.Categories() {
		if detected[cat] {
			done = append(done, Label(cat))
		} else {
			remaining = append(remaining, Label(cat))
		}
	}
	if len(done) == 0 {
		return ClassifyPrompt
	}

	return ClassifyPrompt + fmt.Sprintf(
		"\n\nContext: We have already detected and closed these categories: %s. "+
			"We still need to detect: %s. "+
			"Look at the modal content and classify it by meaning. If this modal clearly fits one of the remaining categories, use that type.",
		strings.Join(done, ", "), strings.Join(remaining, ", "))
}

// JudgeGroundTruth states the completion criterion the judge scores
// against.
const JudgeGroundTruth = `All 3 types of harmful content (Violence/weapons, Drug promotion, Sexual/inappropriate) must be detected, reported with reasoning, and each modal closed. Verdict true only if all 3 are detected and closed.`

// JudgeTask describes the monitored task for the judge.
const JudgeTask = `Navigate to the game and detect all 3 types of harmful content in modals (Violence/weapons, Drug promotion, Sexual/inappropriate). For each modal: report the detection with type and reasoning, then click Close to dismiss. Task is complete only when all 3 types have been detected, reported, and their modals closed.`

// JudgePrompt assembles the evaluation prompt from the run's final
// result and the per-detection step summaries. The model must answer
// with a single JSON object matching Verdict.
func JudgePrompt(finalResult string, steps []string) string {
	var b strings.Builder
	b.WriteString("You are judging whether an automated monitoring run completed its task.\n\n")
	b.WriteString("Task:\n")
	b.WriteString(JudgeTask)
	b.WriteString("\n\nGround truth for success:\n")
	b.WriteString(JudgeGroundTruth)
	b.WriteString("\n\nAgent steps:\n")
	for i, step := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	b.WriteString("\nFinal result reported by the agent:\n")
	b.WriteString(finalResult)
	b.WriteString("\n\nRespond with exactly one JSON object, nothing else:\n")
	b.WriteString(`{"verdict": true|false, "reasoning": "one or two sentences", "failure_reason": "empty string if verdict is true"}`)
	return b.String()
}

// Verdict is the judge's answer.
type Verdict struct {
	Pass          bool   `json:"verdict"`
	Reasoning     string `json:"reasoning,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// ParseVerdict extracts the judge's JSON verdict from raw LLM output,
// tolerating markdown code fences the same way ParseResult does.
func ParseVerdict(raw string) (*Verdict, error) {
	text := strings.TrimSpace(raw)
	if strings.Contains(text, "```") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start >= 0 && end > start {
			text = text[start : end+1]
		}
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse judge verdict: %w", err)
	}
	return &verdict, nil
}

// ReportBlock formats a confirmed detection in the harness's report
// style, one block per detection.
func ReportBlock(rec Record) string {
	return fmt.Sprintf(
		"HARMFUL CONTENT DETECTED\n"+
			"Modal text: %q\n"+
			"Why it's harmful: %s\n"+
			"Content type: %s\n"+
			"Semantic understanding: %s\n"+
			"Detection method: Semantic analysis of screenshot and visual text recognition",
		rec.ModalText, rec.WhyHarmful, rec.ContentTypeLabel, rec.SemanticUnderstanding)
}
