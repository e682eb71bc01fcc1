package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/project-shield/internal/classifier"
	"github.com/xaenox/project-shield/internal/models"
	"github.com/xaenox/project-shield/internal/service"
)

var verdictLabels = map[classifier.Classification]string{
	classifier.InScope:             "✅ In scope",
	classifier.OutOfScope:          "🚫 Out of scope",
	classifier.ClarificationNeeded: "❓ Clarification needed",
	classifier.Revision:            "✏️ Revision",
}

var storedLabels = map[models.ScopeClassification]string{
	models.ClassificationInScope:             verdictLabels[classifier.InScope],
	models.ClassificationOutOfScope:          verdictLabels[classifier.OutOfScope],
	models.ClassificationClarificationNeeded: verdictLabels[classifier.ClarificationNeeded],
	models.ClassificationRevision:            verdictLabels[classifier.Revision],
	models.ClassificationPending:             "⏳ Pending",
}

func escapeMarkdown(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, text)
}

func formatConfidence(c float64) string {
	return fmt.Sprintf("%.0f%%", c*100)
}

func formatVerdict(project *models.Project, res classifier.Result) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*%s* \\(%s\\)\n", escapeMarkdown(verdictLabels[res.Classification]), formatConfidence(res.Confidence))
	if res.MatchedScopeItemIndex != nil && *res.MatchedScopeItemIndex < len(project.ScopeItems) {
		item := project.ScopeItems[*res.MatchedScopeItemIndex]
		fmt.Fprintf(&sb, "*Scope item:* %s\n", escapeMarkdown(item.Title))
	}
	if len(res.ScopeCreepIndicators) > 0 {
		fmt.Fprintf(&sb, "*Scope creep phrases:* %s\n", escapeMarkdown(strings.Join(res.ScopeCreepIndicators, ", ")))
	}
	fmt.Fprintf(&sb, "\n_%s_\n", escapeMarkdown(res.Reasoning))
	fmt.Fprintf(&sb, "\n*Next step:* %s", escapeMarkdown(res.SuggestedAction))

	return sb.String()
}

func formatScope(project *models.Project) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*%s* scope:\n", escapeMarkdown(project.Name))
	for i, item := range project.ScopeItems {
		fmt.Fprintf(&sb, "%d\\. %s", i+1, escapeMarkdown(item.Title))
		if item.Description != "" {
			fmt.Fprintf(&sb, " \\- _%s_", escapeMarkdown(item.Description))
		}
		if item.IsCompleted {
			sb.WriteString(" ✔️")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatHistory lists up to limit requests, newest first.
func formatHistory(requests []*models.ClientRequest, limit int) string {
	var sb strings.Builder

	sb.WriteString("*Recent client requests:*\n\n")
	for i := len(requests) - 1; i >= 0 && len(requests)-i <= limit; i-- {
		req := requests[i]
		label := storedLabels[req.Classification]
		if req.Confidence != nil {
			label += " (" + formatConfidence(*req.Confidence) + ")"
		}
		fmt.Fprintf(&sb, "*%s*\n", escapeMarkdown(label))
		fmt.Fprintf(&sb, "_%s_\n\n", escapeMarkdown(req.Title))
	}
	return sb.String()
}

func formatBulk(results []service.Analysis) string {
	counts := make(map[classifier.Classification]int)
	for _, r := range results {
		counts[r.Result.Classification]++
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyzed %d requests:\n", len(results))
	for _, c := range classifier.Classifications() {
		if counts[c] == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s: %d\n", escapeMarkdown(verdictLabels[c]), counts[c])
	}
	return sb.String()
}
