// Package render turns briefings, summaries and market snapshots into
// Markdown for the terminal and for Telegram.
package render

import (
	"fmt"
	"strings"

	"MarketBrief/internal/domain"
)

var sessionTitles = map[domain.Session]string{
	domain.SessionMorning: "Morning",
	domain.SessionMidday:  "Midday",
	domain.SessionEvening: "Evening",
}

func sessionTitle(s domain.Session) string {
	if title, ok := sessionTitles[s]; ok {
		return title
	}
	return string(s)
}

// BriefingMarkdown renders a briefing as CommonMark.
func BriefingMarkdown(b domain.Briefing) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s briefing · %s\n\n", sessionTitle(b.Session), b.Date)

	sb.WriteString("## Market mood\n\n")
	fmt.Fprintf(&sb, "Bullish **%.0f%%** · Bearish **%.0f%%** · Neutral **%.0f%%**\n\n",
		b.Overall.BullishPct, b.Overall.BearishPct, b.Overall.NeutralPct)
	if b.Overall.Summary != "" {
		sb.WriteString(b.Overall.Summary + "\n\n")
	}

	if len(b.MustReads) > 0 {
		sb.WriteString("## Must read\n\n")
		for i, mr := range b.MustReads {
			fmt.Fprintf(&sb, "%d. **%s**\n", i+1, mr.Title)
			if mr.WhyImportant != "" {
				fmt.Fprintf(&sb, "   - %s\n", mr.WhyImportant)
			}
			if mr.ImpactAnalysis != "" {
				fmt.Fprintf(&sb, "   - %s\n", mr.ImpactAnalysis)
			}
		}
		sb.WriteString("\n")
	}

	if len(b.Themes) > 0 {
		sb.WriteString("## Cross-market themes\n\n")
		for _, theme := range b.Themes {
			fmt.Fprintf(&sb, "- %s\n", theme)
		}
		sb.WriteString("\n")
	}

	if b.Fallback {
		sb.WriteString("_Statistical briefing: the model was unavailable._\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// BriefingTelegram renders a briefing in Telegram's legacy Markdown dialect.
func BriefingTelegram(b domain.Briefing) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s briefing* %s\n\n", sessionTitle(b.Session), b.Date)
	fmt.Fprintf(&sb, "📈 %.0f%%  📉 %.0f%%  ➖ %.0f%%\n",
		b.Overall.BullishPct, b.Overall.BearishPct, b.Overall.NeutralPct)
	if b.Overall.Summary != "" {
		sb.WriteString(escapeTelegram(b.Overall.Summary) + "\n")
	}

	for i, mr := range b.MustReads {
		fmt.Fprintf(&sb, "\n*%d. %s*\n", i+1, escapeTelegram(mr.Title))
		if mr.WhyImportant != "" {
			sb.WriteString(escapeTelegram(mr.WhyImportant) + "\n")
		}
		if mr.ImpactAnalysis != "" {
			fmt.Fprintf(&sb, "_%s_\n", escapeTelegram(mr.ImpactAnalysis))
		}
	}

	if len(b.Themes) > 0 {
		sb.WriteString("\n*Themes*\n")
		for _, theme := range b.Themes {
			sb.WriteString("• " + escapeTelegram(theme) + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

var telegramEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "[", "\\[", "`", "\\`")

func escapeTelegram(s string) string {
	return telegramEscaper.Replace(s)
}

// SummariesMarkdown renders one batch of topic summaries.
func SummariesMarkdown(batchID string, summaries []domain.TopicSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Batch %s\n\n", batchID)
	if len(summaries) == 0 {
		sb.WriteString("No summaries.\n")
		return sb.String()
	}

	for _, s := range summaries {
		fmt.Fprintf(&sb, "## %s\n\n", s.Headline)
		fmt.Fprintf(&sb, "`%s` · %s · %s · %d articles", s.TopicTag, s.Region, s.Sentiment, s.ArticleCount)
		if len(s.Tickers) > 0 {
			fmt.Fprintf(&sb, " · %s", strings.Join(s.Tickers, ", "))
		}
		sb.WriteString("\n\n")
		sb.WriteString(s.Summary + "\n\n")
		for _, src := range s.Sources {
			fmt.Fprintf(&sb, "- [%s](%s) (%s)\n", src.Title, src.Link, src.Source)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// MarketMarkdown renders index quotes as a table.
func MarketMarkdown(snapshot domain.MarketSnapshot) string {
	var sb strings.Builder
	sb.WriteString("| Index | Price | Change | % |\n|---|---:|---:|---:|\n")
	for _, q := range snapshot.Indices {
		fmt.Fprintf(&sb, "| %s | %.2f | %+.2f | %+.2f%% |\n", q.Name, q.Price, q.Change, q.ChangePct)
	}
	if !snapshot.UpdatedAt.IsZero() {
		fmt.Fprintf(&sb, "\nUpdated %s\n", snapshot.UpdatedAt.Format("2006-01-02 15:04 MST"))
	}
	return sb.String()
}
