package processors

import (
	"fmt"
	"strings"

	"meetingSummarize/core"
)

// DocxContentType is the MIME type for rendered Word documents.
const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// MarkdownContentType is the MIME type for rendered markdown documents.
const MarkdownContentType = "text/markdown; charset=utf-8"

// RenderMarkdown renders a schema-valid summary as a markdown document.
// Pure and deterministic: identical input produces identical output.
func RenderMarkdown(s *core.MeetingSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", s.Title)

	if s.Date != nil {
		fmt.Fprintf(&b, "- Date: %s\n", *s.Date)
	}
	if s.Duration != nil {
		fmt.Fprintf(&b, "- Duration: %s\n", *s.Duration)
	}
	if s.Date != nil || s.Duration != nil {
		b.WriteString("\n")
	}

	if len(s.Participants) > 0 {
		b.WriteString("## Participants\n\n")
		for _, p := range s.Participants {
			if p.Role != nil {
				fmt.Fprintf(&b, "- %s (%s)\n", p.Name, *p.Role)
			} else {
				fmt.Fprintf(&b, "- %s\n", p.Name)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "%s\n\n", s.Summary)

	if len(s.KeyPoints) > 0 {
		b.WriteString("## Key Discussion Points\n\n")
		for _, kp := range s.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", kp)
		}
		b.WriteString("\n")
	}

	if len(s.Decisions) > 0 {
		b.WriteString("## Decisions Made\n\n")
		for _, d := range s.Decisions {
			fmt.Fprintf(&b, "- %s\n", d.Description)
			if d.Context != nil {
				fmt.Fprintf(&b, "  - Context: %s\n", *d.Context)
			}
		}
		b.WriteString("\n")
	}

	if len(s.ActionItems) > 0 {
		b.WriteString("## Action Items\n\n")
		b.WriteString("| Task | Assignee | Deadline |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, a := range s.ActionItems {
			fmt.Fprintf(&b, "| %s | %s | %s |\n",
				mdCell(a.Task), mdCell(orPlaceholder(a.Assignee)), mdCell(orPlaceholder(a.Deadline)))
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n## Full Transcript\n\n")
	fmt.Fprintf(&b, "%s\n", s.Transcript)

	return b.String()
}

// nullPlaceholder is rendered for null assignee/deadline values.
const nullPlaceholder = "TBD"

func orPlaceholder(v *string) string {
	if v == nil {
		return nullPlaceholder
	}
	return *v
}

func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
