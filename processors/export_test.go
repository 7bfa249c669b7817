package processors

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"meetingSummarize/core"
)

func exportSummary() *core.MeetingSummary {
	role := "Engineer"
	ctx := "Budget was already approved"
	deadline := "2025-08-01"
	s := &core.MeetingSummary{
		Title:        "Platform Review",
		Duration:     strptr("45 minutes"),
		Participants: []core.Participant{{Name: "Dana", Role: &role}, {Name: "Eli"}},
		Summary:      "Reviewed platform migration status.",
		KeyPoints:    []string{"migration is on track"},
		Decisions:    []core.Decision{{Description: "Freeze the old cluster", Context: &ctx}},
		ActionItems: []core.ActionItem{
			{Task: "Write the runbook", Assignee: strptr("Dana"), Deadline: &deadline},
			{Task: "Schedule the cutover"},
		},
		Transcript: "full meeting text here",
	}
	s.Normalize()
	return s
}

func strptr(s string) *string { return &s }

func TestRenderMarkdownSections(t *testing.T) {
	md := RenderMarkdown(exportSummary())

	wantInOrder := []string{
		"# Platform Review",
		"- Duration: 45 minutes",
		"## Participants",
		"- Dana (Engineer)",
		"- Eli",
		"## Executive Summary",
		"## Key Discussion Points",
		"## Decisions Made",
		"- Context: Budget was already approved",
		"## Action Items",
		"| Write the runbook | Dana | 2025-08-01 |",
		"| Schedule the cutover | TBD | TBD |",
		"## Full Transcript",
		"full meeting text here",
	}
	pos := 0
	for _, want := range wantInOrder {
		i := strings.Index(md[pos:], want)
		if i < 0 {
			t.Fatalf("markdown missing %q after position %d:\n%s", want, pos, md)
		}
		pos += i
	}
}

func TestRenderMarkdownOmitsEmptySections(t *testing.T) {
	s := core.TranscriptionOnlySummary("just words")
	md := RenderMarkdown(s)

	for _, section := range []string{"## Participants", "## Key Discussion Points", "## Decisions Made", "## Action Items", "- Date:", "- Duration:"} {
		if strings.Contains(md, section) {
			t.Errorf("markdown contains %q for an empty summary", section)
		}
	}
	if !strings.Contains(md, "## Full Transcript") || !strings.Contains(md, "just words") {
		t.Error("transcript section missing")
	}
}

func TestRenderMarkdownEscapesTableCells(t *testing.T) {
	s := exportSummary()
	s.ActionItems = []core.ActionItem{{Task: "fix a | b\nproperly"}}
	md := RenderMarkdown(s)
	if !strings.Contains(md, `| fix a \| b properly | TBD | TBD |`) {
		t.Errorf("cell not escaped:\n%s", md)
	}
}

func TestRenderDeterministic(t *testing.T) {
	s := exportSummary()

	md1, md2 := RenderMarkdown(s), RenderMarkdown(s)
	if md1 != md2 {
		t.Error("markdown rendering is not deterministic")
	}

	d1, err := RenderDocx(s)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := RenderDocx(s)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(d1, d2) {
		t.Error("docx rendering is not deterministic")
	}
}

func TestRenderDocxPackage(t *testing.T) {
	doc, err := RenderDocx(exportSummary())
	if err != nil {
		t.Fatal(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatalf("docx is not a readable zip: %v", err)
	}

	parts := map[string]bool{}
	var documentXML string
	for _, f := range zr.File {
		parts[f.Name] = true
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			raw, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				t.Fatal(err)
			}
			documentXML = string(raw)
		}
	}
	for _, want := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		if !parts[want] {
			t.Errorf("docx package missing part %q", want)
		}
	}

	for _, want := range []string{"Platform Review", "Dana", "TBD", "full meeting text here"} {
		if !strings.Contains(documentXML, want) {
			t.Errorf("document.xml missing %q", want)
		}
	}
}

func TestRenderDocxEscapesXML(t *testing.T) {
	s := exportSummary()
	s.Title = `Q3 <Review> & "Planning"`
	doc, err := RenderDocx(s)
	if err != nil {
		t.Fatal(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, _ := f.Open()
		raw, _ := io.ReadAll(rc)
		rc.Close()
		if bytes.Contains(raw, []byte("<Review>")) {
			t.Error("title not XML-escaped")
		}
		if !bytes.Contains(raw, []byte("&lt;Review&gt;")) {
			t.Error("escaped title not found")
		}
	}
}
