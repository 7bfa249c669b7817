package processors

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"meetingSummarize/core"
)

// RenderDocx renders a schema-valid summary as a Word document. The OOXML
// package is assembled directly: a fixed part list and a document body, so
// identical input produces byte-identical output (zip entries carry no
// timestamps).
func RenderDocx(s *core.MeetingSummary) ([]byte, error) {
	var body strings.Builder

	writeHeading(&body, s.Title, 48, true)

	if s.Date != nil {
		writeParagraph(&body, "Date: "+*s.Date, false)
	}
	if s.Duration != nil {
		writeParagraph(&body, "Duration: "+*s.Duration, false)
	}

	if len(s.Participants) > 0 {
		writeHeading(&body, "Participants", 32, false)
		for _, p := range s.Participants {
			line := "• " + p.Name
			if p.Role != nil {
				line += " (" + *p.Role + ")"
			}
			writeParagraph(&body, line, false)
		}
	}

	writeHeading(&body, "Executive Summary", 32, false)
	writeParagraph(&body, s.Summary, false)

	if len(s.KeyPoints) > 0 {
		writeHeading(&body, "Key Discussion Points", 32, false)
		for _, kp := range s.KeyPoints {
			writeParagraph(&body, "• "+kp, false)
		}
	}

	if len(s.Decisions) > 0 {
		writeHeading(&body, "Decisions Made", 32, false)
		for _, d := range s.Decisions {
			writeParagraph(&body, "✓ "+d.Description, false)
			if d.Context != nil {
				writeParagraph(&body, "Context: "+*d.Context, true)
			}
		}
	}

	if len(s.ActionItems) > 0 {
		writeHeading(&body, "Action Items", 32, false)
		rows := make([][]string, 0, len(s.ActionItems))
		for _, a := range s.ActionItems {
			rows = append(rows, []string{a.Task, orPlaceholder(a.Assignee), orPlaceholder(a.Deadline)})
		}
		writeTable(&body, []string{"Task", "Assignee", "Deadline"}, rows)
	}

	writePageBreak(&body)
	writeHeading(&body, "Full Transcript", 32, false)
	writeParagraph(&body, s.Transcript, false)

	documentXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() +
		`</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name, content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", documentXML},
	}
	for _, part := range parts {
		f, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create docx part %s: %w", part.name, err)
		}
		if _, err := f.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write docx part %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize docx package: %w", err)
	}
	return buf.Bytes(), nil
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func writeHeading(b *strings.Builder, text string, halfPoints int, centered bool) {
	b.WriteString("<w:p><w:pPr>")
	if centered {
		b.WriteString(`<w:jc w:val="center"/>`)
	}
	b.WriteString("</w:pPr><w:r><w:rPr><w:b/>")
	fmt.Fprintf(b, `<w:sz w:val="%d"/>`, halfPoints)
	b.WriteString(`</w:rPr><w:t xml:space="preserve">`)
	b.WriteString(xmlEscaper.Replace(text))
	b.WriteString("</w:t></w:r></w:p>")
}

func writeParagraph(b *strings.Builder, text string, italic bool) {
	b.WriteString("<w:p><w:r>")
	if italic {
		b.WriteString("<w:rPr><w:i/></w:rPr>")
	}
	b.WriteString(`<w:t xml:space="preserve">`)
	b.WriteString(xmlEscaper.Replace(text))
	b.WriteString("</w:t></w:r></w:p>")
}

func writePageBreak(b *strings.Builder) {
	b.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
}

func writeTable(b *strings.Builder, headers []string, rows [][]string) {
	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/><w:tblBorders>` +
		`<w:top w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:left w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:bottom w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:right w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:insideH w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`<w:insideV w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
		`</w:tblBorders></w:tblPr>`)

	writeRow := func(cells []string, bold bool) {
		b.WriteString("<w:tr>")
		for _, c := range cells {
			b.WriteString("<w:tc><w:p><w:r>")
			if bold {
				b.WriteString("<w:rPr><w:b/></w:rPr>")
			}
			b.WriteString(`<w:t xml:space="preserve">`)
			b.WriteString(xmlEscaper.Replace(c))
			b.WriteString("</w:t></w:r></w:p></w:tc>")
		}
		b.WriteString("</w:tr>")
	}

	writeRow(headers, true)
	for _, row := range rows {
		writeRow(row, false)
	}
	b.WriteString("</w:tbl>")
}
