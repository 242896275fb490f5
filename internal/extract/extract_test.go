package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	files := map[string]string{
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body +
			`</w:body></w:document>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
	}

	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	return buf.Bytes()
}

func TestTextPlain(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"cv.txt", "skills.CSV", "README"} {
		got, err := Text(name, []byte("go, sql"))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if got != "go, sql" {
			t.Fatalf("%s: unexpected text: %q", name, got)
		}
	}
}

func TestTextPlainStripsByteOrderMark(t *testing.T) {
	t.Parallel()

	got, err := Text("notepad.txt", []byte("\xef\xbb\xbfpython, sql"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "python, sql" {
		t.Fatalf("unexpected text: %q", got)
	}

	if normalized := Normalize(got); normalized != "python, sql" {
		t.Fatalf("unexpected normalized text: %q", normalized)
	}
}

func TestTextDocx(t *testing.T) {
	t.Parallel()

	data := buildDocx(t,
		`<w:p><w:r><w:t>Go</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t xml:space="preserve">SQL &amp; PostgreSQL</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Python</w:t></w:r><w:r><w:tab/><w:t>3</w:t></w:r></w:p>`,
	)

	got, err := Text("cv.docx", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expect := "Go\nSQL & PostgreSQL\nPython\t3"
	if got != expect {
		t.Fatalf("unexpected text: %q, expected %q", got, expect)
	}

	if Normalize(got) != "Go, SQL & PostgreSQL, Python\t3" {
		t.Fatalf("unexpected normalized text: %q", Normalize(got))
	}
}

func TestTextBrokenFiles(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"cv.pdf", "cv.docx"} {
		if _, err := Text(name, []byte("definitely not a document")); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}

func TestTextUnsupported(t *testing.T) {
	t.Parallel()

	_, err := Text("photo.png", []byte{0x89, 0x50})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                          "",
		"go, sql":                   "go, sql",
		"go\r\nsql,\n\n  python  ,": "go, sql, python",
		"java,\nkotlin":             "java, kotlin",
	}

	for input, expect := range tests {
		if got := Normalize(input); got != expect {
			t.Fatalf("Normalize(%q) = %q, expected %q", input, got, expect)
		}
	}
}
