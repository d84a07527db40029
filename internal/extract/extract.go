// Package extract turns uploaded resume files into prompt-ready plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"jobtracker-backend/internal/shared/storage/object"
	"jobtracker-backend/internal/shared/telemetry"
)

const (
	MimePDF      = "application/pdf"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"

	// CachedSuffix names the plain-text copy stored next to a source file.
	CachedSuffix = ".extracted.txt"

	// MaxSourceBytes bounds the size of a file we are willing to parse.
	MaxSourceBytes = 10 << 20
)

var (
	// ErrUnsupported means the file is not a PDF, DOCX, text or markdown file.
	ErrUnsupported = errors.New("unsupported resume format")
	// ErrTooLarge means the file exceeds MaxSourceBytes.
	ErrTooLarge = errors.New("resume file too large")
	// ErrEmpty means parsing succeeded but produced no text.
	ErrEmpty = errors.New("resume file has no text")
)

// Source identifies a stored resume file.
type Source struct {
	Key      string
	MimeType string
	FileName string
}

// Text returns the plain text of src, preferring the cached copy. After a
// fresh extraction the copy is written back; a failed write is only logged.
func Text(ctx context.Context, store object.ObjectStore, src Source) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cacheKey := src.Key + CachedSuffix
	if cached, err := readAll(ctx, store, cacheKey); err == nil && len(cached) > 0 {
		return string(cached), nil
	}

	raw, err := readAll(ctx, store, src.Key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", src.Key, err)
	}
	text, err := FromBytes(ctx, raw, src.MimeType, src.FileName)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", src.Key, err)
	}

	_, err = store.Put(ctx, object.Object{
		Key:         cacheKey,
		ContentType: "text/plain; charset=utf-8",
		Metadata:    map[string]string{"source-key": src.Key},
		Body:        strings.NewReader(text),
	})
	if err != nil {
		telemetry.Warn("extract.cache_failed", map[string]any{"key": cacheKey, "error": err})
	}
	return text, nil
}

func readAll(ctx context.Context, store object.ObjectStore, key string) ([]byte, error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, MaxSourceBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSourceBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// FromBytes extracts normalized text from an in-memory file. mimeType may
// be empty, in which case the file name and content decide.
func FromBytes(ctx context.Context, data []byte, mimeType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) > MaxSourceBytes {
		return "", ErrTooLarge
	}

	var (
		text string
		err  error
	)
	switch kind := detect(mimeType, fileName, data); kind {
	case MimePDF:
		text, err = pdfText(data)
	case MimeDOCX:
		text, err = docxText(data)
	case MimeText, MimeMarkdown:
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
	if err != nil {
		return "", err
	}
	text = normalize(text)
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

// detect resolves the effective type. Declared types win unless they are
// generic, in which case the extension and then the content are consulted.
func detect(mimeType, fileName string, data []byte) string {
	declared := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch declared {
	case MimePDF, MimeDOCX, MimeText, MimeMarkdown:
		return declared
	case "", "application/octet-stream", "application/zip":
	default:
		return declared
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	case ".txt":
		return MimeText
	case ".md", ".markdown":
		return MimeMarkdown
	}

	sniffed := strings.Split(http.DetectContentType(data), ";")[0]
	switch sniffed {
	case MimePDF:
		return MimePDF
	case "application/zip":
		if hasDocumentXML(data) {
			return MimeDOCX
		}
	case MimeText:
		return MimeText
	}
	if declared == "" {
		return sniffed
	}
	return declared
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	f := documentXML(zr)
	if f == nil {
		return "", fmt.Errorf("%w: docx without word/document.xml", ErrUnsupported)
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var buf strings.Builder
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteByte('\t')
			}
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				buf.WriteByte('\n')
			}
		}
	}
	return buf.String(), nil
}

func documentXML(zr *zip.Reader) *zip.File {
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return f
		}
	}
	return nil
}

func hasDocumentXML(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	return err == nil && documentXML(zr) != nil
}

// normalize trims each line and collapses runs of blank lines to one.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
