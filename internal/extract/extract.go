// Package extract converts raw document buffers into normalized text plus
// structural metadata.
//
// Supported formats: pdf, docx, doc, txt, md, rtf (and "text" for raw
// pasted text). Extraction is a pure transformation: no I/O beyond the
// supplied buffer, no network calls.
package extract

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Format identifies a declared document format.
type Format string

// Recognized document formats. The declared format comes from the caller
// (file extension at the transport boundary), not from sniffing the buffer.
const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatDOC  Format = "doc"
	FormatTXT  Format = "txt"
	FormatMD   Format = "md"
	FormatRTF  Format = "rtf"

	// FormatText marks raw pasted text, which needs no extraction step.
	FormatText Format = "text"
)

var (
	// ErrUnsupportedFormat indicates the declared format is not recognized.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEmptyExtraction indicates extraction yielded no usable text.
	ErrEmptyExtraction = errors.New("no text could be extracted")
)

// Metadata is the structural metadata produced by extraction. It is a
// closed union: exactly one of PDFMeta, WordMeta, or TextMeta, so that
// limit checks can switch exhaustively instead of probing an open map.
type Metadata interface {
	isMetadata()
}

// PDFMeta describes a parsed PDF.
type PDFMeta struct {
	PageCount int `json:"pageCount"`
}

// WordMeta describes a DOCX/DOC document. PageEstimate is derived as
// ceil(WordCount / 250), roughly one printed page per 250 words.
type WordMeta struct {
	WordCount    int `json:"wordCount"`
	PageEstimate int `json:"pageEstimate"`
}

// TextMeta describes a text-like document (txt, md, rtf, pasted text).
// CharCount counts runes of the decoded string, not bytes.
type TextMeta struct {
	WordCount int `json:"wordCount"`
	CharCount int `json:"charCount"`
}

func (PDFMeta) isMetadata()  {}
func (WordMeta) isMetadata() {}
func (TextMeta) isMetadata() {}

// Result is the outcome of a successful extraction.
type Result struct {
	Text string
	Meta Metadata
}

// ParseFormat maps a file extension or declared type to a Format.
// Matching is case-insensitive and tolerates a leading dot.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(s, ".")))
	switch f {
	case FormatPDF, FormatDOCX, FormatDOC, FormatTXT, FormatMD, FormatRTF, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Extract converts buf into normalized text and structural metadata for
// the declared format. It fails with ErrUnsupportedFormat for unknown
// formats and ErrEmptyExtraction when the result is empty or
// whitespace-only.
func Extract(buf []byte, format Format) (Result, error) {
	var (
		text string
		meta Metadata
		err  error
	)

	switch format {
	case FormatPDF:
		var pages int
		text, pages, err = extractPDF(buf)
		meta = PDFMeta{PageCount: pages}
	case FormatDOCX, FormatDOC:
		text, err = extractDOCX(buf)
		wc := WordCount(text)
		meta = WordMeta{WordCount: wc, PageEstimate: pageEstimate(wc)}
	case FormatTXT, FormatMD, FormatRTF, FormatText:
		text = string(buf)
		meta = TextMeta{WordCount: WordCount(text), CharCount: CharCount(text)}
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if err != nil {
		return Result{}, err
	}

	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w from %s document", ErrEmptyExtraction, format)
	}

	return Result{Text: text, Meta: meta}, nil
}

// WordCount counts whitespace-delimited tokens. Consecutive whitespace
// collapses to a single delimiter. This over/under-counts for non-Latin
// scripts without word spacing; kept for parity with the measured limits.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// CharCount returns the rune length of the decoded string.
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}

// pageEstimate derives a printed-page estimate from a word count,
// at ~250 words per page.
func pageEstimate(wordCount int) int {
	return (wordCount + 249) / 250
}
