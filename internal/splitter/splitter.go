// Package splitter segments normalized text into overlapping chunks
// suitable for embedding.
//
// The splitter prefers breaking on larger semantic boundaries before
// falling back to a hard cut: paragraphs first, then lines, sentences,
// words, and finally individual characters. Splitting is deterministic:
// the same input always yields the same chunk sequence.
package splitter

import (
	"errors"
	"strings"
)

const (
	// DefaultChunkSize is the target chunk length in runes.
	DefaultChunkSize = 800

	// DefaultChunkOverlap is the rune overlap between consecutive chunks.
	DefaultChunkOverlap = 150
)

// defaultSeparators orders break preferences from coarse to fine.
// The empty separator is the terminal fallback: split between runes.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

var (
	// ErrInvalidChunkSize indicates a non-positive chunk size.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidOverlap indicates an overlap outside [0, chunkSize).
	ErrInvalidOverlap = errors.New("overlap must be >= 0 and < chunk size")
)

// Splitter splits text into overlapping chunks. The zero value is not
// usable; construct with New or NewWithConfig.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// New returns a Splitter with the default 800/150 configuration.
func New() *Splitter {
	s, _ := NewWithConfig(DefaultChunkSize, DefaultChunkOverlap)
	return s
}

// NewWithConfig returns a Splitter with an explicit size and overlap.
func NewWithConfig(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidOverlap
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}, nil
}

// Split segments text into chunks of at most the configured size, with
// the configured overlap between neighbors. Separators are retained, so
// every chunk is a contiguous (whitespace-trimmed) substring of the
// input. Whitespace-only chunks are dropped; the result never contains
// an empty chunk.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

// split recursively breaks text on the coarsest separator present,
// merging small pieces greedily and recursing into oversized ones with
// the remaining, finer separators.
func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	next := separators[len(separators):]
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var chunks []string
	var pending []string

	for _, piece := range splitKeeping(text, separator) {
		if runeLen(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}

		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}

		if len(next) == 0 {
			// Unreachable with the default separator chain: the empty
			// separator always splits down to single runes.
			chunks = appendChunk(chunks, piece)
			continue
		}
		chunks = append(chunks, s.split(piece, next)...)
	}

	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}

	return chunks
}

// merge greedily packs consecutive pieces into chunks up to chunkSize,
// then slides the window forward keeping at most overlap runes of tail
// context for the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	for _, piece := range pieces {
		l := runeLen(piece)

		if total+l > s.chunkSize && len(window) > 0 {
			chunks = appendChunk(chunks, strings.Join(window, ""))

			for total > s.overlap || (total+l > s.chunkSize && total > 0) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}

		window = append(window, piece)
		total += l
	}

	if len(window) > 0 {
		chunks = appendChunk(chunks, strings.Join(window, ""))
	}

	return chunks
}

// splitKeeping splits text on sep, retaining the separator at the end of
// each piece so no content is lost. The empty separator splits into
// individual runes.
func splitKeeping(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		pieces := make([]string, len(runes))
		for i, r := range runes {
			pieces[i] = string(r)
		}
		return pieces
	}

	pieces := strings.SplitAfter(text, sep)
	// SplitAfter yields a trailing empty piece when text ends with sep.
	if n := len(pieces); n > 0 && pieces[n-1] == "" {
		pieces = pieces[:n-1]
	}
	return pieces
}

// appendChunk trims and appends a chunk, dropping whitespace-only ones.
func appendChunk(chunks []string, chunk string) []string {
	chunk = strings.TrimSpace(chunk)
	if chunk == "" {
		return chunks
	}
	return append(chunks, chunk)
}

func runeLen(s string) int {
	return len([]rune(s))
}
