// Package chunker splits raw document text into bounded spans suitable for
// LLM context windows. Chunking is pure and lazy: the returned sequence can
// be abandoned early without materializing the whole document.
package chunker

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/finsight/fingraph/pkg/types"
)

// DefaultTargetSize is the chunk size the 8GB-class deployment target was
// tuned for.
const DefaultTargetSize = 500

// DefaultSlack is how far past the target a single sentence may run before
// it is hard-cut.
const DefaultSlack = 0.2

// Config controls the chunking behaviour. Zero-value fields are replaced
// with defaults by New.
type Config struct {
	// TargetSize is the preferred chunk length in characters.
	TargetSize int
	// Slack is the fraction of TargetSize a single sentence may exceed the
	// target by before it gets hard-cut at character boundaries.
	Slack float64
}

// Chunker converts document text into provenance-tagged chunks.
type Chunker struct {
	cfg Config
}

// New returns a Chunker with the given configuration.
func New(cfg Config) *Chunker {
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = DefaultTargetSize
	}
	if cfg.Slack <= 0 {
		cfg.Slack = DefaultSlack
	}
	return &Chunker{cfg: cfg}
}

// Chunk lazily yields bounded spans of text. Sentence and paragraph
// boundaries are preferred; a sentence longer than TargetSize*(1+Slack) is
// cut at TargetSize so no single chunk produces an unbounded LLM payload.
// The sequence is restartable: ranging over it twice yields the same chunks.
func (c *Chunker) Chunk(text string, prov types.Provenance) iter.Seq[types.Chunk] {
	return func(yield func(types.Chunk) bool) {
		limit := c.cfg.TargetSize
		hardLimit := limit + int(float64(limit)*c.cfg.Slack)

		index := 0
		emit := func(start, end int) bool {
			seg := text[start:end]
			if strings.TrimSpace(seg) == "" {
				return true
			}
			ok := yield(types.Chunk{
				Text:        seg,
				Provenance:  prov,
				Index:       index,
				StartOffset: start,
				EndOffset:   end,
			})
			index++
			return ok
		}

		bufStart := -1
		bufEnd := 0
		flush := func() bool {
			if bufStart < 0 {
				return true
			}
			start, end := bufStart, bufEnd
			bufStart = -1
			return emit(start, end)
		}

		for _, s := range sentenceSpans(text) {
			if s.end-s.start > hardLimit {
				// Oversized sentence: flush what we have, then hard-cut.
				if !flush() {
					return
				}
				at := s.start
				for at < s.end {
					cut := runeCut(text, at, min(at+limit, s.end))
					if !emit(at, cut) {
						return
					}
					at = cut
				}
				continue
			}

			if bufStart >= 0 && (s.end-bufStart) > limit {
				if !flush() {
					return
				}
			}
			if bufStart < 0 {
				bufStart = s.start
			}
			bufEnd = s.end
		}
		flush()
	}
}

type span struct {
	start, end int
}

// runeCut backs a proposed cut position up to the nearest rune boundary so
// a hard cut never splits a multi-byte character across chunks.
func runeCut(text string, at, cut int) int {
	if cut >= len(text) {
		return cut
	}
	backed := cut
	for backed > at && !utf8.RuneStart(text[backed]) {
		backed--
	}
	if backed == at {
		// Limit smaller than one rune; splitting is unavoidable.
		return cut
	}
	return backed
}

// sentenceSpans splits text into sentence-ish spans. A span ends after
// '.', '!', '?' followed by whitespace, or at a paragraph break. Offsets
// cover the whole input; whitespace between sentences belongs to the
// preceding span so chunk offsets tile the document.
func sentenceSpans(text string) []span {
	var spans []span
	start := 0

	// Byte offsets are fine here: every terminator is ASCII.
	for i := 0; i < len(text); i++ {
		ch := text[i]
		terminal := ch == '.' || ch == '!' || ch == '?'
		paraBreak := ch == '\n' && i+1 < len(text) && text[i+1] == '\n'

		if !terminal && !paraBreak {
			continue
		}
		if terminal {
			// Only a boundary when followed by whitespace or end of text.
			if i+1 < len(text) && !isSpaceByte(text[i+1]) {
				continue
			}
		}
		// Extend through trailing whitespace.
		end := i + 1
		for end < len(text) && isSpaceByte(text[end]) {
			end++
		}
		spans = append(spans, span{start: start, end: end})
		start = end
		i = end - 1
	}
	if start < len(text) {
		spans = append(spans, span{start: start, end: len(text)})
	}
	return spans
}

func isSpaceByte(b byte) bool {
	return b < 0x80 && unicode.IsSpace(rune(b))
}
