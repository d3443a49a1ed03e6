// Package chunker cuts raw document text into bounded, verbatim segments for
// retrieval. Splitting is hierarchical: paragraphs first, then sentences for
// paragraphs that blow past the size ceiling.
package chunker

import (
	"regexp"
	"strings"
)

const (
	DefaultMinSize = 500
	DefaultMaxSize = 800

	// overflowFactor bounds how far a still-too-small buffer may exceed
	// MaxSize before it is flushed.
	overflowFactor = 1.2
	// resplitFactor is the ceiling above which a finished chunk is re-split
	// at sentence boundaries.
	resplitFactor = 1.5
)

var (
	paragraphSep = regexp.MustCompile(`\n[ \t\r]*\n+`)
	// Sentence terminators, CJK and Latin.
	sentenceEnd = regexp.MustCompile(`[。！？.!?]+[ \t]*`)
)

type Options struct {
	MinSize int
	MaxSize int
}

// Chunk splits text using the default size bounds.
func Chunk(text string) []string {
	return ChunkWithOptions(text, Options{MinSize: DefaultMinSize, MaxSize: DefaultMaxSize})
}

// ChunkWithOptions splits text into ordered, non-empty segments. Sizes are
// measured in runes. It never fails: input that defeats both the paragraph
// and sentence passes degrades to a single truncated chunk.
func ChunkWithOptions(text string, opts Options) []string {
	minSize := opts.MinSize
	maxSize := opts.MaxSize
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	if maxSize <= minSize {
		maxSize = DefaultMaxSize
		if maxSize <= minSize {
			maxSize = minSize + minSize/2
		}
	}

	if strings.TrimSpace(text) == "" {
		return nil
	}

	paragraphs := splitParagraphs(text)
	chunks := accumulateParagraphs(paragraphs, minSize, maxSize)

	resplit := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if runeLen(c) > int(float64(maxSize)*resplitFactor) {
			resplit = append(resplit, accumulateSentences(splitSentences(c), maxSize)...)
		} else {
			resplit = append(resplit, c)
		}
	}

	if len(resplit) == 0 {
		return []string{truncateRunes(strings.TrimSpace(text), maxSize)}
	}
	return resplit
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := paragraphSep.Split(text, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

// accumulateParagraphs greedily packs paragraphs into chunks of at most
// maxSize runes (plus one separator per join). A buffer that has not reached
// minSize may overflow up to maxSize*overflowFactor instead of being flushed
// small.
func accumulateParagraphs(paragraphs []string, minSize, maxSize int) []string {
	overflowLimit := int(float64(maxSize) * overflowFactor)

	var chunks []string
	var buf strings.Builder
	bufLen := 0

	flush := func() {
		if bufLen > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufLen = 0
		}
	}
	appendPara := func(p string) {
		if bufLen > 0 {
			buf.WriteByte('\n')
			bufLen++
		}
		buf.WriteString(p)
		bufLen += runeLen(p)
	}

	for _, p := range paragraphs {
		pLen := runeLen(p)
		switch {
		case bufLen == 0:
			appendPara(p)
		case bufLen+pLen+1 <= maxSize:
			appendPara(p)
		case bufLen >= minSize:
			flush()
			appendPara(p)
		case bufLen+pLen+1 <= overflowLimit:
			appendPara(p)
		default:
			flush()
			appendPara(p)
		}
	}
	flush()
	return chunks
}

func splitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		sentences = append(sentences, text[last:loc[1]])
		last = loc[1]
	}
	if last < len(text) {
		sentences = append(sentences, text[last:])
	}
	return sentences
}

// accumulateSentences re-packs sentences under maxSize with no overflow
// allowance. A single sentence longer than maxSize stays whole.
func accumulateSentences(sentences []string, maxSize int) []string {
	var chunks []string
	var buf strings.Builder
	bufLen := 0

	for _, s := range sentences {
		sLen := runeLen(s)
		if bufLen > 0 && bufLen+sLen > maxSize {
			chunks = append(chunks, strings.TrimSpace(buf.String()))
			buf.Reset()
			bufLen = 0
		}
		buf.WriteString(s)
		bufLen += sLen
	}
	if bufLen > 0 {
		chunks = append(chunks, strings.TrimSpace(buf.String()))
	}

	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
