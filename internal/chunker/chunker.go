// Package chunker splits raw document text into bounded-size segments
// suitable for embedding.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

// Strategy selects how a document is split.
type Strategy string

const (
	// StrategyWindow emits overlapping windows of ChunkSize words, each
	// window advancing by ChunkSize-ChunkOverlap words.
	StrategyWindow Strategy = "window"

	// StrategyParagraph splits on blank-line boundaries, accumulating small
	// paragraphs up to the word budget and splitting oversize paragraphs
	// into roughly equal pieces.
	StrategyParagraph Strategy = "paragraph"
)

// Options configures a Chunker. Word counts, not characters.
type Options struct {
	// Strategy selects the splitting strategy.
	Strategy Strategy

	// ChunkSize is the word budget per chunk.
	ChunkSize int

	// ChunkOverlap is the number of words shared between consecutive
	// windows. Only used by StrategyWindow.
	ChunkOverlap int

	// MinParagraphWords is the threshold below which a paragraph is
	// accumulated with its neighbors instead of being flushed on its own.
	// Only used by StrategyParagraph.
	MinParagraphWords int
}

// DefaultOptions returns the default chunking configuration.
func DefaultOptions() Options {
	return Options{
		Strategy:          StrategyParagraph,
		ChunkSize:         1000,
		ChunkOverlap:      200,
		MinParagraphWords: 100,
	}
}

// Chunker splits text into ordered, bounded chunks.
type Chunker struct {
	opts Options
}

// New creates a Chunker, validating the options.
func New(opts Options) (*Chunker, error) {
	if opts.Strategy == "" {
		opts.Strategy = StrategyParagraph
	}
	if opts.Strategy != StrategyWindow && opts.Strategy != StrategyParagraph {
		return nil, fmt.Errorf("unknown chunking strategy: %q", opts.Strategy)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}
	if opts.Strategy == StrategyWindow && opts.ChunkOverlap >= opts.ChunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", opts.ChunkOverlap, opts.ChunkSize)
	}
	if opts.MinParagraphWords <= 0 {
		opts.MinParagraphWords = DefaultOptions().MinParagraphWords
	}

	return &Chunker{opts: opts}, nil
}

// Chunk splits text into chunks, preserving source word order. Empty or
// whitespace-only input yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	switch c.opts.Strategy {
	case StrategyWindow:
		return c.chunkWindow(text)
	default:
		return c.chunkParagraphs(text)
	}
}

// chunkWindow splits on whitespace and emits overlapping word windows. The
// final window is pinned to the end of the document, so every word appears
// in at least one chunk and no trailing sliver chunk is produced.
func (c *Chunker) chunkWindow(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	size := c.opts.ChunkSize
	step := size - c.opts.ChunkOverlap

	var chunks []string
	for start := 0; ; start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}

	return chunks
}

var paragraphSep = regexp.MustCompile(`\n[ \t]*\n+`)

// chunkParagraphs splits on blank-line boundaries and applies the word
// budget paragraph by paragraph.
func (c *Chunker) chunkParagraphs(text string) []string {
	var chunks []string

	// Pending small paragraphs accumulated toward one chunk.
	var pending []string
	pendingWords := 0

	flush := func() {
		if len(pending) > 0 {
			chunks = append(chunks, strings.Join(pending, "\n\n"))
			pending = nil
			pendingWords = 0
		}
	}

	for _, para := range paragraphSep.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		words := strings.Fields(para)

		switch {
		case len(words) > c.opts.ChunkSize:
			// Oversize paragraph: flush anything pending, then split the
			// paragraph into roughly equal pieces under the budget.
			flush()
			chunks = append(chunks, splitEven(words, c.opts.ChunkSize)...)

		case len(words) >= c.opts.MinParagraphWords:
			// Within budget but substantial: its own chunk.
			flush()
			chunks = append(chunks, para)

		default:
			// Small paragraph: accumulate, flushing first if adding it
			// would exceed the budget.
			if pendingWords+len(words) > c.opts.ChunkSize {
				flush()
			}
			pending = append(pending, para)
			pendingWords += len(words)
		}
	}
	flush()

	return chunks
}

// splitEven splits words into ceil(len/limit) pieces whose sizes differ by
// at most one word.
func splitEven(words []string, limit int) []string {
	n := (len(words) + limit - 1) / limit
	base := len(words) / n
	extra := len(words) % n

	pieces := make([]string, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		pieces = append(pieces, strings.Join(words[start:start+size], " "))
		start += size
	}
	return pieces
}
