package config

import "time"

// Token budgets. The completion window is split between the system prompt,
// the model's generation, the current message, retrieved context and
// conversation history; history gets whatever remains.
const (
	// TotalBudget is the model context window in tokens.
	TotalBudget = 8192

	// SystemReserve is the portion of the window held back for the system
	// prompt (base prompt plus the formatted retrieval block).
	SystemReserve = 1000

	// GenerationReserve is the portion of the window held back for the
	// model's reply.
	GenerationReserve = 1192

	// HistoryFloor guarantees at least this much room for history even
	// with a maximum-length current message.
	HistoryFloor = 500

	// MaxMessageTokens is the hard limit for a single user message.
	// Messages above it are rejected before any provider call is made.
	MaxMessageTokens = TotalBudget - SystemReserve - GenerationReserve - HistoryFloor

	// MessageOverheadTokens is the per-message framing cost (role plus
	// formatting) the provider charges on top of the content tokens.
	// Must track what the downstream model actually charges.
	MessageOverheadTokens = 4

	// ProtectLastN messages are always kept verbatim during compression
	// to preserve immediate conversational continuity.
	ProtectLastN = 6

	// RecompressFraction: once the messages accumulated after a cached
	// summary exceed this fraction of the history budget, the summary is
	// regenerated to fold them in.
	RecompressFraction = 0.8
)

// Retrieval tuning.
const (
	// RagTopK is the number of passages injected per turn.
	RagTopK = 6

	// RagBudgetTokens bounds the formatted retrieval block.
	RagBudgetTokens = 2000

	// RagCharsPerToken approximates tokens when trimming the retrieval
	// block (4 chars per token works for English prose).
	RagCharsPerToken = 4

	// FusionK is the reciprocal-rank-fusion constant.
	FusionK = 60

	// CandidateMultiplier: each search branch requests topK times this
	// many candidates so fusion has enough overlap to work with.
	CandidateMultiplier = 3

	// NameMatchThreshold is the minimum fuzzy partial ratio (0-100) for a
	// query to be narrowed to a single named document.
	NameMatchThreshold = 80
)

// Document chunking (token windows).
const (
	ChunkSizeTokens    = 512
	ChunkOverlapTokens = 64
)

// Timeouts for external calls. Every outbound request carries one of
// these deadlines; on expiry the caller degrades to its documented
// fallback instead of retrying.
const (
	EmbedTimeout     = 30 * time.Second
	SearchTimeout    = 10 * time.Second
	SummarizeTimeout = 15 * time.Second
	ChatTimeout      = 120 * time.Second
	IngestTimeout    = 10 * time.Minute
)
