package core

import "time"

// Role identifies the author of a conversation message.
type Role int

const (
	// RoleSystem marks instruction messages injected by the application.
	RoleSystem Role = iota + 1
	// RoleHuman marks messages authored by the user.
	RoleHuman
	// RoleAssistant marks messages produced by the language model.
	RoleAssistant
)

// String returns the wire name of the role ("system", "human", "assistant").
func (r Role) String() string {
	switch r {
	case RoleSystem:
		return "system"
	case RoleHuman:
		return "human"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Message is a single entry in a conversation transcript.
// Messages are immutable once created; a transcript is an ordered sequence.
type Message struct {
	Role    Role
	Content string
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// HumanMessage builds a human message.
func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

// AssistantMessage builds an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// RewriteOutcome tags the result of the query rewrite advisor.
type RewriteOutcome int

const (
	// RewriteSearch means retrieval is worth doing with the refined query.
	RewriteSearch RewriteOutcome = iota + 1
	// RewriteSkip means the model decided retrieval is not needed.
	RewriteSkip
	// RewriteMalformed means the model call failed or its output did not
	// parse; callers must degrade to the no-retrieval path.
	RewriteMalformed
)

// RewriteDecision is the advisor's verdict for one turn. Transient, never
// persisted. RefinedQuery is only meaningful when Outcome is RewriteSearch.
type RewriteDecision struct {
	Outcome      RewriteOutcome
	RefinedQuery string
}

// WorthSearching reports whether the decision approves a retrieval call.
func (d RewriteDecision) WorthSearching() bool {
	return d.Outcome == RewriteSearch
}

// RetrievedChunk is one passage returned by a similarity search, in the
// store's descending-similarity order. Source is the display label resolved
// by the retrieval service; Metadata is the raw mapping persisted with the
// chunk at ingestion time.
type RetrievedChunk struct {
	Content  string
	Source   string
	Metadata map[string]string
}

// QueryResult is the structured outcome of one orchestrated query turn.
// It is returned to the caller and never persisted.
type QueryResult struct {
	Response        string             `json:"response"`
	ContextDocs     int                `json:"context_docs"`
	DocumentSources []string           `json:"document_sources"`
	ModelUsed       string             `json:"model_used"`
	ProcessingTime  float64            `json:"processing_time"`
	Metrics         map[string]float64 `json:"metrics"`
}

// IngestFailure records one document that could not be ingested.
type IngestFailure struct {
	Key string `json:"file"`
	Err string `json:"error"`
}

// IngestReport summarizes one ingestion batch. Per-document failures are
// isolated: a failed document appears in Failed and does not abort the batch.
type IngestReport struct {
	Processed   []string        `json:"processed_files"`
	Failed      []IngestFailure `json:"failed_files"`
	TotalChunks int             `json:"total_chunks"`
	Elapsed     time.Duration   `json:"-"`
}
