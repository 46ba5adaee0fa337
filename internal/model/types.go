package model

import "minisearch/internal/protocol"

// FieldRecord is one entry of the UK Biobank field dictionary. Records are
// loaded once at startup and never mutated afterwards.
type FieldRecord struct {
	ID           int    `json:"field_id"`
	Name         string `json:"title"`
	Description  string `json:"notes,omitempty"`
	Category     string `json:"category,omitempty"`
	Units        string `json:"units,omitempty"`
	Participants int    `json:"num_participants,omitempty"`
	// EncodingRef points at the value-encoding table for categorical
	// fields; 0 means the field has no encoding.
	EncodingRef int `json:"encoding_id,omitempty"`
}

// EncodingEntry maps one coded value of a categorical field to its meaning.
// Codes are kept in their textual form so integer and string encodings share
// one representation.
type EncodingEntry struct {
	Code  string `json:"value"`
	Label string `json:"meaning"`
}

// ScoredField is a field record with a relatedness score attached.
type ScoredField struct {
	FieldRecord
	Score float64 `json:"score"`
}

// CategoryInfo summarizes one category of the dictionary.
type CategoryInfo struct {
	Name       string `json:"name"`
	FieldCount int    `json:"field_count"`
}

// Op is the closed set of dispatcher operations. Tool names coming off the
// wire are mapped to an Op before any dispatch happens; there is no dynamic
// dispatch on arbitrary strings.
type Op int

const (
	OpUnknown Op = iota
	OpLookupByID
	OpSearchByKeyword
	OpListCategory
	OpResolveEncoding
	OpRecommendRelated
	OpListCategories
	OpListRecommended
)

var opNames = map[Op]string{
	OpLookupByID:       protocol.ToolNameLookupByID,
	OpSearchByKeyword:  protocol.ToolNameSearchByKeyword,
	OpListCategory:     protocol.ToolNameListCategory,
	OpResolveEncoding:  protocol.ToolNameResolveEncoding,
	OpRecommendRelated: protocol.ToolNameRecommendRelated,
	OpListCategories:   protocol.ToolNameListCategories,
	OpListRecommended:  protocol.ToolNameListRecommended,
}

// Name returns the wire name of the operation, or "" for OpUnknown.
func (o Op) Name() string {
	return opNames[o]
}

// OpFromName maps a wire tool name to its Op. The second return value is
// false for names outside the closed set.
func OpFromName(name string) (Op, bool) {
	for op, n := range opNames {
		if n == name {
			return op, true
		}
	}
	return OpUnknown, false
}

// ToolCall is one lookup requested by the model during a turn.
type ToolCall struct {
	// ID is the provider-assigned call id, echoed back in the tool
	// result message.
	ID   string
	Op   Op
	Args map[string]interface{}
}

// ToolResult carries the outcome of a dispatched call: a one-line summary
// for humans and a JSON-encodable payload handed back to the model. Results
// are discarded when the turn ends.
type ToolResult struct {
	Summary    string
	Structured interface{}
}
