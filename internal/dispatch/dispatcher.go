package dispatch

import (
	"context"
	"fmt"

	"minisearch/internal/catalog"
	"minisearch/internal/model"
	"minisearch/internal/protocol"
)

// Limits applied to listing operations. The model can lower them per call
// but never raise them past the ceiling.
const (
	defaultSearchLimit   = 20
	maxSearchLimit       = 50
	defaultRelatedLimit  = 10
	maxRelatedLimit      = 25
	defaultListLimit     = 50
	maxListLimit         = 200
	defaultEncodingLimit = 50
	maxEncodingLimit     = 500
)

var toolOrder = []string{
	protocol.ToolNameLookupByID,
	protocol.ToolNameSearchByKeyword,
	protocol.ToolNameListCategory,
	protocol.ToolNameResolveEncoding,
	protocol.ToolNameRecommendRelated,
	protocol.ToolNameListCategories,
	protocol.ToolNameListRecommended,
}

// Definition describes one tool the dispatcher can execute, in the shape
// both the GLM function declaration and the MCP tool listing are built from.
type Definition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Dispatcher executes tool calls against the immutable catalog. Every
// operation is a pure read, so a single Dispatcher serves all goroutines.
type Dispatcher struct {
	cat *catalog.Catalog
}

func New(cat *catalog.Catalog) *Dispatcher {
	return &Dispatcher{cat: cat}
}

// Definitions returns the tool declarations in their canonical order.
func (d *Dispatcher) Definitions() []Definition {
	defs := make([]Definition, 0, len(toolOrder))
	for _, name := range toolOrder {
		defs = append(defs, Definition{
			Name:        name,
			Description: toolDescriptions[name],
			InputSchema: toolSchemas[name](),
		})
	}
	return defs
}

// Dispatch validates the call's arguments and runs the operation. Argument
// problems come back as INVALID_ARGUMENT, missing entities as NOT_FOUND;
// both are recoverable and meant to be fed back to the model.
func (d *Dispatcher) Dispatch(_ context.Context, call model.ToolCall) (model.ToolResult, error) {
	if call.Args == nil {
		call.Args = map[string]interface{}{}
	}

	switch call.Op {
	case model.OpLookupByID:
		return d.lookupByID(call.Args)
	case model.OpSearchByKeyword:
		return d.searchByKeyword(call.Args)
	case model.OpListCategory:
		return d.listCategory(call.Args)
	case model.OpResolveEncoding:
		return d.resolveEncoding(call.Args)
	case model.OpRecommendRelated:
		return d.recommendRelated(call.Args)
	case model.OpListCategories:
		return d.listCategories(call.Args)
	case model.OpListRecommended:
		return d.listRecommended(call.Args)
	default:
		return model.ToolResult{}, model.InvalidArgument("unknown operation")
	}
}

func (d *Dispatcher) lookupByID(args map[string]interface{}) (model.ToolResult, error) {
	if err := assertNoUnknownArguments(args, map[string]struct{}{"field_id": {}}); err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}
	id, err := parseRequiredInteger(args, "field_id")
	if err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}

	field, lookupErr := d.cat.LookupByID(id)
	if lookupErr != nil {
		return model.ToolResult{}, lookupErr
	}
	return model.ToolResult{
		Summary:    fmt.Sprintf("field %d: %s", field.ID, field.Name),
		Structured: field,
	}, nil
}

func (d *Dispatcher) searchByKeyword(args map[string]interface{}) (model.ToolResult, error) {
	allowed := map[string]struct{}{"keyword": {}, "limit": {}}
	if err := assertNoUnknownArguments(args, allowed); err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}
	keyword, err := parseRequiredString(args, "keyword")
	if err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}
	limit, err := parseLimit(args, defaultSearchLimit, maxSearchLimit)
	if err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}

	fields := d.cat.SearchByKeyword(keyword, limit)
	return model.ToolResult{
		Summary: fmt.Sprintf("%d fields match %q", len(fields), keyword),
		Structured: map[string]interface{}{
			"keyword": keyword,
			"count":   len(fields),
			"fields":  fields,
		},
	}, nil
}

func (d *Dispatcher) listCategory(args map[string]interface{}) (model.ToolResult, error) {
	allowed := map[string]struct{}{"category_name": {}, "limit": {}}
	if err := assertNoUnknownArguments(args, allowed); err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}
	name, err := parseRequiredString(args, "category_name")
	if err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}
	limit, err := parseLimit(args, defaultListLimit, maxListLimit)
	if err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}

	fields, display, listErr := d.cat.ListCategory(name, limit)
	if listErr != nil {
		return model.ToolResult{}, listErr
	}
	return model.ToolResult{
		Summary: fmt.Sprintf("%d fields in category %q", len(fields), display),
		Structured: map[string]interface{}{
			"category": display,
			"count":    len(fields),
			"fields":   fields,
		},
	}, nil
}

func (d *Dispatcher) resolveEncoding(args map[string]interface{}) (model.ToolResult, error) {
	allowed := map[string]struct{}{"encoding_id": {}, "code": {}, "limit": {}}
	if err := assertNoUnknownArguments(args, allowed); err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}
	ref, err := parseRequiredInteger(args, "encoding_id")
	if err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}

	if raw, ok := args["code"]; ok && raw != nil {
		code, err := parseCodeValue(raw)
		if err != nil {
			return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
		}
		entry, resolveErr := d.cat.ResolveEncoding(ref, code)
		if resolveErr != nil {
			return model.ToolResult{}, resolveErr
		}
		return model.ToolResult{
			Summary: fmt.Sprintf("encoding %d code %s = %s", ref, entry.Code, entry.Label),
			Structured: map[string]interface{}{
				"encoding_id": ref,
				"entry":       entry,
			},
		}, nil
	}

	limit, err := parseLimit(args, defaultEncodingLimit, maxEncodingLimit)
	if err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}
	entries, listErr := d.cat.ListEncoding(ref, limit)
	if listErr != nil {
		return model.ToolResult{}, listErr
	}
	return model.ToolResult{
		Summary: fmt.Sprintf("encoding %d has %d listed values", ref, len(entries)),
		Structured: map[string]interface{}{
			"encoding_id": ref,
			"count":       len(entries),
			"entries":     entries,
		},
	}, nil
}

func (d *Dispatcher) recommendRelated(args map[string]interface{}) (model.ToolResult, error) {
	allowed := map[string]struct{}{"field_id": {}, "keywords": {}, "limit": {}}
	if err := assertNoUnknownArguments(args, allowed); err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}
	limit, err := parseLimit(args, defaultRelatedLimit, maxRelatedLimit)
	if err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}

	seedID, hasSeed, err := parseOptionalInteger(args, "field_id")
	if err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}
	keywords, err := parseOptionalString(args, "keywords")
	if err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}

	if hasSeed == (keywords != "") {
		return model.ToolResult{}, model.InvalidArgument("exactly one of field_id and keywords is required")
	}

	var fields []model.ScoredField
	if hasSeed {
		fields = d.cat.RecommendRelated(seedID, limit)
	} else {
		fields = d.cat.RecommendByKeywords(keywords, limit)
	}
	return model.ToolResult{
		Summary: fmt.Sprintf("%d related fields", len(fields)),
		Structured: map[string]interface{}{
			"count":  len(fields),
			"fields": fields,
		},
	}, nil
}

func (d *Dispatcher) listCategories(args map[string]interface{}) (model.ToolResult, error) {
	if err := assertNoUnknownArguments(args, map[string]struct{}{}); err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}
	categories := d.cat.Categories()
	return model.ToolResult{
		Summary: fmt.Sprintf("%d categories", len(categories)),
		Structured: map[string]interface{}{
			"count":      len(categories),
			"categories": categories,
		},
	}, nil
}

func (d *Dispatcher) listRecommended(args map[string]interface{}) (model.ToolResult, error) {
	allowed := map[string]struct{}{"category_name": {}, "limit": {}}
	if err := assertNoUnknownArguments(args, allowed); err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}
	category, err := parseOptionalString(args, "category_name")
	if err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}
	limit, err := parseLimit(args, defaultListLimit, maxListLimit)
	if err != nil {
		return model.ToolResult{}, model.InvalidArgument("%s", err.Error())
	}

	fields := d.cat.Recommended(category, limit)
	return model.ToolResult{
		Summary: fmt.Sprintf("%d recommended fields", len(fields)),
		Structured: map[string]interface{}{
			"count":  len(fields),
			"fields": fields,
		},
	}, nil
}
