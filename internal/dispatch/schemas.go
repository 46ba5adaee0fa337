package dispatch

import "minisearch/internal/protocol"

var toolDescriptions = map[string]string{
	protocol.ToolNameLookupByID:       "Look up one UK Biobank field by its numeric field id and return its full dictionary entry.",
	protocol.ToolNameSearchByKeyword:  "Search field names and descriptions by keyword, in English or Chinese. Exact name matches rank first.",
	protocol.ToolNameListCategory:     "List all fields of one dictionary category. The category name may be partial when unambiguous.",
	protocol.ToolNameResolveEncoding:  "Translate a coded value of a categorical field into its meaning, or list an encoding's values.",
	protocol.ToolNameRecommendRelated: "Recommend fields related to a seed field or a free-text research topic.",
	protocol.ToolNameListCategories:   "List every dictionary category with its field count.",
	protocol.ToolNameListRecommended:  "List the curated set of commonly used fields, optionally narrowed to one category.",
}

var toolSchemas = map[string]func() map[string]interface{}{
	protocol.ToolNameLookupByID:       lookupByIDSchema,
	protocol.ToolNameSearchByKeyword:  searchByKeywordSchema,
	protocol.ToolNameListCategory:     listCategorySchema,
	protocol.ToolNameResolveEncoding:  resolveEncodingSchema,
	protocol.ToolNameRecommendRelated: recommendRelatedSchema,
	protocol.ToolNameListCategories:   listCategoriesSchema,
	protocol.ToolNameListRecommended:  listRecommendedSchema,
}

func lookupByIDSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"field_id": map[string]interface{}{
				"type":        "integer",
				"description": "UK Biobank field id, e.g. 31 for Sex",
			},
		},
		"required":             []string{"field_id"},
		"additionalProperties": false,
	}
}

func searchByKeywordSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"keyword": map[string]interface{}{
				"type":        "string",
				"description": "search term, English or Chinese",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "maximum number of results (default 20, max 50)",
			},
		},
		"required":             []string{"keyword"},
		"additionalProperties": false,
	}
}

func listCategorySchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"category_name": map[string]interface{}{
				"type":        "string",
				"description": "category name, case-insensitive; a partial name works when unambiguous",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "maximum number of fields (default 50, max 200)",
			},
		},
		"required":             []string{"category_name"},
		"additionalProperties": false,
	}
}

func resolveEncodingSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"encoding_id": map[string]interface{}{
				"type":        "integer",
				"description": "encoding table id from the field entry",
			},
			"code": map[string]interface{}{
				"description": "coded value to translate; omit to list the encoding's values",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "maximum listed values when code is omitted (default 50, max 500)",
			},
		},
		"required":             []string{"encoding_id"},
		"additionalProperties": false,
	}
}

func recommendRelatedSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"field_id": map[string]interface{}{
				"type":        "integer",
				"description": "seed field id; recommendations share its category or vocabulary",
			},
			"keywords": map[string]interface{}{
				"type":        "string",
				"description": "free-text research topic, used instead of field_id",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "maximum number of recommendations (default 10, max 25)",
			},
		},
		"additionalProperties": false,
	}
}

func listCategoriesSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"properties":           map[string]interface{}{},
		"additionalProperties": false,
	}
}

func listRecommendedSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"category_name": map[string]interface{}{
				"type":        "string",
				"description": "optional category filter",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "maximum number of fields (default 50, max 200)",
			},
		},
		"additionalProperties": false,
	}
}
