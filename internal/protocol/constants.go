package protocol

const (
	ToolNameLookupByID       = "lookup_by_id"
	ToolNameSearchByKeyword  = "search_by_keyword"
	ToolNameListCategory     = "list_category"
	ToolNameResolveEncoding  = "resolve_encoding"
	ToolNameRecommendRelated = "recommend_related"
	ToolNameListCategories   = "list_categories"
	ToolNameListRecommended  = "list_recommended"
)

const (
	ErrorCodeNotFound         = "NOT_FOUND"
	ErrorCodeInvalidArgument  = "INVALID_ARGUMENT"
	ErrorCodeTimeout          = "TIMEOUT"
	ErrorCodeToolLoopExceeded = "TOOL_LOOP_EXCEEDED"
	ErrorCodeRateLimited      = "RATE_LIMITED"
	ErrorCodeAPIError         = "API_ERROR"
	ErrorCodeUnauthorized     = "UNAUTHORIZED"
	ErrorCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrorCodeSessionNotFound  = "SESSION_NOT_FOUND"
	ErrorCodeUnexpected       = "UNEXPECTED_ERROR"
)

const (
	DefaultListenAddr = "127.0.0.1:8000"
	DefaultMCPPath    = "/mcp"

	MCPSessionHeader = "MCP-Session-Id"
)
