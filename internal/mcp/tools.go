package mcp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"minisearch/internal/model"
	"minisearch/internal/protocol"
)

type toolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

type toolCallResult struct {
	Content           []toolContentItem `json:"content"`
	StructuredContent interface{}       `json:"structuredContent,omitempty"`
	IsError           bool              `json:"isError,omitempty"`
}

type toolContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (s *Server) handleToolsList(w http.ResponseWriter, id interface{}) {
	writeResult(w, http.StatusOK, id, map[string]interface{}{
		"tools": s.dispatcher.Definitions(),
	})
}

func (s *Server) handleToolsCall(r *http.Request, w http.ResponseWriter, rawParams json.RawMessage, id interface{}) {
	params, err := parseToolsCallParams(rawParams)
	if err != nil {
		writeResponse(w, http.StatusBadRequest, rpcResponse{
			JSONRPC: "2.0",
			ID:      id,
			Error: &rpcError{
				Code:    -32600,
				Message: err.Error(),
				Data:    &rpcErrorData{Code: protocol.ErrorCodeInvalidArgument},
			},
		})
		return
	}

	op, ok := model.OpFromName(params.Name)
	if !ok {
		writeResult(w, http.StatusOK, id, newToolErrorResult(
			protocol.ErrorCodeNotFound,
			fmt.Sprintf("unknown tool: %s", params.Name),
			false,
		))
		return
	}

	result, dispatchErr := s.dispatcher.Dispatch(r.Context(), model.ToolCall{Op: op, Args: params.Arguments})
	if dispatchErr != nil {
		code := model.CodeOf(dispatchErr)
		retryable := false
		if coded, isCoded := dispatchErr.(*model.CodedError); isCoded {
			retryable = coded.Retryable
		}
		s.logf("mcp: %s failed: %v", params.Name, dispatchErr)
		writeResult(w, http.StatusOK, id, newToolErrorResult(code, dispatchErr.Error(), retryable))
		return
	}

	writeResult(w, http.StatusOK, id, toolCallResult{
		Content:           []toolContentItem{{Type: "text", Text: result.Summary}},
		StructuredContent: result.Structured,
	})
}

func parseToolsCallParams(raw json.RawMessage) (toolsCallParams, error) {
	if len(raw) == 0 {
		return toolsCallParams{}, fmt.Errorf("params is required")
	}

	var params toolsCallParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return toolsCallParams{}, fmt.Errorf("invalid tools/call params")
	}

	params.Name = strings.TrimSpace(params.Name)
	if params.Name == "" {
		return toolsCallParams{}, fmt.Errorf("tools/call params.name is required")
	}
	if params.Arguments == nil {
		params.Arguments = map[string]interface{}{}
	}

	return params, nil
}

func newToolErrorResult(code, message string, retryable bool) toolCallResult {
	return toolCallResult{
		IsError: true,
		Content: []toolContentItem{
			{Type: "text", Text: fmt.Sprintf("ERROR: %s: %s", code, message)},
		},
		StructuredContent: map[string]interface{}{
			"error": map[string]interface{}{
				"code":      code,
				"message":   message,
				"retryable": retryable,
			},
		},
	}
}
