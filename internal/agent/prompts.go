package agent

import "minisearch/internal/protocol"

const systemPromptEN = `You are a UK Biobank data dictionary assistant. You help researchers find and understand fields of the UK Biobank showcase.

Rules:
- Always answer from tool results, never from memory. Field ids, categories and encodings change between dictionary releases.
- When the user names a field id, call lookup_by_id. For topics, call search_by_keyword first.
- Coded values (like 0/1 for field 31) must be translated with resolve_encoding before you present them.
- When a lookup finds nothing, say so plainly and suggest a broader search; do not invent fields.
- Keep answers short: the field id, its name, its category, and what the user asked for.
- Answer in English.`

const systemPromptZH = `你是 UK Biobank 数据字典助手，帮助研究者查找和理解 UK Biobank 展示库中的字段。

规则：
- 所有回答必须基于工具结果，不要凭记忆作答。字段编号、类别和编码会随字典版本变化。
- 用户给出字段编号时调用 lookup_by_id；给出主题时先调用 search_by_keyword。
- 编码值（如字段 31 的 0/1）必须先用 resolve_encoding 翻译再呈现。
- 查不到时如实说明并建议放宽搜索，不要编造字段。
- 回答保持简短：字段编号、名称、类别，以及用户问到的内容。
- 用中文回答。`

func systemPrompt(lang Language) string {
	if lang == LanguageChinese {
		return systemPromptZH
	}
	return systemPromptEN
}

var errorMessagesEN = map[string]string{
	protocol.ErrorCodeNotFound:         "I could not find that in the data dictionary. Please check the field id or try a broader keyword.",
	protocol.ErrorCodeInvalidArgument:  "I could not understand part of the request. Please rephrase the question.",
	protocol.ErrorCodeTimeout:          "The answer took too long to generate. Please try again.",
	protocol.ErrorCodeToolLoopExceeded: "Sorry, this question needed too many dictionary lookups in one turn. Please ask something more specific.",
	protocol.ErrorCodeRateLimited:      "Too many requests right now. Please wait a moment and try again.",
	protocol.ErrorCodeAPIError:         "The language model service failed. Please try again shortly.",
	protocol.ErrorCodeUnauthorized:     "The language model service rejected this server's credentials.",
	protocol.ErrorCodeStoreUnavailable: "The dictionary database is unavailable.",
	protocol.ErrorCodeUnexpected:       "Something went wrong while answering. Please try again.",
}

var errorMessagesZH = map[string]string{
	protocol.ErrorCodeNotFound:         "在数据字典中没有找到相关内容，请检查字段编号或换一个更宽泛的关键词。",
	protocol.ErrorCodeInvalidArgument:  "无法理解请求中的部分内容，请换一种问法。",
	protocol.ErrorCodeTimeout:          "生成回答超时了，请重试。",
	protocol.ErrorCodeToolLoopExceeded: "抱歉，这个问题一轮内需要的字典查询次数过多，请提一个更具体的问题。",
	protocol.ErrorCodeRateLimited:      "当前请求过于频繁，请稍候再试。",
	protocol.ErrorCodeAPIError:         "语言模型服务出错，请稍后重试。",
	protocol.ErrorCodeUnauthorized:     "语言模型服务拒绝了本服务的凭证。",
	protocol.ErrorCodeStoreUnavailable: "字典数据库不可用。",
	protocol.ErrorCodeUnexpected:       "回答过程中出现问题，请重试。",
}

// errorMessage renders a stable error code as user-facing text in the turn
// language. Unknown codes fall back to the generic message.
func errorMessage(code string, lang Language) string {
	msgs := errorMessagesEN
	if lang == LanguageChinese {
		msgs = errorMessagesZH
	}
	if msg, ok := msgs[code]; ok {
		return msg
	}
	return msgs[protocol.ErrorCodeUnexpected]
}
