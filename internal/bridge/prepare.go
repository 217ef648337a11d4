package bridge

import (
	"encoding/json"
	"strings"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// conversationOnlyFields names the annotations stripped before a payload is
// ever serialized for a backend.
var conversationOnlyFields = []string{
	"provider", "api_type", "beta", "stream", "thinking",
	"max_steps", "max_duration_ms", "context_management",
}

// PrepareRequest converts a canonical Payload into the wire request for the
// given dialect: it strips conversation-layer fields, lifts/drops system and
// tool-role messages, flattens or preserves content blocks as the dialect
// requires, coalesces consecutive same-role messages, and converts tool
// definitions. The Stream field is intentionally never copied onto the wire
// request — streaming is negotiated at the transport layer, not the body.
func PrepareRequest(payload *models.Payload, dialect Dialect) (any, error) {
	if payload == nil {
		return nil, errNilPayload
	}
	switch dialect {
	case DialectAnthropic:
		return prepareAnthropic(payload), nil
	default:
		return prepareOpenAI(payload), nil
	}
}

var errNilPayload = jsonError("payload is nil")

type jsonError string

func (e jsonError) Error() string { return string(e) }

// --- Anthropic dialect -----------------------------------------------------

func prepareAnthropic(p *models.Payload) *AnthropicWireRequest {
	system := strings.TrimSpace(p.System)

	type rawMsg = struct {
		role   string
		blocks []models.ContentBlock
	}
	var raw []rawMsg
	for _, m := range p.Messages {
		switch m.Role {
		case models.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content.String()
			continue
		case models.RoleTool:
			// Tool results are re-encoded as tool_result blocks inside a
			// user message.
			raw = append(raw, rawMsg{role: "user", blocks: blocksOf(m.Content)})
		default:
			raw = append(raw, rawMsg{role: string(m.Role), blocks: blocksOf(m.Content)})
		}
	}

	raw = coalesceRaw(raw)

	out := &AnthropicWireRequest{
		Model:       p.Model,
		System:      system,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		ToolChoice:  p.ToolChoice,
	}
	for _, r := range raw {
		out.Messages = append(out.Messages, AnthropicWireMessage{Role: r.role, Content: r.blocks})
	}
	for _, t := range p.Tools {
		out.Tools = append(out.Tools, AnthropicWireTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return out
}

// blocksOf returns m's content as a block slice, wrapping a plain string as
// a single text block.
func blocksOf(c models.Content) []models.ContentBlock {
	if c.IsBlocks() {
		return append([]models.ContentBlock(nil), c.Blocks...)
	}
	if c.Text == "" {
		return nil
	}
	return []models.ContentBlock{{Kind: models.BlockText, Text: c.Text}}
}

// coalesceRaw merges adjacent same-role messages. When both sides are pure
// single-text-block messages, the merge collapses to one text block joined
// by "\n\n"; otherwise block arrays are concatenated in order to
// preserve tool_use/tool_result structure.
func coalesceRaw(msgs []struct {
	role   string
	blocks []models.ContentBlock
}) []struct {
	role   string
	blocks []models.ContentBlock
} {
	if len(msgs) == 0 {
		return msgs
	}
	out := msgs[:1]
	for _, m := range msgs[1:] {
		last := &out[len(out)-1]
		if last.role == m.role {
			if isPureText(last.blocks) && isPureText(m.blocks) {
				last.blocks[0].Text += "\n\n" + m.blocks[0].Text
				continue
			}
			last.blocks = append(last.blocks, m.blocks...)
			continue
		}
		out = append(out, m)
	}
	return out
}

func isPureText(blocks []models.ContentBlock) bool {
	return len(blocks) == 1 && blocks[0].Kind == models.BlockText
}

// --- OpenAI dialect ----------------------------------------------------

func prepareOpenAI(p *models.Payload) *OpenAIWireRequest {
	var msgs []OpenAIWireMessage

	system := strings.TrimSpace(p.System)
	for _, m := range p.Messages {
		if m.Role == models.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content.String()
		}
	}
	if system != "" {
		msgs = append(msgs, OpenAIWireMessage{Role: "system", Content: system})
	}

	for _, m := range p.Messages {
		if m.Role == models.RoleSystem {
			continue
		}
		msgs = append(msgs, openAIMessagesFor(m)...)
	}

	msgs = coalesceOpenAI(msgs)

	out := &OpenAIWireRequest{
		Model:       p.Model,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		ToolChoice:  p.ToolChoice,
		Messages:    msgs,
	}
	for _, t := range p.Tools {
		out.Tools = append(out.Tools, OpenAIWireTool{
			Type: "function",
			Function: OpenAIFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}

// openAIMessagesFor expands one canonical message into zero or more OpenAI
// wire messages: a tool_result block becomes its own role:"tool" message
// (the inverse of the Anthropic fold), a tool_use block attaches to
// the assistant message's tool_calls, and plain text/image blocks become
// string or multi-part content.
func openAIMessagesFor(m models.Message) []OpenAIWireMessage {
	blocks := blocksOf(m.Content)
	if m.Role == models.RoleTool {
		var out []OpenAIWireMessage
		for _, b := range blocks {
			if b.Kind == models.BlockToolResult {
				out = append(out, OpenAIWireMessage{
					Role:       "tool",
					ToolCallID: b.ToolUseRefID,
					Content:    b.ResultContent,
				})
			}
		}
		return out
	}

	var toolResults []OpenAIWireMessage
	var toolCalls []OpenAIToolCall
	var contentParts []OpenAIContentPart
	var plainText strings.Builder

	for _, b := range blocks {
		switch b.Kind {
		case models.BlockToolResult:
			toolResults = append(toolResults, OpenAIWireMessage{
				Role:       "tool",
				ToolCallID: b.ToolUseRefID,
				Content:    b.ResultContent,
			})
		case models.BlockToolUse:
			args, _ := json.Marshal(b.Input)
			toolCalls = append(toolCalls, OpenAIToolCall{
				ID:   b.ToolUseID,
				Type: "function",
				Function: OpenAIFunctionCall{
					Name:      b.Name,
					Arguments: string(args),
				},
			})
		case models.BlockText, models.BlockThinking:
			plainText.WriteString(b.Text)
			contentParts = append(contentParts, OpenAIContentPart{Type: "text", Text: b.Text})
		case models.BlockImage:
			if b.ImageSource != nil {
				url := b.ImageSource.URL
				if url == "" && b.ImageSource.Data != "" {
					url = "data:" + b.ImageSource.MediaType + ";base64," + b.ImageSource.Data
				}
				contentParts = append(contentParts, OpenAIContentPart{
					Type:     "image_url",
					ImageURL: &OpenAIImageURLPart{URL: url},
				})
			}
		}
	}

	var msg OpenAIWireMessage
	msg.Role = string(m.Role)
	switch {
	case len(contentParts) == 1 && contentParts[0].Type == "text":
		msg.Content = contentParts[0].Text
	case len(contentParts) > 0:
		msg.Content = contentParts
	}
	msg.ToolCalls = toolCalls

	out := make([]OpenAIWireMessage, 0, 1+len(toolResults))
	if msg.Content != nil || len(msg.ToolCalls) > 0 || len(toolResults) == 0 {
		out = append(out, msg)
	}
	out = append(out, toolResults...)
	return out
}

func coalesceOpenAI(msgs []OpenAIWireMessage) []OpenAIWireMessage {
	if len(msgs) == 0 {
		return msgs
	}
	out := msgs[:1]
	for _, m := range msgs[1:] {
		last := &out[len(out)-1]
		lastText, lastIsText := last.Content.(string)
		curText, curIsText := m.Content.(string)
		mergeable := last.Role == m.Role && lastIsText && curIsText &&
			len(last.ToolCalls) == 0 && len(m.ToolCalls) == 0 &&
			last.ToolCallID == "" && m.ToolCallID == ""
		if mergeable {
			last.Content = lastText + "\n\n" + curText
			continue
		}
		out = append(out, m)
	}
	return out
}
