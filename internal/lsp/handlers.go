package lsp

import (
	"context"
	"encoding/json"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/odatakit/odatakit/internal/format"
	"github.com/odatakit/odatakit/internal/tooling"
)

// handleTextDocumentCompletion handles completion requests
func (s *Server) handleTextDocumentCompletion(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.CompletionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse completion params")
	}

	docURI := string(params.TextDocument.URI)
	completions, err := s.api.GetCompletions(docURI, convertPosition(params.Position))
	if err != nil {
		s.logger.Warn("Error getting completions", zap.String("uri", docURI), zap.Error(err))
		return s.replyWithError(ctx, reply, jsonrpc2.InternalError, "Failed to get completions")
	}

	items := make([]protocol.CompletionItem, 0, len(completions))
	for _, c := range completions {
		item := protocol.CompletionItem{
			Label:            c.Label,
			Kind:             convertCompletionKind(c.Kind),
			Detail:           c.Detail,
			InsertText:       c.InsertText,
			InsertTextFormat: protocol.InsertTextFormatPlainText,
		}
		if c.Documentation != "" {
			item.Documentation = protocol.MarkupContent{
				Kind:  protocol.Markdown,
				Value: c.Documentation,
			}
		}
		if c.InsertText != "" {
			// keep client-side filtering on the inserted text, not the $-prefixed label
			item.FilterText = c.InsertText
		}
		items = append(items, item)
	}

	result := protocol.CompletionList{
		IsIncomplete: false,
		Items:        items,
	}

	return reply(ctx, result, nil)
}

// handleTextDocumentHover handles hover requests
func (s *Server) handleTextDocumentHover(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.HoverParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse hover params")
	}

	docURI := string(params.TextDocument.URI)
	hover, err := s.api.GetHover(docURI, convertPosition(params.Position))
	if err != nil {
		s.logger.Warn("Error getting hover", zap.String("uri", docURI), zap.Error(err))
		return s.replyWithError(ctx, reply, jsonrpc2.InternalError, "Failed to get hover information")
	}

	if hover == nil {
		return reply(ctx, nil, nil)
	}

	r := convertRange(hover.Range)
	result := protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: hover.Contents,
		},
		Range: &r,
	}

	return reply(ctx, result, nil)
}

// handleTextDocumentDefinition handles go-to-definition requests
func (s *Server) handleTextDocumentDefinition(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DefinitionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse definition params")
	}

	docURI := string(params.TextDocument.URI)
	locations, err := s.api.GetDefinition(docURI, convertPosition(params.Position))
	if err != nil {
		s.logger.Warn("Error getting definition", zap.String("uri", docURI), zap.Error(err))
		return s.replyWithError(ctx, reply, jsonrpc2.InternalError, "Failed to get definition")
	}

	if len(locations) == 0 {
		return reply(ctx, nil, nil)
	}

	result := make([]protocol.Location, 0, len(locations))
	for _, loc := range locations {
		result = append(result, protocol.Location{
			URI:   protocol.DocumentURI(loc.URI),
			Range: convertRange(loc.Range),
		})
	}

	return reply(ctx, result, nil)
}

// handleTextDocumentFormatting handles whole-document formatting requests
func (s *Server) handleTextDocumentFormatting(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DocumentFormattingParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse formatting params")
	}

	cfg := s.format
	if cfg == nil {
		cfg = format.DefaultConfig()
		if params.Options.TabSize > 0 {
			cfg.IndentSize = int(params.Options.TabSize)
		}
	}

	docURI := string(params.TextDocument.URI)
	edits, err := s.api.FormatDocument(docURI, cfg)
	if err != nil {
		s.logger.Warn("Error formatting document", zap.String("uri", docURI), zap.Error(err))
		return s.replyWithError(ctx, reply, jsonrpc2.InternalError, "Failed to format document")
	}

	result := make([]protocol.TextEdit, 0, len(edits))
	for _, edit := range edits {
		result = append(result, protocol.TextEdit{
			Range:   convertRange(edit.Range),
			NewText: edit.NewText,
		})
	}

	return reply(ctx, result, nil)
}

// Helper functions to convert between tooling and LSP types

func convertPosition(pos protocol.Position) tooling.Position {
	return tooling.Position{
		Line:      int(pos.Line),
		Character: int(pos.Character),
	}
}

func convertRange(r tooling.Range) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{
			Line:      uint32(r.Start.Line),
			Character: uint32(r.Start.Character),
		},
		End: protocol.Position{
			Line:      uint32(r.End.Line),
			Character: uint32(r.End.Character),
		},
	}
}

func convertCompletionKind(kind tooling.CompletionKind) protocol.CompletionItemKind {
	switch kind {
	case tooling.CompletionKindKeyword:
		return protocol.CompletionItemKindKeyword
	case tooling.CompletionKindEnumMember:
		return protocol.CompletionItemKindEnumMember
	case tooling.CompletionKindFunction:
		return protocol.CompletionItemKindFunction
	case tooling.CompletionKindClass:
		return protocol.CompletionItemKindClass
	case tooling.CompletionKindProperty:
		return protocol.CompletionItemKindProperty
	default:
		return protocol.CompletionItemKindText
	}
}
