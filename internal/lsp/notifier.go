package lsp

import (
	"context"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Notifier shows messages to the user without waiting for an answer.
type Notifier interface {
	ShowMessage(ctx context.Context, typ protocol.MessageType, message string) error
}

// connNotifier sends window/showMessage on the client connection.
type connNotifier struct {
	conn jsonrpc2.Conn
}

func (n connNotifier) ShowMessage(ctx context.Context, typ protocol.MessageType, message string) error {
	return n.conn.Notify(ctx, methodShowMessage, &protocol.ShowMessageParams{Type: typ, Message: message})
}
