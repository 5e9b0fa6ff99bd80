package lsp

// LSP method names handled or sent by the server.
const (
	methodInitialize             = "initialize"
	methodInitialized            = "initialized"
	methodShutdown               = "shutdown"
	methodExit                   = "exit"
	methodDidOpen                = "textDocument/didOpen"
	methodDidChange              = "textDocument/didChange"
	methodDidSave                = "textDocument/didSave"
	methodDidClose               = "textDocument/didClose"
	methodCompletion             = "textDocument/completion"
	methodCompletionResolve      = "completionItem/resolve"
	methodHover                  = "textDocument/hover"
	methodSignatureHelp          = "textDocument/signatureHelp"
	methodDocumentSymbol         = "textDocument/documentSymbol"
	methodFormatting             = "textDocument/formatting"
	methodWorkspaceSymbol        = "workspace/symbol"
	methodDidChangeConfiguration = "workspace/didChangeConfiguration"
	methodCancelRequest          = "$/cancelRequest"
	methodSetTrace               = "$/setTrace"
	methodShowMessage            = "window/showMessage"
)
