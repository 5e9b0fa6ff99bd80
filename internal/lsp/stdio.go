package lsp

import (
	"io"
	"os"
)

// stdio joins stdin and stdout into the connection a client spawns the
// server with.
type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error {
	return os.Stdin.Close()
}

// Stdio returns a connection over the process's standard streams.
func Stdio() io.ReadWriteCloser {
	return stdio{Reader: os.Stdin, Writer: os.Stdout}
}
