package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/clicker/internal/adapters/http/client"
	"github.com/okian/clicker/internal/domain/document"
)

const maxDocumentBytes = 4 << 20

// commandContext holds the persistent flags shared by every subcommand.
type commandContext struct {
	server  string
	json    bool
	verbose bool
}

func (c *commandContext) store() *client.Store {
	return client.New(c.server)
}

// readDocument parses the document at path, or stdin for "-".
func readDocument(cmd *cobra.Command, path string) (document.Document, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return document.Document{}, err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes))
	if err != nil {
		return document.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := document.ParseJSON(data)
	if err != nil {
		return document.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
