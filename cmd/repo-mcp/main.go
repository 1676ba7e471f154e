// Command repo-mcp serves read-only repository introspection over a
// JSON-line protocol on stdin/stdout.
package main

import (
	"os"

	"github.com/taggedzi/repo-mcp-go/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
