// Package mcptool exposes the three Model-Context-Protocol tool
// contracts named in the external-interfaces section: search, ingest,
// and feedback. The wire framing itself (JSON-RPC over stdio, SSE, or
// whatever transport the MCP server binds) is an external collaborator;
// this package only implements the logical request/response shape and
// the validation each tool's contract requires.
package mcptool

import (
	"fmt"

	"github.com/bmeyer99/docaiche/internal/apperr"
)

// ToolHandler is the capability every MCP tool in this package
// implements, replacing the deep "tool base class" hierarchy the
// original Python surface used with a single flat interface.
type ToolHandler interface {
	Name() string
}

// priorityScore maps the queue's named priority bands onto the
// SearchRequest.Priority float scale the admission queue orders on.
// Unknown or empty names fall back to "normal".
func priorityScore(name string) float64 {
	switch name {
	case "critical":
		return 10
	case "high":
		return 7.5
	case "normal", "":
		return 5
	case "low":
		return 2.5
	case "batch":
		return 0
	default:
		return 5
	}
}

func validationErrf(format string, args ...any) error {
	return apperr.Validation(fmt.Sprintf(format, args...))
}
