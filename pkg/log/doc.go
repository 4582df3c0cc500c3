/*
Package log provides structured logging for vaultmesh using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity level for production debugging.

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all vaultmesh packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithNodeID: Add storage node address context
  - WithFileID: Add file ID context
  - WithRequestID: Add queued request ID context

# Usage

Initializing the Logger:

	import "github.com/vaultmesh/vaultmesh/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Component Loggers:

	aggLog := log.WithComponent("aggregator")
	aggLog.Info().Msg("pipeline started")

	reqLog := log.WithRequestID(req.ID)
	reqLog.Debug().Str("node", node.Address).Msg("dispatching to node")

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance initialized once at startup,
    accessible from all packages without being threaded through call chains.

Context Logger Pattern:
  - Child loggers carry fixed fields (component, file ID, request ID) so
    callers never repeat the same .Str() calls at every log site.

# Security

Log Content:
  - Never log decrypted chunk payloads, encryption keys, or credentials.
  - Use structured fields for user-controlled values rather than string
    concatenation, to avoid log injection.

# Integration Points

This package integrates with:

  - pkg/aggregator: logs upload/download/delete pipeline stages
  - pkg/lb: logs dispatch decisions and forwarding outcomes
  - pkg/hostctl: logs backend container lifecycle events
  - pkg/registry: logs health state transitions

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
