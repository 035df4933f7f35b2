// Package server exposes the image factory as an MCP (Model Context
// Protocol) tool server.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_info: source dimensions, format and optional dominant colours
//   - image_src: render one artifact and return its path and URL, or a
//     data URI
//   - image_srcset: render a batch of responsive widths and return the
//     srcset attribute, with per-width errors
//   - image_cache_key: the key and artifact path of a request, without
//     rendering
//
// Manipulations are passed as a list of groups. Each group is an object
// keyed by manipulation name; groups are applied in order.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A srcset with some failed widths is not an error; the failures are
// reported next to the widths that succeeded.
//
// # Usage
//
//	f, err := factory.New(cfg, factory.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	srv := server.New(f, logger)
//	return srv.Run(ctx, os.Stdin, os.Stdout)
package server
