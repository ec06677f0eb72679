// Package mcp serves the decision scoring engine as MCP tools.
//
// Two tools are registered: rank_options orders a set of rated options
// under a weight vector, and score_option computes the weighted score of a
// single option. Both are stateless; nothing is read from or written to the
// store. Run serves them over stdio for use from editors and agents.
package mcp
