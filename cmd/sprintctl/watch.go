package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
	"github.com/fyrsmithlabs/sprintai/internal/live"
)

// maxEventSize bounds one SSE data line.
const maxEventSize = 1 << 20

func newAnalysisWatchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-render the ranking on every live update",
		Long: `Follow the live event stream and redraw the ranking each time the
stored analysis changes. Invalid snapshots are reported and skipped.

Examples:
  sprintctl analysis watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := opts.client()
			if err := c.requireToken(); err != nil {
				return err
			}
			body, err := c.stream(cmd.Context(), "/api/v1/events")
			if err != nil {
				return err
			}
			defer body.Close()

			err = followAnalysis(body, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if errors.Is(err, context.Canceled) || cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}
}

// followAnalysis folds each analysis event from an SSE stream into the
// current state and renders the ranking after every accepted snapshot.
// It returns nil when the stream ends.
func followAnalysis(r io.Reader, out, errOut io.Writer) error {
	var current *decision.Analysis
	return readEvents(r, func(kind, data string) error {
		if live.Kind(kind) != live.KindAnalysis {
			return nil
		}
		var snapshot decision.Analysis
		if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
			fmt.Fprintf(errOut, "skipping malformed snapshot: %v\n", err)
			return nil
		}
		next, err := decision.Reduce(current, &snapshot)
		if err != nil {
			fmt.Fprintf(errOut, "skipping invalid snapshot: %v\n", err)
			return nil
		}
		current = next

		rows, err := current.Standings()
		if err != nil {
			return err
		}
		fmt.Fprint(out, renderRanking(current.Title, rows))
		return nil
	})
}

// readEvents parses server-sent events and calls fn once per event.
// Comment lines (heartbeats) are ignored.
func readEvents(r io.Reader, fn func(kind, data string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var kind string
	var data []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case line == "":
			if len(data) > 0 {
				if kind == "" {
					kind = "message"
				}
				if err := fn(kind, strings.Join(data, "\n")); err != nil {
					return err
				}
			}
			kind, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			kind = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}
