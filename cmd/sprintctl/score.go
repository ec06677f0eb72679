package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
)

// ErrUnsupportedFormat is returned for analysis files with an unknown
// extension.
var ErrUnsupportedFormat = errors.New("unsupported analysis file format (want .yaml, .yml, .toml or .json)")

func newScoreCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "score FILE",
		Short: "Rank the options of an analysis file",
		Long: `Rank the options of a YAML, TOML or JSON analysis file offline.
A missing weights section means all weights are 1.

Examples:
  sprintctl score decision.yaml
  sprintctl score decision.toml --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			out := cmd.OutOrStdout()
			if err := printScore(out, path); err != nil {
				if !watch {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			}
			if !watch {
				return nil
			}

			w, err := newFileWatcher(path)
			if err != nil {
				return err
			}
			defer w.Close()
			return w.Run(cmd.Context(), func() {
				if err := printScore(out, path); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-rank whenever the file changes")
	return cmd
}

func printScore(w io.Writer, path string) error {
	a, err := loadAnalysis(path)
	if err != nil {
		return err
	}
	rows, err := a.Standings()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, renderRanking(a.Title, rows))
	return err
}

// loadAnalysis decodes an analysis file by extension, fills defaults and
// validates it.
func loadAnalysis(path string) (*decision.Analysis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var a decision.Analysis
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &a)
	case ".toml":
		err = toml.Unmarshal(raw, &a)
	case ".json":
		err = json.Unmarshal(raw, &a)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	a.Normalize()
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &a, nil
}

// fileWatcher reports writes to one file. It watches the parent directory
// so editors that replace the file on save are still seen.
type fileWatcher struct {
	path    string
	watcher *fsnotify.Watcher
}

func newFileWatcher(path string) (*fileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	return &fileWatcher{path: abs, watcher: w}, nil
}

// Run calls onChange after each write or re-creation of the file until ctx
// ends.
func (f *fileWatcher) Run(ctx context.Context, onChange func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				onChange()
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", f.path, err)
		}
	}
}

func (f *fileWatcher) Close() error {
	return f.watcher.Close()
}
