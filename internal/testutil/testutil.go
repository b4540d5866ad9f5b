// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/beatsheet/internal/index"
	"github.com/starford/beatsheet/internal/storage"
)

// SampleOutline is a well-formed three-act model response with two beats per act.
const SampleOutline = `Act I - Setup
- Key beat 1: Mara finds a glowing plant
- Key beat 2: The lab is shut down

Act II - Rising Action
- Key beat 1: Mara smuggles the plant home
- Key beat 2: The plant starts whispering

Act III - Climax & Resolution
- Key beat 1: The city lights go out
- Key beat 2: Mara plants the seed in the square
`

// Completer is a scripted model stand-in. Responses are returned in order;
// the last one repeats.
type Completer struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Prompts   []string
}

// NewCompleter returns a completer answering with responses.
func NewCompleter(responses ...string) *Completer {
	return &Completer{Responses: responses}
}

// Complete implements the model-call interface.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prompts = append(c.Prompts, prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.Responses) == 0 {
		return SampleOutline, nil
	}
	i := len(c.Prompts) - 1
	if i >= len(c.Responses) {
		i = len(c.Responses) - 1
	}
	return c.Responses[i], nil
}

// Calls returns how many times Complete ran.
func (c *Completer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Prompts)
}

// TestDB creates a temporary export catalog closed on cleanup.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestExportDir creates a temporary export directory.
func TestExportDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
