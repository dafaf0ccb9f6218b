// Package workspace holds named parsed configurations and runs the
// compare, extract, and synthesize pipeline over them. It is the shared
// state behind both the HTTP API and the interactive shell.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/confloom/confloom/pkg/conftree"
	"github.com/confloom/confloom/pkg/diff"
	"github.com/confloom/confloom/pkg/extract"
	"github.com/confloom/confloom/pkg/logging"
	"github.com/confloom/confloom/pkg/synth"
)

// ErrNotFound reports a configuration name the workspace does not hold.
var ErrNotFound = errors.New("configuration not found")

const (
	defaultHistorySize = 50
	configExt          = ".conf"
)

// Config is a stored configuration. Callers treat it as read-only: Put
// replaces the whole value, it is never edited in place.
type Config struct {
	Name        string                `json:"name"`
	Text        string                `json:"text"`
	Tree        *conftree.Node        `json:"tree,omitempty"`
	Diagnostics []conftree.Diagnostic `json:"diagnostics,omitempty"`
	LoadedAt    time.Time             `json:"loadedAt"`
}

// SynthesisResult carries everything a template synthesis produced: the
// rendered template text, the template tree, and the intermediate change
// list and interface table it was derived from.
type SynthesisResult struct {
	Interface string         `json:"interface"`
	Text      string         `json:"text"`
	Tree      *conftree.Node `json:"tree,omitempty"`
	Changes   []diff.Change  `json:"changes"`
	Table     extract.Table  `json:"table"`
}

// Stats is a point-in-time snapshot of workspace counters.
type Stats struct {
	Configs     int
	Diagnostics int
	Operations  map[string]uint64
}

// Workspace is a thread-safe store of named configurations plus the
// operation history and event stream around them. When a directory is
// attached (WithDir or LoadDir), Put and Remove mirror their changes to
// disk; the in-memory copy stays authoritative.
type Workspace struct {
	mu      sync.RWMutex
	configs map[string]*Config
	dir     string

	opMu    sync.Mutex
	history *History
	ops     map[string]uint64

	events *logging.EventBuffer
}

// Option adjusts a Workspace at construction.
type Option func(*Workspace)

// WithEventBuffer mirrors recorded operations onto an event buffer.
func WithEventBuffer(eb *logging.EventBuffer) Option {
	return func(w *Workspace) { w.events = eb }
}

// WithDir attaches a directory that Put mirrors configurations into as
// <name>.conf files.
func WithDir(dir string) Option {
	return func(w *Workspace) { w.dir = dir }
}

// WithHistorySize bounds the operation history ring.
func WithHistorySize(n int) Option {
	return func(w *Workspace) {
		if n > 0 {
			w.history = NewHistory(n)
		}
	}
}

// New creates an empty workspace.
func New(opts ...Option) *Workspace {
	w := &Workspace{
		configs: make(map[string]*Config),
		history: NewHistory(defaultHistorySize),
		ops:     make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// LoadDir loads every *.conf file in dir as a configuration named after
// the file minus its extension, and attaches dir so later Puts persist
// into it. Parse diagnostics never fail a load; they surface on the
// stored Config and the event stream.
func (w *Workspace) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read config dir: %w", err)
	}

	loaded := 0
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), configExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, de.Name()))
		if err != nil {
			return loaded, fmt.Errorf("read %s: %w", de.Name(), err)
		}
		if _, err := w.put(strings.TrimSuffix(de.Name(), configExt), string(data), false); err != nil {
			return loaded, err
		}
		loaded++
	}

	w.mu.Lock()
	w.dir = dir
	w.mu.Unlock()

	w.record("load", []string{dir}, fmt.Sprintf("%d configurations", loaded), "info")
	return loaded, nil
}

// Put parses and stores a configuration under the given name, replacing
// any previous one. Malformed lines become diagnostics on the stored
// Config rather than errors.
func (w *Workspace) Put(name, text string) (*Config, error) {
	return w.put(name, text, true)
}

func (w *Workspace) put(name, text string, persist bool) (*Config, error) {
	if name == "" {
		return nil, fmt.Errorf("configuration name must not be empty")
	}

	tree, diags := conftree.NewParser(text).Parse()
	cfg := &Config{
		Name:        name,
		Text:        text,
		Tree:        tree,
		Diagnostics: diags,
		LoadedAt:    time.Now(),
	}

	w.mu.Lock()
	w.configs[name] = cfg
	dir := w.dir
	w.mu.Unlock()

	if persist && dir != "" {
		if err := os.WriteFile(filepath.Join(dir, name+configExt), []byte(text), 0644); err != nil {
			slog.Warn("failed to persist configuration", "name", name, "err", err)
		}
	}

	detail := fmt.Sprintf("%d bytes", len(text))
	level := "info"
	if len(diags) > 0 {
		detail = fmt.Sprintf("%d bytes, %d parse diagnostics", len(text), len(diags))
		level = "warn"
	}
	w.record("put", []string{name}, detail, level)
	return cfg, nil
}

// Get returns the configuration stored under name.
func (w *Workspace) Get(name string) (*Config, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cfg, ok := w.configs[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return cfg, nil
}

// Names returns the stored configuration names, sorted.
func (w *Workspace) Names() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.configs))
	for name := range w.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove deletes a stored configuration and, when a directory is
// attached, its persisted file.
func (w *Workspace) Remove(name string) error {
	w.mu.Lock()
	_, ok := w.configs[name]
	if ok {
		delete(w.configs, name)
	}
	dir := w.dir
	w.mu.Unlock()

	if !ok {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if dir != "" {
		if err := os.Remove(filepath.Join(dir, name+configExt)); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove persisted configuration", "name", name, "err", err)
		}
	}
	w.record("remove", []string{name}, "", "info")
	return nil
}

// pair fetches two configurations under one read lock.
func (w *Workspace) pair(base, other string) (*Config, *Config, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.configs[base]
	if !ok {
		return nil, nil, fmt.Errorf("%q: %w", base, ErrNotFound)
	}
	b, ok := w.configs[other]
	if !ok {
		return nil, nil, fmt.Errorf("%q: %w", other, ErrNotFound)
	}
	return a, b, nil
}

// Compare diffs two stored configurations, base against other.
func (w *Workspace) Compare(base, other string, opts ...diff.Option) ([]diff.Change, error) {
	a, b, err := w.pair(base, other)
	if err != nil {
		return nil, err
	}
	changes := diff.Diff(a.Tree.Generic(), b.Tree.Generic(), opts...)
	w.record("compare", []string{base, other}, fmt.Sprintf("%d changes", len(changes)), "info")
	return changes, nil
}

// Interfaces tabulates the per-interface attribute changes between two
// stored configurations.
func (w *Workspace) Interfaces(base, other string, opts ...diff.Option) (extract.Table, error) {
	a, b, err := w.pair(base, other)
	if err != nil {
		return nil, err
	}
	changes := diff.Diff(a.Tree.Generic(), b.Tree.Generic(), opts...)
	table := extract.Interfaces(changes)
	w.record("interfaces", []string{base, other}, fmt.Sprintf("%d interfaces", len(table)), "info")
	return table, nil
}

// Synthesize builds a parameterized template from base, the changes
// between base and other, and the extracted attributes of the named
// interface. vars overlays extra variable bindings onto the extracted
// ones (the interface name binding is implicit).
func (w *Workspace) Synthesize(base, other, iface string, vars map[string]any) (*SynthesisResult, error) {
	a, b, err := w.pair(base, other)
	if err != nil {
		return nil, err
	}

	changes := diff.Diff(a.Tree.Generic(), b.Tree.Generic())
	table := extract.Interfaces(changes)
	entry, ok := table[iface]
	if !ok {
		return nil, fmt.Errorf("interface %q does not differ between %q and %q", iface, base, other)
	}

	ifaceVars := map[string]any{"name": iface}
	for k, v := range entry {
		ifaceVars[k] = v
	}
	for k, v := range vars {
		ifaceVars[k] = v
	}

	tree := synth.Synthesize(a.Tree, changes, map[string]any{"interface": ifaceVars})
	res := &SynthesisResult{
		Interface: iface,
		Text:      synth.CleanRendered(conftree.Render(tree)),
		Tree:      tree,
		Changes:   changes,
		Table:     table,
	}
	w.record("synthesize", []string{base, other, iface},
		fmt.Sprintf("%d changes, %d interfaces", len(changes), len(table)), "info")
	return res, nil
}

// History returns the most recent operation records, newest first. n <= 0
// means all retained records.
func (w *Workspace) History(n int) []*OpRecord {
	w.opMu.Lock()
	defer w.opMu.Unlock()
	list := w.history.List()
	if n > 0 && n < len(list) {
		list = list[:n]
	}
	return list
}

// Stats snapshots the workspace counters.
func (w *Workspace) Stats() Stats {
	w.mu.RLock()
	configs := len(w.configs)
	diags := 0
	for _, cfg := range w.configs {
		diags += len(cfg.Diagnostics)
	}
	w.mu.RUnlock()

	w.opMu.Lock()
	ops := make(map[string]uint64, len(w.ops))
	for k, v := range w.ops {
		ops[k] = v
	}
	w.opMu.Unlock()

	return Stats{Configs: configs, Diagnostics: diags, Operations: ops}
}

func (w *Workspace) record(op string, args []string, detail, level string) {
	now := time.Now()

	w.opMu.Lock()
	w.history.Push(&OpRecord{Time: now, Op: op, Args: args, Detail: detail})
	w.ops[op]++
	w.opMu.Unlock()

	if w.events != nil {
		w.events.Add(logging.Event{
			Time:   now,
			Op:     op,
			Target: strings.Join(args, " "),
			Detail: detail,
			Level:  level,
		})
	}
}
