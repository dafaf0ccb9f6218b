package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/confloom/confloom/pkg/logging"
	"github.com/confloom/confloom/pkg/workspace"
)

// Shell is the interactive workspace shell.
type Shell struct {
	rl       *readline.Instance
	ws       *workspace.Workspace
	events   *logging.EventBuffer
	hostname string
	username string
	out      io.Writer
}

// NewShell creates a shell over the given workspace. events may be nil;
// the events and monitor commands then report that no stream is attached.
func NewShell(ws *workspace.Workspace, events *logging.EventBuffer) *Shell {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "confloom"
	}
	username := os.Getenv("USER")
	if username == "" {
		username = "operator"
	}
	return &Shell{
		ws:       ws,
		events:   events,
		hostname: hostname,
		username: username,
		out:      os.Stdout,
	}
}

// Run starts the interactive loop and blocks until quit or EOF.
func (s *Shell) Run() error {
	var err error
	s.rl, err = readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		HistoryFile:     "/tmp/confloom_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    &shellCompleter{shell: s},
		Listener:        s.helpListener(),
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer s.rl.Close()

	fmt.Fprintln(s.out, "confloom workspace shell")
	fmt.Fprintln(s.out, "Type 'help' for commands, '?' for completions")
	fmt.Fprintln(s.out)

	for {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := s.dispatch(line); err != nil {
			if err == errExit {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return nil
}

var errExit = fmt.Errorf("exit")

func (s *Shell) prompt() string {
	return fmt.Sprintf("%s@%s> ", s.username, s.hostname)
}

// dispatch splits off any output filters, runs the base command, and
// applies the filters to the captured output.
func (s *Shell) dispatch(line string) error {
	base, filters, err := parsePipeline(line)
	if err != nil {
		return err
	}
	if len(filters) == 0 {
		return s.exec(s.out, base)
	}

	var buf bytes.Buffer
	if err := s.exec(&buf, base); err != nil {
		return err
	}
	text, err := applyFilters(buf.String(), filters)
	if err != nil {
		return err
	}
	_, err = io.WriteString(s.out, text)
	return err
}

func (s *Shell) exec(w io.Writer, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "show":
		return s.handleShow(w, parts[1:])

	case "load":
		if len(parts) != 2 {
			return fmt.Errorf("usage: load <dir>")
		}
		n, err := s.ws.LoadDir(parts[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "loaded %d configurations from %s\n", n, parts[1])
		return nil

	case "template":
		if len(parts) != 4 {
			return fmt.Errorf("usage: template <base> <other> <interface>")
		}
		res, err := s.ws.Synthesize(parts[1], parts[2], parts[3], nil)
		if err != nil {
			return err
		}
		fmt.Fprint(w, res.Text)
		return nil

	case "monitor":
		return s.monitor(w)

	case "quit", "exit":
		return errExit

	case "help":
		s.printHelp(w)
		return nil

	default:
		return fmt.Errorf("unknown command: %s", parts[0])
	}
}

func (s *Shell) handleShow(w io.Writer, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(w, "show: specify what to show")
		for _, c := range showTargets {
			fmt.Fprintf(w, "  %-12s %s\n", c.name, c.desc)
		}
		return nil
	}

	switch args[0] {
	case "configs":
		names := s.ws.Names()
		cfgs := make([]*workspace.Config, 0, len(names))
		for _, name := range names {
			cfg, err := s.ws.Get(name)
			if err != nil {
				return err
			}
			cfgs = append(cfgs, cfg)
		}
		configsTable(w, cfgs)
		return nil

	case "config":
		if len(args) != 2 {
			return fmt.Errorf("usage: show config <name>")
		}
		cfg, err := s.ws.Get(args[1])
		if err != nil {
			return err
		}
		fmt.Fprint(w, cfg.Text)
		return nil

	case "diff":
		if len(args) != 3 {
			return fmt.Errorf("usage: show diff <base> <other>")
		}
		changes, err := s.ws.Compare(args[1], args[2])
		if err != nil {
			return err
		}
		changesTable(w, changes)
		return nil

	case "interfaces":
		if len(args) != 3 {
			return fmt.Errorf("usage: show interfaces <base> <other>")
		}
		tbl, err := s.ws.Interfaces(args[1], args[2])
		if err != nil {
			return err
		}
		interfacesTable(w, tbl)
		return nil

	case "history":
		historyTable(w, s.ws.History(20))
		return nil

	case "events":
		if s.events == nil {
			return fmt.Errorf("no event stream attached")
		}
		eventsTable(w, s.events.Latest(20))
		return nil

	default:
		return fmt.Errorf("unknown show target: %s", args[0])
	}
}

// monitor streams events to w until the user presses Enter.
func (s *Shell) monitor(w io.Writer) error {
	if s.events == nil {
		return fmt.Errorf("no event stream attached")
	}
	if s.rl == nil {
		return fmt.Errorf("monitor needs an interactive shell")
	}

	sub := s.events.Subscribe(64)
	defer sub.Close()

	fmt.Fprintln(w, "monitoring events, press Enter to stop")

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev := <-sub.C:
				fmt.Fprintf(w, "%s %-5s %-11s %s %s\n",
					ev.Time.Format("15:04:05"), ev.Level, ev.Op, ev.Target, ev.Detail)
			case <-stop:
				return
			}
		}
	}()

	_, err := s.rl.Readline()
	close(stop)
	<-done
	if err != nil && err != readline.ErrInterrupt && err != io.EOF {
		return err
	}
	return nil
}

func (s *Shell) printHelp(w io.Writer) {
	fmt.Fprintln(w, "Workspace shell commands:")
	fmt.Fprintln(w, "  show configs                 List loaded configurations")
	fmt.Fprintln(w, "  show config <name>           Show a configuration's text")
	fmt.Fprintln(w, "  show diff <base> <other>     Diff two configurations")
	fmt.Fprintln(w, "  show interfaces <a> <b>      Tabulate per-interface changes")
	fmt.Fprintln(w, "  show history                 Show recent operations")
	fmt.Fprintln(w, "  show events                  Show recent events")
	fmt.Fprintln(w, "  load <dir>                   Load a directory of *.conf files")
	fmt.Fprintln(w, "  template <a> <b> <iface>     Synthesize a loop template")
	fmt.Fprintln(w, "  monitor                      Stream events until Enter")
	fmt.Fprintln(w, "  quit                         Leave the shell")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Append output filters with a pipe: | match <pat>, | except <pat>, | count")
}

// helpListener intercepts '?' and prints completion candidates for the
// text before it, the way network device shells do.
func (s *Shell) helpListener() readline.Listener {
	return readline.FuncListener(func(line []rune, pos int, key rune) ([]rune, int, bool) {
		if key != '?' || pos < 1 {
			return line, pos, false
		}
		// Strip the '?' readline already inserted.
		clean := make([]rune, 0, len(line)-1)
		clean = append(clean, line[:pos-1]...)
		clean = append(clean, line[pos:]...)
		text := string(clean[:pos-1])

		candidates, _ := completeShellLine(text, s.ws.Names())
		if len(candidates) == 0 {
			fmt.Fprintln(s.rl.Stdout(), "  (no completions)")
		} else {
			writeCompletionHelp(s.rl.Stdout(), candidates)
		}
		return clean, pos - 1, true
	})
}

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell [dir]",
		Short: "Open an interactive shell over a configuration workspace",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events := logging.NewEventBuffer(256)
			ws := workspace.New(workspace.WithEventBuffer(events))
			if len(args) == 1 {
				n, err := ws.LoadDir(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "loaded %d configurations from %s\n", n, args[0])
			}
			return NewShell(ws, events).Run()
		},
	}
}
