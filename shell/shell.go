package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/domino14/lapidary/config"
	"github.com/domino14/lapidary/montecarlo"
	"github.com/domino14/lapidary/planner"
	"github.com/domino14/lapidary/puzzle"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errQuit              = errors.New("quit")
	errBusy              = errors.New("a simulation or optimization is running; stop it first")
)

type ShellController struct {
	l       *readline.Instance
	config  *config.Config
	version string
	printer *message.Printer
	out     io.Writer

	// interactive is set by Loop. Outside of it, long commands block.
	interactive bool

	mode  planner.Mode
	track *planner.Track
	plan  *planner.Plan

	simmer        *montecarlo.Simmer
	simCtx        context.Context
	simCancel     context.CancelFunc
	simTicker     *time.Ticker
	simTickerDone chan bool
	simLogFile    *os.File

	catalog *puzzle.Catalog
	board   *puzzle.Board
	pieces  []*puzzle.Piece
	role    string

	optMu      sync.Mutex
	optCancel  context.CancelFunc
	optRunning bool
	lastResult *puzzle.Result
}

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func historyFile(cfg *config.Config) string {
	if f := cfg.GetString(config.ConfigHistoryFile); f != "" {
		return f
	}
	return filepath.Join(os.TempDir(), "lapidary_history")
}

// NewShellController sets up the readline instance and the starting mode,
// role and catalog from cfg. The readline instance is nil if the terminal
// could not be set up; output then goes to stderr.
func NewShellController(cfg *config.Config, gitVersion string) *ShellController {
	sc := &ShellController{
		config:  cfg,
		version: gitVersion,
		printer: message.NewPrinter(language.English),
		out:     os.Stderr,
		board:   puzzle.FullBoard(),
		role:    cfg.GetString(config.ConfigDefaultRole),
		simmer:  &montecarlo.Simmer{},
	}
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36mlapidary>\033[0m ",
		HistoryFile:     historyFile(cfg),
		AutoComplete:    NewShellCompleter(sc),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		log.Err(err).Msg("readline-unavailable")
	} else {
		sc.l = l
		sc.out = l.Stderr()
	}

	mode, err := planner.ParseMode(cfg.GetString(config.ConfigDefaultMode))
	if err != nil {
		log.Err(err).Msg("bad-default-mode")
		mode = planner.ModeSuperEpic
	}
	if err := sc.setTrack(mode); err != nil {
		log.Err(err).Msg("set-track")
	}
	sc.catalog, err = puzzle.LoadCatalog(cfg)
	if err != nil {
		log.Err(err).Msg("load-catalog")
		sc.catalog = puzzle.DefaultCatalog()
	}
	log.Debug().Str("role", sc.role).Stringer("mode", sc.mode).Msg("shell-created")
	return sc
}

func (sc *ShellController) setTrack(mode planner.Mode) error {
	t, err := planner.TrackFor(mode)
	if err != nil {
		return err
	}
	sc.mode = mode
	sc.track = t
	sc.plan = nil
	return nil
}

func (sc *ShellController) showMessage(msg string) {
	showMessage(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// extractFields splits a line into a command, its arguments and its
// -options. Every option takes exactly one value.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	for i := 1; i < len(fields); i++ {
		if strings.HasPrefix(fields[i], "-") && len(fields[i]) > 1 && !isNumber(fields[i]) {
			if i == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			opt := fields[i][1:]
			options[opt] = append(options[opt], fields[i+1])
			i++
			continue
		}
		args = append(args, fields[i])
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

func isNumber(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (sc *ShellController) standardModeSwitch(line string) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "exit", "quit":
		return nil, errQuit
	case "help":
		return sc.help(cmd)
	case "mode":
		return sc.setMode(cmd)
	case "plan":
		return sc.planCmd(cmd)
	case "sim":
		return sc.sim(cmd)
	case "board":
		return sc.boardCmd(cmd)
	case "inventory":
		return sc.inventory(cmd)
	case "role":
		return sc.roleCmd(cmd)
	case "optimize":
		return sc.optimize(cmd)
	case "show":
		return sc.show(cmd)
	case "set":
		return sc.set(cmd)
	}
	log.Debug().Msgf("you said: %v", line)
	return nil, errors.New("command " + cmd.cmd + " not recognized; try `help`")
}

// Execute runs a single line. It reports whether the shell should quit.
func (sc *ShellController) Execute(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	resp, err := sc.standardModeSwitch(line)
	if errors.Is(err, errQuit) {
		return true
	}
	if err != nil {
		sc.showError(err)
		return false
	}
	if resp != nil && resp.message != "" {
		sc.showMessage(resp.message)
	}
	return false
}

// Loop reads commands until the user quits, sends EOF, or interrupts an
// empty line.
func (sc *ShellController) Loop() error {
	if sc.l == nil {
		return errors.New("no terminal; cannot start the interactive shell")
	}
	defer sc.l.Close()
	sc.interactive = true
	sc.showMessage("lapidary " + sc.version + ". Type `help` for a list of commands.")

	for {
		line, err := sc.l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		} else if errors.Is(err, io.EOF) {
			break
		}
		if sc.Execute(line) {
			break
		}
	}
	log.Debug().Msg("readline-loop-done")
	return nil
}

// Cleanup stops any background work and closes the sim log.
func (sc *ShellController) Cleanup() {
	if sc.simmer.IsSimming() {
		sc.stopSim()
	}
	sc.optMu.Lock()
	if sc.optCancel != nil {
		sc.optCancel()
	}
	sc.optMu.Unlock()
	sc.closeSimLog()
}
