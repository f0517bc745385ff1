package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/domino14/lapidary/config"
	"github.com/domino14/lapidary/montecarlo"
	"github.com/domino14/lapidary/planner"
)

const histogramWidth = 40

func (sc *ShellController) sim(cmd *shellcmd) (*Response, error) {
	defaultIters := sc.config.GetInt(config.ConfigSimIterations)
	if len(cmd.args) > 0 {
		if !isNumber(cmd.args[0]) {
			return sc.simControlArguments(cmd.args)
		}
		n, err := strconv.Atoi(cmd.args[0])
		if err != nil {
			return nil, err
		}
		defaultIters = n
	}
	if sc.plan == nil {
		return nil, errors.New("please run `plan` first; the sim starts from the planned state")
	}
	if sc.busy() {
		return nil, errBusy
	}

	iters, err := cmd.options.IntDefault("iterations", defaultIters)
	if err != nil {
		return nil, err
	}
	threads, err := cmd.options.IntDefault("threads", sc.config.GetInt(config.ConfigSimThreads))
	if err != nil {
		return nil, err
	}
	stop, err := cmd.options.IntDefault("stop", sc.config.GetInt(config.ConfigSimStop))
	if err != nil {
		return nil, err
	}
	switch stop {
	case 0, 95, 98, 99:
	default:
		return nil, errors.New("only allowed values are 0, 95, 98, and 99 for stopping condition")
	}
	if t := cmd.options.String("tolerance"); t != "" {
		tol, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, err
		}
		sc.simmer.SetTolerance(tol)
	}

	sc.simmer.SetThreads(threads)
	sc.simmer.SetStoppingCondition(montecarlo.ParseStoppingCondition(stop))
	if err := sc.simmer.Init(sc.track, sc.plan.State); err != nil {
		return nil, err
	}
	log.Debug().Int("iterations", iters).Int("threads", sc.simmer.Threads()).
		Int("stop", stop).Msg("will-start-sim")

	if !sc.interactive {
		err := sc.simmer.Simulate(context.Background(), iters)
		sc.closeSimLog()
		if err != nil {
			return nil, err
		}
		return msg(sc.simmer.ShortDetails()), nil
	}
	sc.startSim(iters)
	return msg("Simulation started. Please do `sim show` and `sim details` to see more info"), nil
}

func (sc *ShellController) startSim(iters int) {
	sc.simCtx, sc.simCancel = context.WithCancel(context.Background())
	sc.simTicker = time.NewTicker(10 * time.Second)
	sc.simTickerDone = make(chan bool)

	go func() {
		err := sc.simmer.Simulate(sc.simCtx, iters)
		if err != nil {
			sc.showError(err)
		}
		sc.simTickerDone <- true
		sc.closeSimLog()
		sc.showMessage(sc.simmer.ShortDetails())
		log.Debug().Msg("simulation thread exiting...")
	}()

	go func() {
		for {
			select {
			case <-sc.simTickerDone:
				sc.simTicker.Stop()
				log.Debug().Msg("ticker thread exiting...")
				return
			case <-sc.simTicker.C:
				log.Info().Int("iterations", sc.simmer.Iterations()).Msg("sim-progress")
			}
		}
	}()
}

func (sc *ShellController) stopSim() {
	if sc.simCancel != nil {
		sc.simCancel()
	}
}

func (sc *ShellController) closeSimLog() {
	if sc.simLogFile == nil {
		return
	}
	if err := sc.simLogFile.Close(); err != nil {
		log.Err(err).Msg("close-sim-log")
	}
	sc.simLogFile = nil
	sc.simmer.SetLogStream(nil)
}

func (sc *ShellController) simControlArguments(args []string) (*Response, error) {
	switch args[0] {
	case "log":
		if sc.simmer.IsSimming() {
			return nil, errBusy
		}
		if len(args) != 2 {
			return nil, errors.New("usage: sim log <file>")
		}
		sc.closeSimLog()
		f, err := os.Create(args[1])
		if err != nil {
			return nil, err
		}
		sc.simLogFile = f
		sc.simmer.SetLogStream(f)
		return msg("sim will log to " + args[1]), nil
	case "stop":
		if !sc.simmer.IsSimming() {
			return nil, errors.New("no running sim to stop")
		}
		sc.stopSim()
		return msg("stopping simulation"), nil
	case "show":
		if !sc.simmer.Ready() {
			return nil, errors.New("no simulation has been run")
		}
		return msg(sc.simmer.ShortDetails()), nil
	case "details":
		if !sc.simmer.Ready() {
			return nil, errors.New("no simulation has been run")
		}
		return msg(sc.simDetails()), nil
	}
	return nil, errors.New("unrecognized argument to `sim`: " + args[0])
}

// simDetails shows, for each simmed action, where its games ended up.
func (sc *ShellController) simDetails() string {
	var sb strings.Builder
	for _, r := range sc.simmer.Results() {
		if !r.Available {
			continue
		}
		sb.WriteString(sc.printer.Sprintf("%s: %d wins in %d games, final position %.2f ± %.2f\n",
			r.Action, r.Wins, r.Iterations, r.MeanFinalPos, r.FinalPosStdev))
		data := sc.simmer.FinalPositions(r.Action)
		if len(data) == 0 {
			continue
		}
		if lo.Min(data) == lo.Max(data) {
			fmt.Fprintf(&sb, "every game ended at position %v\n", data[0])
			continue
		}
		h := histogram.Hist(planner.NumPositions, data)
		if err := histogram.Fprint(&sb, h, histogram.Linear(histogramWidth)); err != nil {
			fmt.Fprintf(&sb, "could not draw histogram: %v\n", err)
		}
	}
	return sb.String()
}
