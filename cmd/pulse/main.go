// Command pulse detects heartbeats in ECG recordings and reports heart-rate
// variability and signal quality.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
)

type command struct {
	summary string
	run     func(args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

var commands = map[string]command{
	"ecg-find-rpeaks":   {"Detect R-peaks in newline-delimited samples", cmdFindRPeaks},
	"hrv-time":          {"Time-domain HRV from newline-delimited RR intervals (s)", cmdHRVTime},
	"hrv-psd":           {"Welch PSD and band powers of an RR series", cmdHRVPSD},
	"hrv-nonlinear":     {"Poincaré, sample entropy and DFA of an RR series", cmdHRVNonlinear},
	"rr-summary":        {"Range, mean and heart rate of an RR series", cmdRRSummary},
	"hrv-report":        {"Write PNG figures and an HTML dashboard for an RR series", cmdHRVReport},
	"sqi":               {"Signal-quality indices of a waveform", cmdSQI},
	"beat-hrv-pipeline": {"Detect beats, derive RR and compute HRV in one pass", cmdPipeline},
	"serve":             {"Serve the JSON API and run dashboards", cmdServe},
	"migrate":           {"Manage the run store schema", cmdMigrate},
	"version":           {"Print build information", cmdVersion},
}

func main() {
	log.SetFlags(log.LstdFlags)
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("pulse: %v", err)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		usage(stderr)
		return errors.New("missing command")
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		usage(stdout)
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		usage(stderr)
		return fmt.Errorf("unknown command: %s", name)
	}
	return cmd.run(args[1:], stdin, stdout, stderr)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pulse <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-18s %s\n", name, commands[name].summary)
	}
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("pulse "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// flagsSet returns the names of the flags given explicitly on the command line.
func flagsSet(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
