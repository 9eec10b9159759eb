package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ghalamif/RigFlow"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "mock":
		err = mockCommand(os.Args[2:])
	case "journal":
		err = journalCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("rigflow %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := pflag.NewFlagSet("run", pflag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to launcher configuration file")
	experiment := fs.String("experiment", rigflow.ExperimentAcquisition, "Experiment to run: acquisition, calibration or just_frames_with_satellites")
	subject := fs.String("subject", "", "Subject id")
	experimenters := fs.StringSlice("experimenter", nil, "Experimenter names (repeatable)")
	notes := fs.String("notes", "", "Free-text session notes")
	allowDirty := fs.Bool("allow-dirty-repo", false, "Allow running from a repository with uncommitted changes")
	skipHardware := fs.Bool("skip-hardware-validation", false, "Skip hardware validation in the acquisition app")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return fmt.Errorf("--subject is required")
	}

	flow, err := rigflow.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	session := &rigflow.Session{
		Experiment:             *experiment,
		Experimenter:           *experimenters,
		Date:                   time.Now().UTC(),
		Subject:                *subject,
		Notes:                  *notes,
		AllowDirtyRepo:         *allowDirty,
		SkipHardwareValidation: *skipHardware,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := flow.Run(ctx, *experiment, session)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func printReport(r *rigflow.Report) {
	fmt.Printf("run %s  session %s  experiment %s\n", r.RunID, r.Session, r.Experiment)
	for _, res := range r.Acquisition {
		fmt.Printf("  acquire   %-24s exit=%d  %s\n", res.RigID, res.Result.ExitCode, res.Result.Duration().Round(time.Second))
	}
	for _, res := range r.Transfers {
		fmt.Printf("  transfer  %-24s exit=%d  %s\n", res.RigID, res.Result.ExitCode, res.Result.Duration().Round(time.Second))
	}
	if failed := r.FailedAcquisitions(); len(failed) > 0 {
		fmt.Printf("%d app(s) exited with errors; see the log for their output\n", len(failed))
	}
}

func validateCommand(args []string) error {
	fs := pflag.NewFlagSet("validate", pflag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := rigflow.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func mockCommand(args []string) error {
	fs := pflag.NewFlagSet("mock", pflag.ExitOnError)
	pathSeed := fs.String("path-seed", "./local/{schema}.json", "Output path template; {schema} is replaced by the document schema")
	if err := fs.Parse(args); err != nil {
		return err
	}

	paths, err := rigflow.WriteMocks(*pathSeed, time.Now())
	for _, p := range paths {
		fmt.Println(p)
	}
	return err
}

func journalCommand(args []string) error {
	fs := pflag.NewFlagSet("journal", pflag.ExitOnError)
	phase := fs.String("phase", "", "Only print events of this phase (setup, acquisition, transfer)")
	verbose := fs.BoolP("verbose", "v", false, "Print captured stdout and stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: rigflow journal [flags] <session log dir or journal file>")
	}

	return rigflow.ReadJournal(fs.Arg(0), func(e rigflow.RunEvent) error {
		if *phase != "" && string(e.Phase) != *phase {
			return nil
		}
		fmt.Printf("%s  %-11s %-24s exit=%d  run=%s\n",
			e.FinishedAt.Format(time.RFC3339), e.Phase, e.RigID, e.ExitCode, e.RunID)
		if *verbose {
			if e.Stdout != "" {
				fmt.Printf("    stdout: %s\n", strings.TrimSpace(e.Stdout))
			}
			if e.Stderr != "" {
				fmt.Printf("    stderr: %s\n", strings.TrimSpace(e.Stderr))
			}
		}
		return nil
	})
}

func statsCommand(args []string) error {
	fs := pflag.NewFlagSet("stats", pflag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint of a running launcher")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"rigflow_tasks_in_flight":             0,
		"rigflow_acquisition_succeeded_total": 0,
		"rigflow_acquisition_failed_total":    0,
		"rigflow_transfer_tasks_total":        0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] in_flight=%.0f succeeded=%.0f failed=%.0f transfers=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets["rigflow_tasks_in_flight"],
		targets["rigflow_acquisition_succeeded_total"],
		targets["rigflow_acquisition_failed_total"],
		targets["rigflow_transfer_tasks_total"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`RigFlow CLI

Usage:
  rigflow <command> [flags]

Commands:
  run        Run an experiment on the rig picked for this computer
  validate   Load and validate a config file without running anything
  mock       Write example session and rig documents
  journal    Print the run events recorded in a session's journal
  stats      Poll the Prometheus metrics endpoint of a running launcher

Examples:
  rigflow run --config ./config.yaml --subject 809487 --experimenter bruno.cruz
  rigflow run --config ./config.yaml --experiment calibration --subject 0
  rigflow validate --config ./config.yaml
  rigflow mock --path-seed ./local/{schema}.json
  rigflow journal D:/Data/809487_20240503T140709/behavior/Logs
  rigflow stats --url http://localhost:9100/metrics --interval 1s
`)
}
