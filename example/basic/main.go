package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/RigFlow"
)

func main() {
	flow, err := rigflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := &rigflow.Session{
		Experiment:   rigflow.ExperimentAcquisition,
		Experimenter: []string{"bruno.cruz"},
		Date:         time.Now().UTC(),
		Subject:      "809487",
	}

	report, err := flow.Run(ctx, rigflow.ExperimentAcquisition, session)
	if err != nil {
		log.Fatalf("run exited: %v", err)
	}
	for _, res := range report.FailedAcquisitions() {
		log.Printf("rig %s exited with %d", res.RigID, res.Result.ExitCode)
	}
}
