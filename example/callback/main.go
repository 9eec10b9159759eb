package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ghalamif/RigFlow/pkg/rigflow"
)

func main() {
	flow, err := rigflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	callback := func(events []rigflow.RunEvent) error {
		for _, e := range events {
			fmt.Printf("%s run=%s phase=%s rig=%s exit=%d took=%s\n",
				e.FinishedAt.Format(time.RFC3339),
				e.RunID,
				e.Phase,
				e.RigID,
				e.ExitCode,
				e.FinishedAt.Sub(e.StartedAt).Round(time.Millisecond),
			)
		}
		return nil
	}

	session := &rigflow.Session{
		Experiment: rigflow.ExperimentCalibration,
		Date:       time.Now().UTC(),
		Subject:    "0",
	}

	if _, err := flow.Run(context.Background(), rigflow.ExperimentCalibration, session, rigflow.RecordCallback("stdout", callback)); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}
