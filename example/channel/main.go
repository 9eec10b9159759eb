package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ghalamif/RigFlow"
)

func main() {
	flow, err := rigflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ledger, batches, closeBatches := rigflow.NewChannelLedger("fanout", 32)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fanoutWorker("dashboard", batches)
	}()

	session := &rigflow.Session{
		Experiment: rigflow.ExperimentJustFramesWithSatellites,
		Date:       time.Now().UTC(),
		Subject:    "809487",
	}

	_, err = flow.Run(context.Background(), rigflow.ExperimentJustFramesWithSatellites, session, rigflow.RecordLedger(ledger))
	closeBatches()
	wg.Wait()
	if err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []rigflow.RunEvent) {
	for batch := range batches {
		failed := 0
		for _, e := range batch {
			if e.ExitCode != 0 {
				failed++
			}
		}
		fmt.Printf("[%s] %d %s events, %d failed\n", name, len(batch), batch[0].Phase, failed)
	}
}
