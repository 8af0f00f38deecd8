package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance"
)

func main() {
	flow, err := smartfactory.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tap, records, closeTap := smartfactory.NewChannelActionTap(32)
	defer closeTap()

	go auditWorker("audit", records)

	if err := flow.Options(smartfactory.WithHistorySink(tap)).Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func auditWorker(name string, records <-chan smartfactory.ActionRecord) {
	for rec := range records {
		fmt.Printf("[%s] %s machine=%s action=%s outcome=%s attempts=%d\n",
			name,
			rec.Timestamp.Format(time.RFC3339),
			rec.MachineID,
			rec.Action,
			rec.Outcome,
			rec.Attempts,
		)
	}
}
