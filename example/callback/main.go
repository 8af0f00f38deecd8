package main

import (
	"context"
	"fmt"
	"log"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/pkg/smartfactory"
)

func main() {
	flow, err := smartfactory.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Route actions into caller code instead of the simulated actuator.
	act := smartfactory.NewCallbackActuator(func(_ context.Context, machineID string, action smartfactory.ActionKind) error {
		fmt.Printf("machine=%s action=%s\n", machineID, action)
		return nil
	})

	if err := flow.Options(smartfactory.WithActuator(act)).Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
