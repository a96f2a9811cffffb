// Package main runs the goalkeeper against a robot on the local network.
package main

import (
	"context"
	"time"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/fieldkeeper/keeper/keeper"
	"github.com/fieldkeeper/keeper/robomaster"
	"github.com/fieldkeeper/keeper/vision"
	"github.com/fieldkeeper/keeper/work"
)

var logger = golog.NewDevelopmentLogger("keeper")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	IP         string  `flag:"ip,usage=robot address; empty waits for the broadcast announcement"`
	Timeout    float64 `flag:"timeout,default=10,usage=command timeout in seconds"`
	FieldWidth float64 `flag:"max-width,default=1,usage=field width in meters"`
	FieldDepth float64 `flag:"max-depth,default=1,usage=field depth in meters"`
	VisionAddr string  `flag:"vision-addr,default=:40930,usage=address the vision collaborator posts measurements to"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	timeout := time.Duration(argsParsed.Timeout * float64(time.Second))

	cmd, err := robomaster.NewCommander(ctx, argsParsed.IP, timeout, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, cmd.Close())
	}()

	// One-shot setup; any failure here is fatal to startup.
	if err := cmd.SetRobotMode(robomaster.ModeChassisLead); err != nil {
		return err
	}
	if err := cmd.GimbalMoveTo(-10, 0, 0, 0); err != nil {
		return err
	}
	if err := cmd.Stream(true); err != nil {
		return err
	}
	if err := cmd.ChassisPushOn(0, 30, 30, 0); err != nil {
		return err
	}
	if err := cmd.ArmorSensitivity(10); err != nil {
		return err
	}
	if err := cmd.ArmorEvent(robomaster.ArmorHit, true); err != nil {
		return err
	}

	visionQ := work.NewQueue[vision.Measurement](work.DefaultQueueSize)
	pushQ := work.NewQueue[robomaster.Push](work.DefaultQueueSize)
	eventQ := work.NewQueue[robomaster.Event](work.DefaultQueueSize)

	pushListener, err := robomaster.NewPushListener("chassis-push", "", pushQ, logger)
	if err != nil {
		return err
	}
	eventListener, err := robomaster.NewEventListener("armor-event", "", eventQ, logger)
	if err != nil {
		return err
	}
	visionListener, err := vision.NewListener("vision", argsParsed.VisionAddr, visionQ, logger)
	if err != nil {
		return err
	}

	mind, err := keeper.NewKeeper(
		"keeper",
		cmd,
		keeper.DefaultConfig(argsParsed.FieldWidth, argsParsed.FieldDepth),
		visionQ, pushQ, eventQ,
		logger,
	)
	if err != nil {
		return err
	}

	hub := work.NewHub(logger)
	hub.Add(pushListener, eventListener, visionListener, mind)
	return hub.Run(ctx)
}
