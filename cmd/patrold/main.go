// Patrol mission daemon: plans a waypoint lap with an external PDDL
// solver, executes it action by action against the motion bridge, and
// afterwards sends the robot to the waypoint picked by the selector
// marker. Serves mission status over HTTP and websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-patrol/internal/config"
	"github.com/teslashibe/go-patrol/internal/log"
	"github.com/teslashibe/go-patrol/pkg/executor"
	"github.com/teslashibe/go-patrol/pkg/feeds"
	"github.com/teslashibe/go-patrol/pkg/knowledge"
	"github.com/teslashibe/go-patrol/pkg/mission"
	"github.com/teslashibe/go-patrol/pkg/motion"
	"github.com/teslashibe/go-patrol/pkg/move"
	"github.com/teslashibe/go-patrol/pkg/patrol"
	"github.com/teslashibe/go-patrol/pkg/planning"
	"github.com/teslashibe/go-patrol/pkg/waypoints"
	"github.com/teslashibe/go-patrol/pkg/web"
)

func main() {
	// Command line flags; env vars provide the defaults.
	motionURL := flag.String("motion-url", config.MotionURL(), "Motion bridge websocket URL")
	feedURL := flag.String("feed-url", config.FeedURL(), "Pose/selector feed websocket URL")
	solverURL := flag.String("solver-url", config.SolverURL(), "PDDL solver service base URL")
	webPort := flag.String("web-port", config.WebPort(), "HTTP status API port")
	waypointsFile := flag.String("waypoints", "", "Waypoint table YAML (default: embedded table)")
	domainFile := flag.String("domain", "", "PDDL domain file (default: embedded patrol domain)")
	robot := flag.String("robot", "r2d2", "Robot name in the knowledge store")
	tick := flag.Duration("tick", 0, "Mission loop interval (default 200ms)")
	logLevel := flag.String("log-level", config.LogLevel(), "Log level: debug, info, warn, error")
	debug := flag.Bool("debug", false, "Shorthand for -log-level debug")
	flag.Parse()

	level := *logLevel
	if *debug {
		level = "debug"
	}
	log.Init(level)

	fmt.Println("🤖 Patrol Mission Daemon")
	fmt.Printf("   Motion: %s\n", *motionURL)
	fmt.Printf("   Feeds:  %s\n", *feedURL)
	fmt.Printf("   Solver: %s\n", *solverURL)
	fmt.Printf("   Web:    :%s\n", *webPort)
	fmt.Println()

	// Waypoint table and planning domain, embedded unless overridden.
	table, err := loadTable(*waypointsFile)
	if err != nil {
		fatal("loading waypoint table", err)
	}
	domain, err := loadDomain(*domainFile)
	if err != nil {
		fatal("loading planning domain", err)
	}

	// Knowledge store and planning service.
	store := knowledge.New()
	solverCfg := planning.DefaultSolverConfig()
	solverCfg.URL = *solverURL
	planner := planning.NewService(domain, "patrol-mission", store, planning.NewHTTPSolver(solverCfg))

	// Live feeds from the robot bridge.
	pose := feeds.NewPoseFeed()
	selector := feeds.NewSelectorFeed()
	subCfg := feeds.DefaultSubscriberConfig()
	subCfg.URL = *feedURL
	subscriber := feeds.NewSubscriber(subCfg, pose, selector)

	// Motion client and the plan execution engine with its performers.
	motionCfg := motion.DefaultConfig()
	motionCfg.URL = *motionURL
	motionClient := motion.NewWSClient(motionCfg)
	defer motionClient.Close()

	engine := executor.New(executor.DefaultConfig())
	engine.Register("move", move.New(move.DefaultConfig(), table, motionClient, pose))
	engine.Register("patrol", patrol.New(patrol.DefaultConfig()))

	// Mission controller.
	missionCfg := mission.DefaultConfig()
	missionCfg.Robot = *robot
	if *tick > 0 {
		missionCfg.TickInterval = *tick
	}
	if err := missionCfg.Validate(); err != nil {
		fatal("mission configuration", err)
	}
	ctrl := mission.New(missionCfg, store, planner, engine, selector)
	if err := ctrl.InitKnowledge(); err != nil {
		fatal("seeding knowledge store", err)
	}

	// Status API; every controller tick is broadcast to websocket clients.
	webCfg := web.DefaultConfig()
	webCfg.Port = *webPort
	server := web.NewServer(webCfg, ctrl, engine, table, pose)
	ctrl.SetNotify(server.BroadcastSnapshot)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go subscriber.Run(ctx)
	server.StartAsync(ctx)

	ctrl.Run(ctx)

	engine.Cancel()
	if err := server.Shutdown(); err != nil {
		log.Warn("shutting down web server", "error", err)
	}
	fmt.Println("👋 Patrol daemon stopped")
}

func loadTable(path string) (*waypoints.Table, error) {
	if path == "" {
		return waypoints.Default()
	}
	return waypoints.LoadFile(path)
}

func loadDomain(path string) (string, error) {
	if path == "" {
		return planning.DefaultDomain(), nil
	}
	return planning.LoadDomain(path)
}

func fatal(msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
