package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/traffic-sim/traffic-sim/sim"
	"github.com/traffic-sim/traffic-sim/sim/network"
	"github.com/traffic-sim/traffic-sim/sim/routing"
	"github.com/traffic-sim/traffic-sim/sim/trace"
)

var (
	// CLI flags for the simulation driver
	networkPath  string // Road network YAML
	scenarioPath string // Scenario (spawn list) YAML
	seed         int64  // Master seed for all partitioned RNG subsystems
	horizon      int64  // Total simulation time (in ticks)
	logLevel     string // Log verbosity level
	stuckTimeout int64  // Ticks without progress before a traveler is flagged stuck
	spawnJitter  int64  // Max random ticks added to each spawn time

	// CLI flags for the car-following policy
	minGap float64 // Minimum following distance in metres
	accel  float64 // Acceleration toward desired speed in m/s^2

	// CLI flags for the path index
	turnPenalty      int64 // Fixed per-turn cost in ticks
	rebuildThreshold int   // Patch-vs-rebuild rank threshold for edits

	printSummary bool // Print trace percentiles after the run

	// CLI flags for the route subcommand
	routeOrigin string
	routeDest   string
	routeMode   string
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "traffic-sim",
	Short: "Discrete-event traffic micro-simulator with an incremental path index",
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

func loadNetwork() *network.Network {
	if networkPath == "" {
		logrus.Fatalf("Network file not provided. Exiting.")
	}
	spec, err := network.LoadNetworkSpec(networkPath)
	if err != nil {
		logrus.Fatalf("Loading network: %v", err)
	}
	net, err := spec.Build()
	if err != nil {
		logrus.Fatalf("Building network: %v", err)
	}
	return net
}

// buildSimConfig assembles the driver configuration from the CLI flags.
func buildSimConfig() sim.SimConfig {
	cfg := sim.DefaultSimConfig()
	cfg.Seed = seed
	cfg.Horizon = horizon
	cfg.StuckTimeout = stuckTimeout
	cfg.SpawnJitter = spawnJitter
	cfg.Kinematics.MinGap = minGap
	cfg.Kinematics.Accel = accel
	cfg.Index.TurnPenalty = turnPenalty
	cfg.Index.RebuildThreshold = rebuildThreshold
	return cfg
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a traffic simulation scenario",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		net := loadNetwork()

		if scenarioPath == "" {
			logrus.Fatalf("Scenario file not provided. Exiting.")
		}
		scenario, err := sim.LoadScenarioSpec(scenarioPath)
		if err != nil {
			logrus.Fatalf("Loading scenario: %v", err)
		}

		cfg := buildSimConfig()

		logrus.Infof("Starting simulation with %d lanes, %d intersections, horizon=%dticks",
			net.NumLanes(), len(net.IntersectionIDs()), cfg.Horizon)

		startTime := time.Now()

		s, err := sim.NewSimulator(net, scenario, cfg)
		if err != nil {
			logrus.Fatalf("Initializing simulator: %v", err)
		}
		if err := s.Run(); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		s.Metrics.Print(s.Clock)
		fmt.Printf("Wall time           : %v\n", time.Since(startTime))

		if printSummary {
			sum := trace.Summarize(s.Trace)
			fmt.Println("=== Travel Time Percentiles ===")
			fmt.Printf("Mean: %.0f  P50: %.0f  P90: %.0f  P99: %.0f (ticks)\n",
				sum.MeanTravelTicks, sum.P50TravelTicks, sum.P90TravelTicks, sum.P99TravelTicks)
		}

		logrus.Info("Simulation complete.")
	},
}

// routeCmd answers a single shortest-path query against the network
var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Query one shortest path without running a simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		net := loadNetwork()

		if !network.IsValidMode(routeMode) {
			logrus.Fatalf("Unknown mode %q", routeMode)
		}
		cfg := routing.DefaultConfig()
		cfg.TurnPenalty = turnPenalty

		ix := routing.Build(net, network.TravelMode(routeMode), cfg)
		path, err := ix.Query(network.LaneID(routeOrigin), network.LaneID(routeDest))
		if err != nil {
			logrus.Fatalf("Route query: %v", err)
		}
		fmt.Printf("cost=%d ticks via %d lanes\n", path.Cost, len(path.Lanes))
		for i, lane := range path.Lanes {
			if i > 0 {
				fmt.Printf("  turn %s\n", path.Turns[i-1])
			}
			fmt.Printf("%s\n", lane)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&networkPath, "network", "", "Road network YAML file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().Int64Var(&turnPenalty, "turn-penalty", 2000, "Fixed cost per executed turn (ticks)")

	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file (spawn list)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for deterministic runs")
	runCmd.Flags().Int64Var(&horizon, "horizon", 3_600_000, "Total simulation horizon (in ticks)")
	runCmd.Flags().Int64Var(&stuckTimeout, "stuck-timeout", 60_000, "Ticks without progress before a traveler is flagged stuck")
	runCmd.Flags().Int64Var(&spawnJitter, "spawn-jitter", 0, "Max random ticks added to each spawn time")
	runCmd.Flags().Float64Var(&minGap, "min-gap", 4.0, "Minimum following distance (metres)")
	runCmd.Flags().Float64Var(&accel, "accel", 2.0, "Acceleration toward desired speed (m/s^2)")
	runCmd.Flags().IntVar(&rebuildThreshold, "rebuild-threshold", 128, "Edit size above which the path index fully rebuilds")
	runCmd.Flags().BoolVar(&printSummary, "summary", false, "Print travel time percentiles after the run")

	routeCmd.Flags().StringVar(&routeOrigin, "origin", "", "Origin lane id")
	routeCmd.Flags().StringVar(&routeDest, "dest", "", "Destination lane id")
	routeCmd.Flags().StringVar(&routeMode, "mode", "vehicle", "Travel mode (vehicle, bike, pedestrian)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(routeCmd)
}
