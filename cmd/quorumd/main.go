// Command quorumd is the entry point for a single-decree Paxos cluster:
// it loads a config file, then hands control to the operator shell.
package main

import (
	"flag"
	"log"
	"os"

	"go-quorum/internal/config"
	"go-quorum/internal/shell"
)

func main() {
	configPath := flag.String("config", "cluster.yaml", "path to the cluster config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		log.Printf("[MAIN] -> no config at %s (%v), using defaults", *configPath, err)
		conf = &config.Conf{}
		conf.FillDefaults()
	}

	log.Printf("[MAIN] -> base_port=%d replica_count=%d connect_timeout=%s write_timeout=%s manual_mode=%t log_level=%s",
		conf.BasePort, conf.ReplicaCount, conf.ConnectTimeout, conf.WriteTimeout, conf.ManualMode, conf.LogLevel)

	debug := conf.LogLevel == "debug"
	s := shell.New(os.Stdout, conf.BasePort, conf.ConnectTimeout, conf.WriteTimeout, conf.ReplicaCount, conf.ManualMode, debug)
	s.Run(os.Stdin)
}
