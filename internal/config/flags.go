package config

import (
	"flag"
	"os"

	"github.com/betjuliano/sefa-dashboard/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-r string   storage root directory
//	-u string   remote backend endpoint URL
//	-k string   remote backend API key
//	-g float    default preference goal
//	-L          force local-only storage
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-r", "-u", "-k", "-g", "-L"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.StorageRoot, "r", cfg.StorageRoot, "storage root directory")
	fs.StringVar(&cfg.RemoteURL, "u", cfg.RemoteURL, "remote backend endpoint URL")
	fs.StringVar(&cfg.RemoteKey, "k", cfg.RemoteKey, "remote backend API key")
	fs.Float64Var(&cfg.DefaultGoal, "g", cfg.DefaultGoal, "default preference goal")
	fs.BoolVar(&cfg.ForceLocal, "L", cfg.ForceLocal, "force local-only storage")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
