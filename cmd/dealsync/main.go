// Command dealsync runs deal ingestion and queries from the shell, and keeps
// a local shopper profile (zip code, stores, watch list) for quick lookups.
package main

import (
	"errors"
	"os"
	"path/filepath"

	"grocerygenius-api/internal/logging"
	"grocerygenius-api/internal/preferences"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

// Options are the global flags. Commands read them after parsing.
type Options struct {
	PrefsFile string `long:"prefs" env:"DEALSYNC_PREFS" description:"Preferences file (default: <user config dir>/grocerygenius/prefs.yaml)"`
	Verbose   bool   `short:"v" long:"verbose" description:"Log debug output"`

	Sync  syncCommand  `command:"sync" description:"Fetch flyers for a zip code and replace current deals"`
	Deals dealsCommand `command:"deals" description:"List current deals"`
	Prefs prefsCommand `command:"prefs" description:"Show or change the local shopper profile"`
	Watch watchCommand `command:"watch" description:"Manage the watch list and find matching deals"`
}

var opts Options

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		level := "warn"
		if opts.Verbose {
			level = "debug"
		}
		logging.Setup("development", level)
		// stdout carries command output, including --json.
		logrus.SetOutput(os.Stderr)
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}

// openPreferences opens the profile file named by --prefs.
func openPreferences() (*preferences.Preferences, error) {
	path := opts.PrefsFile
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "grocerygenius", "prefs.yaml")
	}
	return preferences.New(preferences.NewFileStore(path)), nil
}
