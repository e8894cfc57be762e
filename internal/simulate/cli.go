package simulate

import (
	"flag"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/peterbourgon/ff/v3"
)

// EnvPrefix is prepended to flag names when read from the environment, e.g.
// PEERFB_SIM_URL.
const EnvPrefix = "PEERFB_SIM"

// Default configuration constants.
const (
	defaultWorkersPerCPU = 2
	defaultTimeout       = 30 * time.Second
	defaultMaxRetries    = 5
)

// ParseFlags builds a Config from args, the environment and an optional
// config file named by -config.
func ParseFlags(name string, args []string, out io.Writer) (*Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { usage(fs, out) }

	cfg := &Config{}
	_ = fs.String("config", "", "config file (optional), one 'flag value' per line")
	fs.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	fs.StringVar(&cfg.UsersFile, "users", "configs/users.yaml", "YAML users file with plain passwords")
	fs.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkersPerCPU, "number of concurrent submitters")
	fs.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	fs.IntVar(&cfg.MaxRetries, "retries", defaultMaxRetries, "retries per throttled submission")
	fs.StringVar(&cfg.OutputFile, "output", "", "write accepted submissions to this JSON file")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "log every submission")

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix(EnvPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		return nil, err
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	return cfg, nil
}

func usage(fs *flag.FlagSet, out io.Writer) {
	fmt.Fprintf(out, `Peer Feedback Simulator

Logs in as every user in the users file, rates each open roster entry with
random scores, then checks the admin report against locally computed
summaries.

Usage:
  %s [options]

Every option may also be set as %s_<NAME>, e.g. %s_URL.

Options:
`, fs.Name(), EnvPrefix, EnvPrefix)
	fs.PrintDefaults()
}
