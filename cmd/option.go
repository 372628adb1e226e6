package cmd

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultRegion is used when AWS_REGION is unset.
	DefaultRegion = "eu-west-1"
	// DefaultStateMachineArn is queried when no machines are configured.
	DefaultStateMachineArn = "arn:aws:states:eu-west-1:518923560508:stateMachine:WakeupFarms_StepFunctions_v11_auto-retry"
	// DefaultOffsetHours is the fixed UTC offset of "today".
	DefaultOffsetHours = 1

	minOffsetHours = -12
	maxOffsetHours = 14
)

// Options holds settings after merging flags, config file and env defaults.
type Options struct {
	MachinesCSV string
	Region      string
	Profile     string
	OffsetHours int
	InputQuery  string
	ConfigFile  string
	Multi       bool
	Verbose     bool
}

// FileConfig is the YAML config file layout.
type FileConfig struct {
	Region        string   `yaml:"region"`
	StateMachines []string `yaml:"state_machines"`
	OffsetHours   *int     `yaml:"offset_hours"`
	InputQuery    string   `yaml:"input_query"`
}

// EnvOptions reads settings from the environment, falling back to defaults.
func EnvOptions() *Options {
	machines := os.Getenv("STATE_MACHINE_ARNS")
	if machines == "" {
		machines = os.Getenv("STATE_MACHINE_ARN")
	}
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = DefaultRegion
	}
	return &Options{
		MachinesCSV: machines,
		Region:      region,
		OffsetHours: envInt("UTC_OFFSET_HOURS", DefaultOffsetHours),
		InputQuery:  os.Getenv("INPUT_QUERY"),
		Verbose:     strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug"),
	}
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

// CollectOptions parses flags with environment-backed defaults and returns Options.
// Values from --config apply to every setting not given as a flag.
func CollectOptions() (*Options, error) {
	o := EnvOptions()

	flag.StringVar(&o.MachinesCSV, "machines", o.MachinesCSV, "Comma-separated state machine ARNs")
	flag.StringVar(&o.Region, "region", o.Region, "AWS region")
	flag.StringVar(&o.Profile, "profile", "", "AWS shared config profile (or set AWS_PROFILE)")
	flag.IntVar(&o.OffsetHours, "offset-hours", o.OffsetHours, "Fixed UTC offset in hours defining \"today\"")
	flag.StringVar(&o.InputQuery, "input-query", o.InputQuery, "JMESPath applied to each execution input")
	flag.StringVar(&o.ConfigFile, "config", "", "YAML config file")
	flag.BoolVar(&o.Multi, "multi", false, "Always group output by state machine")
	flag.BoolVar(&o.Verbose, "verbose", o.Verbose, "Enable debug logging")
	flag.Parse()

	if o.ConfigFile == "" {
		return o, nil
	}
	fc, err := LoadFileConfig(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	o.applyFile(fc, set)
	return o, nil
}

// LoadFileConfig reads a YAML config file.
func LoadFileConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &fc, nil
}

func (o *Options) applyFile(fc *FileConfig, setByFlag map[string]bool) {
	if !setByFlag["machines"] && len(fc.StateMachines) > 0 {
		o.MachinesCSV = strings.Join(fc.StateMachines, ",")
	}
	if !setByFlag["region"] && fc.Region != "" {
		o.Region = fc.Region
	}
	if !setByFlag["offset-hours"] && fc.OffsetHours != nil {
		o.OffsetHours = *fc.OffsetHours
	}
	if !setByFlag["input-query"] && fc.InputQuery != "" {
		o.InputQuery = fc.InputQuery
	}
}

// Validate checks option values.
// Returns an error message and exit code; code 0 means valid.
func (o *Options) Validate() (string, int) {
	if o.OffsetHours < minOffsetHours || o.OffsetHours > maxOffsetHours {
		return fmt.Sprintf("error: offset hours %d outside [%d, %d]", o.OffsetHours, minOffsetHours, maxOffsetHours), 2
	}
	if len(o.Machines()) == 0 {
		return "error: no state machines configured", 2
	}
	return "", 0
}

// Machines returns the configured state machine ARNs, or the default ARN
// when none are configured.
func (o *Options) Machines() []string {
	if o.MachinesCSV == "" {
		return []string{DefaultStateMachineArn}
	}
	return ParseMachinesCSV(o.MachinesCSV)
}

// MultiBody reports whether output is grouped per state machine.
func (o *Options) MultiBody() bool {
	return o.Multi || len(o.Machines()) > 1
}

// ParseMachinesCSV turns a comma-separated string into slice, trimming empties.
func ParseMachinesCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	var machines []string
	for _, m := range strings.Split(csv, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			machines = append(machines, m)
		}
	}
	return machines
}
