package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"codeberg.org/mutker/viturectl/internal/calibration"
	"codeberg.org/mutker/viturectl/internal/control"
	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/mirror"
	"codeberg.org/mutker/viturectl/internal/shm"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	SourceDevice = "device"
	SourceSHM    = "shm"

	DefaultOpenTrackIP   = "127.0.0.1"
	DefaultOpenTrackPort = 4242
	DefaultControlAddr   = control.DefaultAddr
	DefaultSHMPath       = shm.DefaultPath
	DefaultSHMInterval   = shm.DefaultInterval
	DefaultMetricsPeriod = 10 * time.Second
	DefaultMQTTTopic     = mirror.DefaultTopic
	DefaultMQTTClientID  = mirror.DefaultClientID

	// DefaultPIDFile is empty so the guard falls back to the temp dir, which
	// any user can write.
	DefaultPIDFile = ""

	defaultEnvPrefix = "VITURECTL"
	configName       = "viturectl"
)

type Config struct {
	OpenTrackIP     string        `mapstructure:"opentrack_ip"`
	OpenTrackPort   int           `mapstructure:"opentrack_port"`
	ControlAddr     string        `mapstructure:"control_addr"`
	Source          string        `mapstructure:"source"`
	SHMPath         string        `mapstructure:"shm_path"`
	SHMInterval     time.Duration `mapstructure:"shm_interval"`
	Debug           bool          `mapstructure:"debug"`
	Verbose         bool          `mapstructure:"verbose"`
	MetricsEnabled  bool          `mapstructure:"metrics_enabled"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	MetricsDB       string        `mapstructure:"metrics_db"`
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
	MQTTBroker      string        `mapstructure:"mqtt_broker"`
	MQTTTopic       string        `mapstructure:"mqtt_topic"`
	MQTTClientID    string        `mapstructure:"mqtt_client_id"`
	PIDFile         string        `mapstructure:"pid_file"`

	// ConfigFile is the file the values were read from, if any.
	ConfigFile string `mapstructure:"-"`

	// Commands holds the calibration commands given on the command line, in
	// the order they are sent. A non-empty list selects one-shot mode.
	Commands []calibration.Command `mapstructure:"-"`
}

// flagKeys maps long flag names to configuration keys.
var flagKeys = map[string]string{
	"opentrack-ip":     "opentrack_ip",
	"opentrack-port":   "opentrack_port",
	"control-addr":     "control_addr",
	"source":           "source",
	"shm-path":         "shm_path",
	"debug":            "debug",
	"verbose":          "verbose",
	"metrics":          "metrics_enabled",
	"metrics-addr":     "metrics_addr",
	"metrics-db":       "metrics_db",
	"metrics-interval": "metrics_interval",
	"mqtt-broker":      "mqtt_broker",
	"mqtt-topic":       "mqtt_topic",
	"pid-file":         "pid_file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("opentrack_ip", DefaultOpenTrackIP)
	v.SetDefault("opentrack_port", DefaultOpenTrackPort)
	v.SetDefault("control_addr", DefaultControlAddr)
	v.SetDefault("source", SourceDevice)
	v.SetDefault("shm_path", DefaultSHMPath)
	v.SetDefault("shm_interval", DefaultSHMInterval)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
	v.SetDefault("metrics_enabled", false)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("metrics_db", "")
	v.SetDefault("metrics_interval", DefaultMetricsPeriod)
	v.SetDefault("mqtt_broker", "")
	v.SetDefault("mqtt_topic", DefaultMQTTTopic)
	v.SetDefault("mqtt_client_id", DefaultMQTTClientID)
	v.SetDefault("pid_file", DefaultPIDFile)
}

// NewFlagSet declares the command line of viturectl.
func NewFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("viturectl", pflag.ContinueOnError)
	fs.SortFlags = false

	fs.StringP("opentrack-ip", "i", DefaultOpenTrackIP, "IP on which OpenTrack listens")
	fs.IntP("opentrack-port", "p", DefaultOpenTrackPort, "Port on which OpenTrack listens")
	fs.BoolP("debug", "d", false, "Enable debug logging")
	fs.BoolP("verbose", "v", false, "Enable verbose logging")

	fs.Bool("center", false, "Recenter to the current position")
	fs.Float32("sy", 1, "Scale yaw output")
	fs.Float32("sp", 1, "Scale pitch output")
	fs.Float32("sr", 1, "Scale roll output")
	fs.Var(new(boolValue), "iy", "Invert yaw output (true|false)")
	fs.Var(new(boolValue), "ip", "Invert pitch output (true|false)")
	fs.Var(new(boolValue), "ir", "Invert roll output (true|false)")

	fs.String("config", "", "Path to the configuration file")
	fs.String("control-addr", DefaultControlAddr, "Address of the calibration control channel")
	fs.String("source", SourceDevice, "Sample source: device or shm")
	fs.String("shm-path", DefaultSHMPath, "Key file of the shared memory quaternion segment")
	fs.Bool("metrics", false, "Record relay statistics history")
	fs.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.String("metrics-db", "", "Path to the metrics history database")
	fs.Duration("metrics-interval", DefaultMetricsPeriod, "Interval between history snapshots")
	fs.String("mqtt-broker", "", "Mirror calibrated poses to this MQTT broker")
	fs.String("mqtt-topic", DefaultMQTTTopic, "MQTT topic for mirrored poses")
	fs.String("pid-file", DefaultPIDFile, "Path of the single-instance PID file (default: temp dir)")

	return fs
}

// Load parses args, reads the optional configuration file and environment,
// and returns the merged configuration. Flags override the environment,
// which overrides the file.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(ErrInvalidConfig, err)
		}
	}

	fs := NewFlagSet()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, errFactory.Wrap(ErrInvalidArgument, err)
	}
	if fs.NArg() > 0 {
		return nil, errFactory.WithData(ErrInvalidArgument, fs.Args())
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(o.envPrefix)
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(ErrBindFlags, err)
		}
	}

	path := o.configPath
	if f := fs.Lookup("config"); f.Changed {
		path = f.Value.String()
	} else if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if err := readConfigFile(v, path); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	cmds, err := commandsFromFlags(fs)
	if err != nil {
		return nil, err
	}
	cfg.Commands = cmds

	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.SetConfigType("toml")
	v.AddConfigPath("/etc")
	v.AddConfigPath("$HOME/.config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errFactory.Wrap(ErrReadConfig, err)
		}
	}

	return nil
}

// commandsFromFlags collects the calibration flags that were set, in the
// order center, sp, sr, sy, ip, ir, iy.
func commandsFromFlags(fs *pflag.FlagSet) ([]calibration.Command, error) {
	var cmds []calibration.Command

	if fs.Changed("center") {
		center, err := fs.GetBool("center")
		if err != nil {
			return nil, errors.New().Wrap(ErrInvalidArgument, err)
		}
		if center {
			cmds = append(cmds, calibration.Recenter{})
		}
	}

	for _, f := range []struct {
		name string
		axis calibration.Axis
	}{{"sp", calibration.Pitch}, {"sr", calibration.Roll}, {"sy", calibration.Yaw}} {
		if !fs.Changed(f.name) {
			continue
		}
		factor, err := fs.GetFloat32(f.name)
		if err != nil {
			return nil, errors.New().Wrap(ErrInvalidArgument, err)
		}
		cmds = append(cmds, calibration.Scale{Axis: f.axis, Factor: factor})
	}

	for _, f := range []struct {
		name string
		axis calibration.Axis
	}{{"ip", calibration.Pitch}, {"ir", calibration.Roll}, {"iy", calibration.Yaw}} {
		if !fs.Changed(f.name) {
			continue
		}
		enabled := fs.Lookup(f.name).Value.(*boolValue).value
		cmds = append(cmds, calibration.Invert{Axis: f.axis, Enabled: enabled})
	}

	return cmds, nil
}

// OneShot reports whether the invocation only sends calibration commands.
func (c *Config) OneShot() bool {
	return len(c.Commands) > 0
}

// OpenTrackAddr returns the host:port OpenTrack listens on.
func (c *Config) OpenTrackAddr() string {
	return net.JoinHostPort(c.OpenTrackIP, strconv.Itoa(c.OpenTrackPort))
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if net.ParseIP(c.OpenTrackIP) == nil {
		return errFactory.Wrap(ErrInvalidConfig, errFactory.WithData(ErrInvalidArgument, c.OpenTrackIP))
	}
	if c.OpenTrackPort < 1 || c.OpenTrackPort > 65535 {
		return errFactory.Wrap(ErrInvalidConfig, errFactory.WithData(ErrInvalidPort, c.OpenTrackPort))
	}
	if _, _, err := net.SplitHostPort(c.ControlAddr); err != nil {
		return errFactory.Wrap(ErrInvalidConfig, errFactory.Wrap(ErrInvalidArgument, err))
	}
	if c.Source != SourceDevice && c.Source != SourceSHM {
		return errFactory.Wrap(ErrInvalidConfig, errFactory.WithData(ErrInvalidSource, c.Source))
	}
	if c.Source == SourceSHM && c.SHMInterval <= 0 {
		return errFactory.Wrap(ErrInvalidConfig, errFactory.WithData(ErrInvalidInterval, c.SHMInterval))
	}
	if c.MetricsEnabled && c.MetricsInterval <= 0 {
		return errFactory.Wrap(ErrInvalidConfig, errFactory.WithData(ErrInvalidInterval, c.MetricsInterval))
	}

	return nil
}

// boolValue is a boolean flag that always takes an explicit value, so both
// "--iy true" and "--iy=false" parse.
type boolValue struct {
	value bool
}

func (b *boolValue) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.value = v
	return nil
}

func (b *boolValue) String() string {
	return strconv.FormatBool(b.value)
}

func (*boolValue) Type() string {
	return "bool"
}
