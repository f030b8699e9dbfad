package cmd

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configKeys are bound to environment variables explicitly so that
// viper.Unmarshal sees MYCOSERVE_* overrides for keys that appear in
// neither the config file nor a flag.
var configKeys = []string{
	"server.port",
	"server.host",
	"server.workers",
	"domains.site",
	"domains.encyclopedia",
	"paths.root",
	"paths.data",
	"paths.source",
	"paths.images",
	"logging.file",
	"logging.level",
	"logging.format",
	"logging.buffer",
}

func bindEnvKeys() {
	for _, key := range configKeys {
		viper.BindEnv(key)
	}
}

// ServerFlags are the flags of the serve command.
type ServerFlags struct {
	Port    int
	Host    string
	Workers int
}

// AddServerFlags registers --port, --host and --workers on cmd and binds
// them to their configuration keys.
func AddServerFlags(cmd *cobra.Command) *ServerFlags {
	flags := &ServerFlags{}

	cmd.Flags().IntVarP(&flags.Port, "port", "p", 7878, "Port to serve on")
	cmd.Flags().StringVar(&flags.Host, "host", "127.0.0.1", "Host to bind to")
	cmd.Flags().IntVarP(&flags.Workers, "workers", "w", runtime.NumCPU(), "Number of connection workers")

	AddFlagValidation(cmd, "port", ValidatePort)
	AddFlagValidation(cmd, "workers", ValidatePositive)

	SetViperBindings(cmd, map[string]string{
		"port":    "server.port",
		"host":    "server.host",
		"workers": "server.workers",
	})

	return flags
}

// SetViperBindings binds flags to viper configuration keys
func SetViperBindings(cmd *cobra.Command, bindings map[string]string) {
	for flagName, configKey := range bindings {
		if flag := cmd.Flags().Lookup(flagName); flag != nil {
			viper.BindPFlag(configKey, flag)
		}
	}
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidatePort accepts 1-65535.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	return nil
}

// ValidatePositive accepts integers greater than zero.
func ValidatePositive(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid number: %s", s)
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1, got %d", n)
	}
	return nil
}

// enumValue is a string flag restricted to a fixed set of values.
type enumValue struct {
	value   *string
	allowed []string
}

var _ pflag.Value = (*enumValue)(nil)

// EnumVarP registers a string flag that only accepts one of allowed.
func EnumVarP(fs *pflag.FlagSet, p *string, name, shorthand, value string, allowed []string, usage string) {
	*p = value
	usage = fmt.Sprintf("%s (%s)", usage, strings.Join(allowed, ", "))
	fs.VarP(&enumValue{value: p, allowed: allowed}, name, shorthand, usage)
}

func (e *enumValue) String() string {
	if e.value == nil {
		return ""
	}
	return *e.value
}

func (e *enumValue) Set(s string) error {
	for _, a := range e.allowed {
		if s == a {
			*e.value = s
			return nil
		}
	}
	return fmt.Errorf("invalid value %q, must be one of: %s", s, strings.Join(e.allowed, ", "))
}

func (e *enumValue) Type() string {
	return "string"
}
