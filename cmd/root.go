// Package cmd provides the command-line interface for mycoserve.
//
// Configuration System:
//
//	Settings come from several sources with clear precedence:
//	1. Command-line flags (--port, --host, ...) - highest priority
//	2. Individual environment variables (MYCOSERVE_SERVER_PORT, ...)
//	3. The configuration file: --config, else MYCOSERVE_CONFIG_FILE,
//	   else .mycoserve.yml in the working directory - lowest priority
//
// Environment Variables:
//
//	MYCOSERVE_CONFIG_FILE: Path to custom configuration file
//	MYCOSERVE_SERVER_PORT: Override server port
//	MYCOSERVE_PATHS_ROOT: Override the static root
//	And the rest following the MYCOSERVE_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by viper.
const EnvPrefix = "MYCOSERVE"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mycoserve",
	Short: "A tiny two-host web server for a personal site and a mushroom encyclopedia",
	Long: `mycoserve answers raw HTTP/1.1 requests for two virtual hosts:

  localhost:7878            static files from the site root
  mycology.localhost:7878   the mushroom encyclopedia, rendered from
                            shroom_info.yaml and HTML fragments

Every connection gets exactly one response and is then closed. Each
connection is recorded in the access log file and echoed to the console.

Quick Start:
  mycoserve serve                       Start the server
  mycoserve taxonomy --format summary   Check the encyclopedia source
  mycoserve version                     Show build information`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .mycoserve.yml, can also use MYCOSERVE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig points viper at the configuration file and the environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mycoserve")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvKeys()

	// A missing or unreadable file leaves the defaults in place.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
