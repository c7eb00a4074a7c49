package main

import (
	"net"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// options are the startup settings. They are read once and are not live-tunable.
type options struct {
	ConfigPath  string
	Recalibrate bool
	ListDevices bool
	Listen      string
	LogLevel    string
	Tray        bool
	Watch       bool
	Uinput      string
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("camstick", pflag.ContinueOnError)
	fs.String("config", "config.json", "settings document; .yaml/.yml and .toml select those formats")
	fs.Bool("recalibrate", false, "run the calibration wizard even if the document is calibrated")
	fs.Bool("list-devices", false, "print attached joysticks and exit")
	fs.String("listen", "127.0.0.1:8080", "address of the settings page")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.Bool("tray", false, "show a system tray icon")
	fs.Bool("watch", true, "reload the settings document as soon as it changes on disk")
	fs.String("uinput", "/dev/uinput", "uinput device node")
	return fs
}

// parseOptions reads flags from args, falling back to CAMSTICK_* environment variables
// and then the flag defaults.
func parseOptions(args []string) (options, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("CAMSTICK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return options{}, errors.Wrap(err, "binding flags")
	}

	return options{
		ConfigPath:  v.GetString("config"),
		Recalibrate: v.GetBool("recalibrate"),
		ListDevices: v.GetBool("list-devices"),
		Listen:      v.GetString("listen"),
		LogLevel:    v.GetString("log-level"),
		Tray:        v.GetBool("tray"),
		Watch:       v.GetBool("watch"),
		Uinput:      v.GetString("uinput"),
	}, nil
}

// settingsURL turns a listen address into something a browser can open.
func settingsURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
