// Package config loads the OOP lowering driver's tunables. The lowering
// core itself owns no on-disk format; this package is the home of the
// runtime-class bridge's enable flag plus the handful of other driver
// knobs a hosting CLI wants to surface.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Driver holds the OOP lowering driver's runtime-tunable options.
type Driver struct {
	// RuntimeClassBridge enables the NEW-expression fast path that routes
	// construction of catalogued built-in classes (e.g. a text builder)
	// directly into the runtime rather than through synthesised user-class
	// IL.
	RuntimeClassBridge bool

	// TrapOnMissingMetadata, when true, makes the driver emit a Trap
	// instruction ahead of the conservative zero/null fallback it produces
	// for missing metadata. Off by default: the silent fallback is the
	// normal behaviour, and this is an opt-in strictness knob for hosts
	// that want lowering gaps to be loud during development.
	TrapOnMissingMetadata bool
}

// Default returns the driver's default options: the runtime-class bridge
// enabled, strict trapping disabled.
func Default() Driver {
	return Driver{RuntimeClassBridge: true}
}

// Load reads driver options from the named config file (if it exists),
// environment variables prefixed VIPEROOP_, and finally Default()'s values
// as the fallback for anything unset.
func Load(path string) (Driver, error) {
	v := viper.New()
	v.SetEnvPrefix("VIPEROOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("runtime_class_bridge", def.RuntimeClassBridge)
	v.SetDefault("trap_on_missing_metadata", def.TrapOnMissingMetadata)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
				return Driver{}, err
			}
		}
	}

	return Driver{
		RuntimeClassBridge:    v.GetBool("runtime_class_bridge"),
		TrapOnMissingMetadata: v.GetBool("trap_on_missing_metadata"),
	}, nil
}
