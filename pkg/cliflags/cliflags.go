// Package cliflags binds cobra/pflag flags to viper, the same pattern the
// engine and launch loop both use to let a config file, environment
// variables, and command-line flags all set the same setting with a
// consistent precedence order (flag > env > file > default).
package cliflags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AddString registers a string flag on flags and binds it into v under name.
func AddString(v *viper.Viper, flags *pflag.FlagSet, name, shorthand, def, usage string) {
	flags.StringP(name, shorthand, def, usage)
	bind(v, flags, name)
}

// AddBool registers a bool flag on flags and binds it into v under name.
func AddBool(v *viper.Viper, flags *pflag.FlagSet, name, shorthand string, def bool, usage string) {
	flags.BoolP(name, shorthand, def, usage)
	bind(v, flags, name)
}

func bind(v *viper.Viper, flags *pflag.FlagSet, name string) {
	if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("cliflags: failed to bind flag %q: %v", name, err))
	}
}

// SetEnvPrefix makes v also read SNAPBACK2_* environment variables, with
// dashes in flag names translated to underscores.
func SetEnvPrefix(v *viper.Viper, prefix string) {
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// RequiredString fetches key from v, returning an error listing the flag
// name if it was never set.
func RequiredString(v *viper.Viper, key string) (string, error) {
	val := v.GetString(key)
	if val == "" {
		return "", fmt.Errorf("required flag --%s was not set", key)
	}
	return val, nil
}
