package config

import (
	"reflect"
	"strings"

	"github.com/dmitrijs2005/webmail/internal/flagx"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to upper-cased keys, e.g. WEBMAIL_DATABASE_DSN.
const EnvPrefix = "WEBMAIL"

// parseFile overlays config with the file named by -c/-config (JSON or YAML,
// chosen by extension) and with WEBMAIL_* environment variables. Values not
// present in either source keep what config already holds.
//
// Unreadable or malformed files panic, matching flag handling.
func parseFile(config *Config, args []string) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so that env-only values reach Unmarshal.
	for key, val := range currentValues(config) {
		v.SetDefault(key, val)
	}

	if path := flagx.ConfigFileFlag(args); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			panic(err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		panic(err)
	}
}

// currentValues maps every mapstructure key of Config to its current value.
func currentValues(config *Config) map[string]any {
	out := make(map[string]any)

	rv := reflect.ValueOf(config).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		key := rt.Field(i).Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		out[key] = rv.Field(i).Interface()
	}
	return out
}
