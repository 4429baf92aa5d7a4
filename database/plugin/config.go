// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plugin

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is prepended to plugin option environment variables
const EnvPrefix = "CANOPY"

func pluginTypeFromName(name string) (PluginType, bool) {
	switch name {
	case "metadata":
		return PluginTypeMetadata, true
	case "blob":
		return PluginTypeBlob, true
	default:
		return 0, false
	}
}

// ProcessConfig applies option values from a config file. The map is keyed
// by plugin type name, then plugin name, then option name.
func ProcessConfig(cfg map[string]map[string]map[string]any) error {
	for typeName, plugins := range cfg {
		pluginType, ok := pluginTypeFromName(typeName)
		if !ok {
			return fmt.Errorf("unknown plugin type %q", typeName)
		}
		for pluginName, opts := range plugins {
			for optName, value := range opts {
				value, err := coerceOptionValue(
					pluginType,
					pluginName,
					optName,
					value,
				)
				if err != nil {
					return err
				}
				if err := SetPluginOption(pluginType, pluginName, optName, value); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ProcessEnvVars applies option values from environment variables named
// CANOPY_<TYPE>_<PLUGIN>_<OPTION>, with dashes replaced by underscores
func ProcessEnvVars() error {
	type envOpt struct {
		name    string
		plugin  string
		option  string
		ptype   PluginType
		optType PluginOptionType
	}
	var opts []envOpt
	pluginEntriesMutex.RLock()
	for _, p := range pluginEntries {
		for _, opt := range p.Options {
			opts = append(opts, envOpt{
				name:    envVarName(p.Type, p.Name, opt.Name),
				plugin:  p.Name,
				option:  opt.Name,
				ptype:   p.Type,
				optType: opt.Type,
			})
		}
	}
	pluginEntriesMutex.RUnlock()
	for _, o := range opts {
		raw, ok := os.LookupEnv(o.name)
		if !ok {
			continue
		}
		value, err := parseOptionValue(o.optType, raw)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", o.name, err)
		}
		if err := SetPluginOption(o.ptype, o.plugin, o.option, value); err != nil {
			return err
		}
	}
	return nil
}

func envVarName(pluginType PluginType, pluginName, optionName string) string {
	name := strings.Join(
		[]string{
			EnvPrefix,
			PluginTypeName(pluginType),
			pluginName,
			optionName,
		},
		"_",
	)
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func parseOptionValue(optType PluginOptionType, raw string) (any, error) {
	switch optType {
	case PluginOptionTypeString:
		return raw, nil
	case PluginOptionTypeBool:
		return strconv.ParseBool(raw)
	case PluginOptionTypeInt:
		return strconv.Atoi(raw)
	case PluginOptionTypeUint:
		return strconv.ParseUint(raw, 10, 64)
	default:
		return nil, fmt.Errorf("unknown plugin option type %d", optType)
	}
}

// coerceOptionValue converts YAML scalars to the option's Go type. YAML
// decodes every integer as int, and quoted values as strings.
func coerceOptionValue(
	pluginType PluginType,
	pluginName string,
	optionName string,
	value any,
) (any, error) {
	optType, ok := optionType(pluginType, pluginName, optionName)
	if !ok {
		// Unknown options are ignored by SetPluginOption
		return value, nil
	}
	if s, isString := value.(string); isString {
		return parseOptionValue(optType, s)
	}
	if optType == PluginOptionTypeString {
		return fmt.Sprint(value), nil
	}
	return value, nil
}

func optionType(
	pluginType PluginType,
	pluginName string,
	optionName string,
) (PluginOptionType, bool) {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, p := range pluginEntries {
		if p.Type != pluginType || p.Name != pluginName {
			continue
		}
		for _, opt := range p.Options {
			if opt.Name == optionName {
				return opt.Type, true
			}
		}
	}
	return 0, false
}
