package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	listValueSeparatorConstant                      = ","
	configurationKeySeparatorConstant               = "."
	environmentKeySeparatorConstant                 = "_"
	configurationReadErrorTemplateConstant          = "failed to read configuration %s: %w"
	configurationUnmarshalErrorTemplateConstant     = "failed to parse configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant = "failed to merge embedded configuration: %w"
	configurationFileMissingTemplateConstant        = "configuration file %s does not exist"
	configurationFileInspectTemplateConstant        = "unable to inspect configuration file %s: %w"
)

// ConfigurationSources lists the layers a ConfigurationLoader merges, lowest precedence first:
// defaults, the embedded document, the first FileName found in SearchDirectories (or an explicit path),
// then EnvironmentPrefix-scoped environment variables.
type ConfigurationSources struct {
	FileName                  string
	FileType                  string
	EnvironmentPrefix         string
	SearchDirectories         []string
	EmbeddedConfiguration     []byte
	EmbeddedConfigurationType string
}

// ConfigurationFileMissingError reports an explicitly requested configuration file that does not exist.
type ConfigurationFileMissingError struct {
	Path string
}

func (missing ConfigurationFileMissingError) Error() string {
	return fmt.Sprintf(configurationFileMissingTemplateConstant, missing.Path)
}

// Unwrap lets callers match the failure with fs.ErrNotExist.
func (missing ConfigurationFileMissingError) Unwrap() error {
	return fs.ErrNotExist
}

// LoadedConfiguration describes where the resolved values came from.
type LoadedConfiguration struct {
	ConfigFileUsed string
	// EnvironmentOverrides holds the dotted keys whose value was supplied by an environment variable, sorted.
	EnvironmentOverrides []string
}

// ConfigurationLoader decodes layered YAML configuration into a tagged struct, rejecting unknown keys.
type ConfigurationLoader struct {
	sources                ConfigurationSources
	environmentKeyReplacer *strings.Replacer
}

// NewConfigurationLoader copies sources so later mutation by the caller has no effect.
func NewConfigurationLoader(sources ConfigurationSources) *ConfigurationLoader {
	copiedSources := sources
	copiedSources.SearchDirectories = append([]string(nil), sources.SearchDirectories...)
	copiedSources.EmbeddedConfiguration = append([]byte(nil), sources.EmbeddedConfiguration...)
	copiedSources.EmbeddedConfigurationType = strings.TrimSpace(sources.EmbeddedConfigurationType)
	return &ConfigurationLoader{
		sources:                copiedSources,
		environmentKeyReplacer: strings.NewReplacer(configurationKeySeparatorConstant, environmentKeySeparatorConstant),
	}
}

// LoadConfiguration fills targetConfiguration from every source. A non-empty configurationFilePath replaces the
// directory search and must exist.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.sources.FileName)
	viperInstance.SetConfigType(loader.sources.FileType)

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if mergeError := loader.mergeEmbeddedConfiguration(viperInstance); mergeError != nil {
		return LoadedConfiguration{}, mergeError
	}

	trimmedFilePath := strings.TrimSpace(configurationFilePath)
	if len(trimmedFilePath) > 0 {
		if _, statError := os.Stat(trimmedFilePath); statError != nil {
			if errors.Is(statError, fs.ErrNotExist) {
				return LoadedConfiguration{}, ConfigurationFileMissingError{Path: trimmedFilePath}
			}
			return LoadedConfiguration{}, fmt.Errorf(configurationFileInspectTemplateConstant, trimmedFilePath, statError)
		}
		viperInstance.SetConfigFile(trimmedFilePath)
	} else {
		for _, searchDirectory := range loader.sources.SearchDirectories {
			viperInstance.AddConfigPath(searchDirectory)
		}
	}

	if readError := viperInstance.MergeInConfig(); readError != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readError, &notFound) {
			return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, trimmedFilePath, readError)
		}
	}

	viperInstance.SetEnvPrefix(loader.sources.EnvironmentPrefix)
	viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	viperInstance.AutomaticEnv()

	if unmarshalError := viperInstance.UnmarshalExact(targetConfiguration, viper.DecodeHook(configurationDecodeHook())); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{
		ConfigFileUsed:       viperInstance.ConfigFileUsed(),
		EnvironmentOverrides: loader.environmentOverrides(viperInstance.AllKeys()),
	}, nil
}

func (loader *ConfigurationLoader) mergeEmbeddedConfiguration(viperInstance *viper.Viper) error {
	if len(loader.sources.EmbeddedConfiguration) == 0 {
		return nil
	}
	if len(loader.sources.EmbeddedConfigurationType) > 0 {
		viperInstance.SetConfigType(loader.sources.EmbeddedConfigurationType)
		defer viperInstance.SetConfigType(loader.sources.FileType)
	}
	if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.sources.EmbeddedConfiguration)); mergeError != nil {
		return fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
	}
	return nil
}

func (loader *ConfigurationLoader) environmentOverrides(configurationKeys []string) []string {
	overrides := make([]string, 0)
	for _, configurationKey := range configurationKeys {
		if _, isSet := os.LookupEnv(loader.environmentVariableName(configurationKey)); isSet {
			overrides = append(overrides, configurationKey)
		}
	}
	sort.Strings(overrides)
	return overrides
}

func (loader *ConfigurationLoader) environmentVariableName(configurationKey string) string {
	variableName := strings.ToUpper(loader.environmentKeyReplacer.Replace(configurationKey))
	if len(loader.sources.EnvironmentPrefix) == 0 {
		return variableName
	}
	return strings.ToUpper(loader.sources.EnvironmentPrefix) + environmentKeySeparatorConstant + variableName
}

// configurationDecodeHook lets environment variables such as VENDORSYNC_IMPORT_PROTECTED_PATTERNS="A,B" populate list fields.
func configurationDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(listValueSeparatorConstant),
	)
}
