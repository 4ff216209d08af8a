package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelWarningAliasStringConstant   = "warning"
	logLevelErrorStringConstant          = "error"
	logLevelCriticalStringConstant       = "critical"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	jsonZapEncodingStringConstant        = "json"
	consoleZapEncodingStringConstant     = "console"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug    LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo     LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn     LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError    LogLevel = LogLevel(logLevelErrorStringConstant)
	LogLevelCritical LogLevel = LogLevel(logLevelCriticalStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

// LoggerFactory builds zap.Logger instances with consistent configuration.
type LoggerFactory struct{}

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug:    zapcore.DebugLevel,
	LogLevelInfo:     zapcore.InfoLevel,
	LogLevelWarn:     zapcore.WarnLevel,
	LogLevelError:    zapcore.ErrorLevel,
	LogLevelCritical: zapcore.DPanicLevel,
}

var logLevelAliases = map[string]LogLevel{
	logLevelWarningAliasStringConstant: LogLevelWarn,
}

var logFormatEncodingMapping = map[LogFormat]string{
	LogFormatStructured: jsonZapEncodingStringConstant,
	LogFormatConsole:    consoleZapEncodingStringConstant,
}

// SupportedLogLevelNames lists the canonical level names accepted on the command line.
func SupportedLogLevelNames() []string {
	return []string{
		logLevelDebugStringConstant,
		logLevelInfoStringConstant,
		logLevelWarningAliasStringConstant,
		logLevelErrorStringConstant,
		logLevelCriticalStringConstant,
	}
}

// SupportedLogFormatNames lists the accepted logger encodings.
func SupportedLogFormatNames() []string {
	return []string{logFormatStructuredStringConstant, logFormatConsoleStringConstant}
}

// NormalizeLogLevel maps user input such as "WARNING" or " Info " onto a supported LogLevel.
func NormalizeLogLevel(rawLogLevel string) (LogLevel, error) {
	normalizedName := strings.ToLower(strings.TrimSpace(rawLogLevel))
	if aliasedLevel, isAlias := logLevelAliases[normalizedName]; isAlias {
		return aliasedLevel, nil
	}
	candidateLevel := LogLevel(normalizedName)
	if _, levelExists := logLevelMapping[candidateLevel]; !levelExists {
		return "", fmt.Errorf(unsupportedLogLevelTemplateConstant, rawLogLevel)
	}
	return candidateLevel, nil
}

// NormalizeLogFormat maps user input onto a supported LogFormat.
func NormalizeLogFormat(rawLogFormat string) (LogFormat, error) {
	candidateFormat := LogFormat(strings.ToLower(strings.TrimSpace(rawLogFormat)))
	if _, formatExists := logFormatEncodingMapping[candidateFormat]; !formatExists {
		return "", fmt.Errorf(unsupportedLogFormatTemplateConstant, rawLogFormat)
	}
	return candidateFormat, nil
}

// NewLoggerFactory constructs a new logger factory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// CreateLogger produces a zap.Logger honoring the requested log level and format.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	zapLogLevel, levelExists := logLevelMapping[requestedLogLevel]
	if !levelExists {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	encoding, formatExists := logFormatEncodingMapping[requestedLogFormat]
	if !formatExists {
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}

	configuration := zap.NewProductionConfig()
	configuration.Level = zap.NewAtomicLevelAt(zapLogLevel)
	configuration.Encoding = encoding
	if requestedLogFormat == LogFormatConsole {
		configuration.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		configuration.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	logger, buildError := configuration.Build()
	if buildError != nil {
		return nil, buildError
	}

	return logger, nil
}
