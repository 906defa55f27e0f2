package utils

// EmptyString represents a reusable empty string constant.
const EmptyString = ""

// ErrorLogFormat defines the formatting string for error log messages.
const ErrorLogFormat = "Error: %v"

// LoggerInitializationFailedMessageFormat reports a logger construction failure.
const LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"

// ApplicationExecutionFailedMessage prefixes fatal command failures.
const ApplicationExecutionFailedMessage = "application execution failed"

// ConfigFileName is the name of the local configuration file.
const ConfigFileName = ".wdtree.yaml"

// GlobalConfigDirectoryName is the per-user configuration directory under the home directory.
const GlobalConfigDirectoryName = ".wdtree"

// GitDirectoryName is the name of the Git repository directory.
const GitDirectoryName = ".git"
