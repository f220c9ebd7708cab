package config

// Path defaults, relative to the repository root.
const (
	DefaultRepoRoot     = "."
	DefaultTempDir      = "src/temp"
	DefaultDataDir      = "data"
	DefaultCodeNetRoot  = "data/RAG/unprocessed/Project_CodeNet"
	DefaultCorpusOutput = "data/processed/parallel_corpus/codeNet/python_go_pairs.jsonl"
)

// Parse defaults.
const (
	DefaultGrammar     = "python"
	DefaultFormat      = "json"
	DefaultCompress    = false
	DefaultWorkers     = 4
	DefaultMaxFileSize = "10MB"
)

// Extract defaults.
const (
	DefaultSourceLanguage = "Python"
	DefaultSourceExt      = "py"
	DefaultTargetLanguage = "Go"
	DefaultTargetExt      = "go"
	DefaultStatus         = "Accepted"
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Telemetry defaults.
const (
	DefaultSampleRatio = 1.0
)
