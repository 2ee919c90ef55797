package config

const SourceFileExt = ".lox"

// ConfigFileNames are searched for, in order, by FindConfig.
var ConfigFileNames = []string{"glox.yaml", "glox.yml"}

// Interpreter limits. Operand widths fix most of them: a constant or local
// index is one byte and a jump offset is two.
const (
	FramesMax    = 64
	StackMax     = FramesMax * MaxLocals
	MaxConstants = 256
	MaxLocals    = 256
	MaxUpvalues  = 256
	MaxArgs      = 255
	MaxParams    = 255
	MaxJump      = 0xffff
)

// Heap defaults.
const (
	DefaultInitialGC    = 1024
	DefaultGrowthFactor = 2
)

// REPL defaults.
const (
	DefaultPrompt      = "> "
	DefaultHistoryFile = ".glox_history"
)

// Process exit codes (sysexits.h).
const (
	ExitOK           = 0
	ExitUsage        = 64
	ExitCompileError = 65
	ExitRuntimeError = 70
	ExitIOError      = 74
)

// Names of built-in natives.
const (
	ClockFuncName = "clock"
)

// Names used when printing functions.
const (
	ScriptName = "script"
)
