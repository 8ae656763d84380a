package logging

import "go.uber.org/zap/zapcore"

// TraceLevel sits below Debug. Planner uses it for full prompts and raw
// model responses.
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a level name. "trace" is accepted alongside the
// zap level names.
func LevelFromString(level string) (zapcore.Level, error) {
	if level == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// LevelName is the inverse of LevelFromString.
func LevelName(l zapcore.Level) string {
	if l == TraceLevel {
		return "trace"
	}
	return l.String()
}
