package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// LoggingConfig levels are one of none, normal or debug.
type LoggingConfig struct {
	ConsoleLevel    string `env:"LEVEL" envDefault:"normal"`
	FileLevel       string `env:"FILE_LEVEL" envDefault:"none"`
	FileDestination string `env:"FILE"`
}

func levelFor(name string) (zapcore.Level, bool, error) {
	switch name {
	case "", "none":
		return 0, false, nil
	case "normal":
		return zapcore.InfoLevel, true, nil
	case "debug":
		return zapcore.DebugLevel, true, nil
	}
	return 0, false, fmt.Errorf("unknown log level %q (want none, normal or debug)", name)
}

// Prepare builds the program logger: errors to stderr, the rest of the
// console level to stdout, and optionally everything at file level to a file.
// Terminal UIs pass console=false so nothing is written over the screen.
func (conf LoggingConfig) Prepare(console bool) (*zap.Logger, error) {
	cores := []zapcore.Core{}

	if console {
		lvl, on, err := levelFor(conf.ConsoleLevel)
		if err != nil {
			return nil, err
		}
		if on {
			low := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return lvl <= l && l < zapcore.ErrorLevel })
			high := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })
			cores = append(cores,
				zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig(os.Stdout)), zapcore.Lock(os.Stdout), low),
				zapcore.NewCore(newEncoder(consoleEncoderConfig(os.Stderr)), zapcore.Lock(os.Stderr), high),
			)
		}
	}

	lvl, on, err := levelFor(conf.FileLevel)
	if err != nil {
		return nil, err
	}
	if on {
		if conf.FileDestination == "" {
			return nil, errors.New("file logging requested without a destination")
		}
		if err := os.MkdirAll(filepath.Dir(conf.FileDestination), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(conf.FileDestination, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", conf.FileDestination, err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(f), lvl))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Named("folio"), nil
}

func consoleEncoderConfig(f *os.File) zapcore.EncoderConfig {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if isatty.IsTerminal(f.Fd()) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return ec
}

// consoleEnc prints only the error text for error fields on the console.
type consoleEnc struct {
	zapcore.Encoder
}

func newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return consoleEnc{zapcore.NewConsoleEncoder(cfg)}
}

func (c consoleEnc) Clone() zapcore.Encoder {
	return consoleEnc{c.Encoder.Clone()}
}

func (c consoleEnc) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	out := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			if e, ok := f.Interface.(error); ok {
				f.Interface = errors.New(e.Error())
			}
		}
		out = append(out, f)
	}
	return c.Encoder.EncodeEntry(ent, out)
}
