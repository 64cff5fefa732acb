package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// NewLogger builds a zap logger appropriate for the given environment.
func NewLogger(environment string) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if environment == "prod" {
		l, err = zap.NewProduction()
	} else if environment == "test" {
		l = zap.NewExample()
	} else {
		l, err = zap.NewDevelopment()
	}

	return l, err
}

func MustNewLogger(environment string) *zap.Logger {
	return zap.Must(NewLogger(environment))
}

func InitLogger(environment string) (*zap.Logger, error) {
	var err error
	logger, err = NewLogger(environment)
	if err != nil {
		return nil, err
	}

	return logger, nil
}

func GetLogger() *zap.Logger {
	if logger == nil {
		panic("logger not initialized")
	}

	return logger
}

func makeFields(inputs []interface{}) []zapcore.Field {
	extras := make([]zapcore.Field, len(inputs))
	for i, field := range inputs {
		extras[i] = zap.Any(fmt.Sprintf("%d", i), field)
	}

	return extras
}

func Error(msg string, fields ...interface{}) {
	GetLogger().Error(msg, makeFields(fields)...)
}

func Info(msg string, fields ...interface{}) {
	GetLogger().Info(msg, makeFields(fields)...)
}

func Warn(msg string, fields ...interface{}) {
	GetLogger().Warn(msg, makeFields(fields)...)
}

func Debug(msg string, fields ...interface{}) {
	GetLogger().Debug(msg, makeFields(fields)...)
}

func Fatal(msg string, fields ...interface{}) {
	GetLogger().Fatal(msg, makeFields(fields)...)
}
