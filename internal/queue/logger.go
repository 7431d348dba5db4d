package queue

import (
	"fmt"

	"thumbgen/internal/infra"
)

// AsynqLogger routes asynq's internal logging through zerolog.
type AsynqLogger struct {
	L *infra.Logger
}

func (a AsynqLogger) Debug(args ...interface{}) { a.L.Debug().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (a AsynqLogger) Info(args ...interface{})  { a.L.Info().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (a AsynqLogger) Warn(args ...interface{})  { a.L.Warn().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (a AsynqLogger) Error(args ...interface{}) { a.L.Error().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (a AsynqLogger) Fatal(args ...interface{}) { a.L.Fatal().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
