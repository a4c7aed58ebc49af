package scheduler

import (
	"fmt"

	"floatwatch/pkg/logx"
)

// cronLogger adapts logx to cron.Logger. onSkip is invoked for the "skip"
// message that cron.SkipIfStillRunning emits.
type cronLogger struct {
	log    logx.Logger
	onSkip func()
}

func (l cronLogger) Info(msg string, kv ...interface{}) {
	if msg == "skip" && l.onSkip != nil {
		l.onSkip()
	}
	l.log.Debug("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
