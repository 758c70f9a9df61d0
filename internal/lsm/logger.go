package lsm

import "go.uber.org/zap"

// zapBadgerLogger adapts *zap.SugaredLogger to badger.Logger so Badger's
// internal compaction and value-log messages flow through the same
// structured logger as the rest of the store.
type zapBadgerLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapBadgerLogger) Errorf(format string, args ...interface{})   { l.sugar.Errorf(format, args...) }
func (l zapBadgerLogger) Warningf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }
func (l zapBadgerLogger) Infof(format string, args ...interface{})    { l.sugar.Infof(format, args...) }
func (l zapBadgerLogger) Debugf(format string, args ...interface{})   { l.sugar.Debugf(format, args...) }
