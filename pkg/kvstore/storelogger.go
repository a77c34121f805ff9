package kvstore

import "go.uber.org/zap"

// Logger decorates a Sublevel with zap debug logging of every operation.
type Logger struct {
	log *zap.Logger
	sub Sublevel
}

// WithLogger wraps sub so each store operation is logged at debug level
// under the given sublevel name.
func WithLogger(log *zap.Logger, name string, sub Sublevel) *Logger {
	return &Logger{log: log.Named(name), sub: sub}
}

func (l *Logger) Get(key string) ([]byte, error) {
	l.log.Debug("Get", zap.String("key", key))
	return l.sub.Get(key)
}

func (l *Logger) Put(key string, value []byte) error {
	l.log.Debug("Put", zap.String("key", key), zap.Int("value length", len(value)))
	return l.sub.Put(key, value)
}

func (l *Logger) Delete(key string) error {
	l.log.Debug("Delete", zap.String("key", key))
	return l.sub.Delete(key)
}

func (l *Logger) Iterate(fn func(key string, value []byte) bool) error {
	l.log.Debug("Iterate")
	return l.sub.Iterate(fn)
}

func (l *Logger) Batch() Batch {
	return &loggerBatch{log: l.log, batch: l.sub.Batch()}
}

type loggerBatch struct {
	log   *zap.Logger
	batch Batch
	ops   int
}

func (b *loggerBatch) Put(key string, value []byte) {
	b.ops++
	b.batch.Put(key, value)
}

func (b *loggerBatch) Delete(key string) {
	b.ops++
	b.batch.Delete(key)
}

func (b *loggerBatch) Write() error {
	b.log.Debug("Batch write", zap.Int("ops", b.ops))
	return b.batch.Write()
}
