package logger

import (
	"sync"

	log_model "eventpilot/models/log"
	"eventpilot/types"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AsyncLogger persists request/response snapshots off the request path.
type AsyncLogger struct {
	db      *gorm.DB
	channel chan types.LogEntry
	done    chan struct{}
	once    sync.Once
}

func NewAsyncLogger(db *gorm.DB) *AsyncLogger {
	return &AsyncLogger{
		db:      db,
		channel: make(chan types.LogEntry, 256),
		done:    make(chan struct{}),
	}
}

// ProcessLog drains the channel until Close is called.
func (logger *AsyncLogger) ProcessLog() {
	defer close(logger.done)

	for logEntry := range logger.channel {
		dbLog := log_model.Log{
			Method:          logEntry.Method,
			URL:             logEntry.URL,
			RequestBody:     logEntry.RequestBody,
			ResponseBody:    logEntry.ResponseBody,
			RequestHeaders:  logEntry.RequestHeaders,
			ResponseHeaders: logEntry.ResponseHeaders,
			StatusCode:      logEntry.StatusCode,
			UserID:          logEntry.UserID,
			CreatedAt:       logEntry.CreatedAt,
		}

		if err := logger.db.Create(&dbLog).Error; err != nil {
			Error("Failed to insert request log", err, zap.String("url", dbLog.URL))
		}
	}
}

// Log queues an entry. When the buffer is full the entry is dropped.
func (logger *AsyncLogger) Log(entry types.LogEntry) {
	if logger == nil {
		return
	}
	select {
	case logger.channel <- entry:
	default:
		Warning("Request log buffer full, dropping entry", zap.String("url", entry.URL))
	}
}

// Close stops accepting entries and waits for the queue to drain.
func (logger *AsyncLogger) Close() {
	logger.once.Do(func() {
		close(logger.channel)
	})
	<-logger.done
}
