package importers

import (
	"go.uber.org/zap"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

// Notifier receives the user-facing messages of an import. Notifications
// are advisory; nothing in the pipeline waits on them.
type Notifier interface {
	Notify(sessionID string, n entities.Notification)
}

type NotifierFunc func(sessionID string, n entities.Notification)

func (f NotifierFunc) Notify(sessionID string, n entities.Notification) {
	f(sessionID, n)
}

// LogNotifier writes notifications to the application log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(sessionID string, n entities.Notification) {
	fields := []zap.Field{
		zap.String("session_id", sessionID),
		zap.String("title", n.Title),
		zap.String("description", n.Description),
	}
	switch n.Level {
	case entities.NotificationError:
		l.logger.Error("import notification", fields...)
	case entities.NotificationWarning:
		l.logger.Warn("import notification", fields...)
	default:
		l.logger.Info("import notification", fields...)
	}
}
