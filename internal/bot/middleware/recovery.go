package middleware

import (
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// RecoverFromPanic вызывается через defer в обработчике события.
// Паника логируется вместе с полями события, цикл обработки продолжает работу.
func RecoverFromPanic(logger *log.Entry) {
	if r := recover(); r != nil {
		logger.WithFields(log.Fields{
			"component": "panic_recovery",
			"panic":     fmt.Sprintf("%v", r),
			"stack":     string(debug.Stack()),
		}).Error("ПАНИКА в обработчике — восстановлено")
	}
}
