// Package logging создаёт zap-логгер утилит.
package logging

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// New возвращает SugaredLogger с идентификатором запуска в поле "run".
// В режиме дебага используется development-конфигурация zap, иначе production.
// Вызывающий обязан вызвать Sync у возвращённого *zap.Logger.
func New(debug bool, tool string) (*zap.Logger, *zap.SugaredLogger, error) {
	var (
		zl  *zap.Logger
		err error
	)
	if debug {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, err
	}
	zl = zl.With(zap.String("tool", tool), zap.String("run", uuid.NewString()))
	return zl, zl.Sugar(), nil
}
