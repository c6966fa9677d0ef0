package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind — класс ошибки удалённого хранилища. От класса зависит политика
// повторов очереди синхронизации и то, что увидит пользователь.
type Kind int

const (
	// KindTransient — сеть/таймаут; повторяется автоматически.
	KindTransient Kind = iota
	// KindConflict — нарушение уникальности; локальное намерение уже
	// удовлетворено, повтор не нужен.
	KindConflict
	// KindPermission — отказ в доступе на уровне строки; терминальна,
	// повторять бессмысленно.
	KindPermission
	// KindValidation — запись отвергнута по форме; терминальна.
	KindValidation
	// KindNotFound — запрошенная запись отсутствует.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindConflict:
		return "conflict"
	case KindPermission:
		return "permission"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error — классифицированная ошибка операции удалённого хранилища.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf классифицирует произвольную ошибку. Неизвестные ошибки считаются
// транзиентными: лишний повтор безопаснее потерянной записи.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return KindTransient
	}
	return KindTransient
}

// IsNotFound сообщает, является ли ошибка отсутствием записи.
func IsNotFound(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindNotFound
}
