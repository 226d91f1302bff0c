// Package netstatus абстрагирует сигнал доступности сети.
// Движок синхронизации не должен знать, откуда берется "мы онлайн":
// в тестах это статический флаг, в приложении — платформенный монитор.
package netstatus

import "sync"

// Monitor reports whether the device is currently online
type Monitor interface {
	IsOnline() bool
}

// AssumeOnline — монитор по умолчанию: если сигнала доступности нет,
// считаем что сеть есть, иначе движок был бы бесполезен в окружениях
// без детектора сети.
type AssumeOnline struct{}

func (AssumeOnline) IsOnline() bool { return true }

// Switch — потокобезопасный монитор с ручным переключением.
// Используется в CLI (флаг --offline) и в тестах. При переходе
// offline → online вызывает подписанные колбеки.
type Switch struct {
	mu        sync.Mutex
	online    bool
	listeners []func()
}

// NewSwitch creates a Switch in the given initial state
func NewSwitch(online bool) *Switch {
	return &Switch{online: online}
}

// IsOnline reports the current state
func (s *Switch) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// SetOnline flips the state. Подписчики уведомляются только
// на переходе offline → online.
func (s *Switch) SetOnline(online bool) {
	s.mu.Lock()
	wasOnline := s.online
	s.online = online
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	if online && !wasOnline {
		for _, fn := range listeners {
			fn()
		}
	}
}

// OnOnline subscribes fn to offline → online transitions
func (s *Switch) OnOnline(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
