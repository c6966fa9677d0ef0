package client

import "sync"

// Темы уведомлений об инвалидации локальных данных.
const (
	TopicWords    = "words"
	TopicProgress = "progress"
	TopicQueue    = "queue"
)

// Notifier рассылает подписчикам сигналы об изменении коллекций в
// локальном хранилище. Отправка неблокирующая: медленный подписчик
// теряет промежуточные сигналы, но не задерживает запись.
type Notifier struct {
	mu   sync.RWMutex
	subs map[string][]chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string][]chan struct{})}
}

// Subscribe возвращает канал, в который придёт сигнал при каждой
// публикации по теме, и функцию отписки. Канал буферизован на один
// сигнал; после отписки сигналы в него больше не приходят.
func (n *Notifier) Subscribe(topic string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	n.subs[topic] = append(n.subs[topic], ch)
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		list := n.subs[topic]
		for i, c := range list {
			if c == ch {
				n.subs[topic] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
	return ch, cancel
}

// Publish уведомляет всех подписчиков темы.
func (n *Notifier) Publish(topic string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ch := range n.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
