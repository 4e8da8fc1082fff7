package service

import "sync"

// keyedMutex сериализует start/stop по идентичности бота: два конкурентных
// start() одного бота иначе гоняются на детерминированном имени контейнера.
// Мьютексы не вымываются: карта растёт по числу различных ботов за жизнь
// процесса. Для fleet-CLI это единицы; долгоживущему демону понадобится
// очистка со счётчиком ссылок.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
