package session

import "sync"

type userQueue struct {
	jobs []func()
}

// Queue выполняет задачи одного пользователя строго по одной и в порядке Go.
// Очереди разных пользователей обрабатываются параллельно.
type Queue struct {
	mu     sync.Mutex
	queues map[int64]*userQueue
	wg     sync.WaitGroup
}

func NewQueue() *Queue {
	return &Queue{queues: make(map[int64]*userQueue)}
}

// Go ставит job в очередь пользователя. Обработчик очереди запускается при
// первой задаче и завершается, когда очередь пуста.
func (q *Queue) Go(userID int64, job func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if uq, ok := q.queues[userID]; ok {
		uq.jobs = append(uq.jobs, job)
		return
	}

	uq := &userQueue{jobs: []func(){job}}
	q.queues[userID] = uq
	q.wg.Add(1)
	go q.drain(userID, uq)
}

func (q *Queue) drain(userID int64, uq *userQueue) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(uq.jobs) == 0 {
			delete(q.queues, userID)
			q.mu.Unlock()
			return
		}
		job := uq.jobs[0]
		uq.jobs[0] = nil
		uq.jobs = uq.jobs[1:]
		q.mu.Unlock()

		job()
	}
}

// Wait дожидается выполнения всех поставленных задач.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Len возвращает число пользователей с непустой очередью.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues)
}
