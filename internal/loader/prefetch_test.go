package loader

import (
	"context"
	"testing"
	"time"
)

// TestPrefetcher_ExecutesTask проверяет, что поставленная задача
// выполняется рабочим циклом.
func TestPrefetcher_ExecutesTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPrefetcher(4, 0, testLogger())
	go p.Run(ctx)

	done := make(chan struct{})
	if !p.Submit(func(ctx context.Context) error {
		close(done)
		return nil
	}) {
		t.Fatal("Submit вернул false при пустой очереди")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("задача не выполнена за 2s")
	}
}

// TestPrefetcher_DropsWhenQueueFull проверяет неблокирующий Submit:
// при заполненной очереди задача отбрасывается.
func TestPrefetcher_DropsWhenQueueFull(t *testing.T) {
	// Run не запущен — очередь на 1 задачу заполняется первой же
	p := NewPrefetcher(1, 0, testLogger())

	noop := func(ctx context.Context) error { return nil }
	if !p.Submit(noop) {
		t.Fatal("первый Submit вернул false")
	}
	if p.Submit(noop) {
		t.Fatal("второй Submit вернул true при заполненной очереди")
	}
}

// TestPrefetcher_StopsOnCancel проверяет остановку рабочего цикла
// по отмене контекста.
func TestPrefetcher_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := NewPrefetcher(1, 0, testLogger())
	stopped := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run не завершился после отмены контекста")
	}
}

// TestPrefetcher_SwallowsTaskError проверяет, что ошибка задачи
// не останавливает рабочий цикл.
func TestPrefetcher_SwallowsTaskError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPrefetcher(4, 0, testLogger())
	go p.Run(ctx)

	p.Submit(func(ctx context.Context) error {
		return context.DeadlineExceeded
	})

	done := make(chan struct{})
	p.Submit(func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("следующая задача после ошибочной не выполнена")
	}
}
