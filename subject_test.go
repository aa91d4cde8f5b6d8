// PublishSubject tests for RxJS
// 发布主题的多播与终止语义测试
package rxjs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishSubject(t *testing.T) {
	t.Run("多个订阅者同时接收", func(t *testing.T) {
		subject := NewPublishSubject()
		rec1 := &recordingObserver{}
		rec2 := &recordingObserver{}

		subject.Subscribe(rec1)
		subject.Subscribe(rec2)

		subject.OnNext(1)
		subject.OnNext(2)
		subject.OnComplete()

		require.Equal(t, []interface{}{1, 2}, rec1.values)
		require.Equal(t, []interface{}{1, 2}, rec2.values)
		require.Equal(t, 1, rec1.completes)
		require.Equal(t, 1, rec2.completes)
	})

	t.Run("不回放历史元素", func(t *testing.T) {
		subject := NewPublishSubject()
		subject.OnNext(1)

		rec := &recordingObserver{}
		subject.Subscribe(rec)
		subject.OnNext(2)

		require.Equal(t, []interface{}{2}, rec.values)
	})

	t.Run("完成之后的迟到订阅者只收到完成通知", func(t *testing.T) {
		subject := NewPublishSubject()
		subject.OnNext(1)
		subject.OnComplete()

		rec := &recordingObserver{}
		sub := subject.Subscribe(rec)

		require.Empty(t, rec.values)
		require.Equal(t, 1, rec.completes)
		require.True(t, sub.IsDisposed())
	})

	t.Run("出错之后的迟到订阅者只收到那个错误", func(t *testing.T) {
		boom := errors.New("boom")
		subject := NewPublishSubject()
		subject.OnError(boom)

		rec := &recordingObserver{}
		subject.Subscribe(rec)

		require.Empty(t, rec.values)
		require.Equal(t, []error{boom}, rec.errs)
	})

	t.Run("终止之后的发射被忽略", func(t *testing.T) {
		subject := NewPublishSubject()
		rec := &recordingObserver{}
		subject.Subscribe(rec)

		subject.OnComplete()
		subject.OnNext(1)
		subject.OnError(errors.New("late"))
		subject.OnComplete()

		require.Empty(t, rec.values)
		require.Empty(t, rec.errs)
		require.Equal(t, 1, rec.completes)
	})

	t.Run("退订后不再接收", func(t *testing.T) {
		subject := NewPublishSubject()
		rec := &recordingObserver{}
		sub := subject.Subscribe(rec)

		subject.OnNext(1)
		sub.Dispose()
		subject.OnNext(2)

		require.Equal(t, []interface{}{1}, rec.values)
	})

	t.Run("观察者计数", func(t *testing.T) {
		subject := NewPublishSubject()
		require.False(t, subject.HasObservers())

		sub1 := subject.Subscribe(&recordingObserver{})
		subject.Subscribe(&recordingObserver{})
		require.Equal(t, 2, subject.ObserverCount())

		sub1.Dispose()
		require.Equal(t, 1, subject.ObserverCount())

		subject.OnComplete()
		require.False(t, subject.HasObservers())
	})

	t.Run("作为Observable参与操作符链", func(t *testing.T) {
		subject := NewPublishSubject()
		rec := &recordingObserver{}
		subject.Map(func(v interface{}, _ int) (interface{}, error) {
			return v.(int) * 10, nil
		}).Subscribe(rec)

		subject.OnNext(1)
		subject.OnNext(2)
		subject.OnComplete()

		require.Equal(t, []interface{}{10, 20}, rec.values)
		require.Equal(t, 1, rec.completes)
	})
}
