// Observable and basic operator tests for RxJS
// Observable核心语义与基础操作符测试
package rxjs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingObserver 记录收到的全部通知，供断言使用
type recordingObserver struct {
	values    []interface{}
	errs      []error
	completes int
}

func (r *recordingObserver) OnNext(value interface{}) { r.values = append(r.values, value) }
func (r *recordingObserver) OnError(err error)        { r.errs = append(r.errs, err) }
func (r *recordingObserver) OnComplete()              { r.completes++ }

// naturals 同步发射0,1,2,...的无限序列，直到下游停止接收
func naturals() Observable {
	return NewObservable(func(observer Observer) Disposable {
		disposable := NewBaseDisposable(nil)
		for i := 0; ; i++ {
			if observerStopped(observer) {
				return disposable
			}
			observer.OnNext(i)
		}
	})
}

func TestFactories(t *testing.T) {
	t.Run("Just同步发射全部值并完成", func(t *testing.T) {
		values, err := Just(1, 2, 3).ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{1, 2, 3}, values)
	})

	t.Run("Empty立即完成", func(t *testing.T) {
		rec := &recordingObserver{}
		Empty().Subscribe(rec)
		require.Empty(t, rec.values)
		require.Equal(t, 1, rec.completes)
	})

	t.Run("Error立即发射错误", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Error(boom).ToSlice()
		require.ErrorIs(t, err, boom)
	})

	t.Run("Never不发射任何通知", func(t *testing.T) {
		rec := &recordingObserver{}
		Never().Subscribe(rec)
		require.Empty(t, rec.values)
		require.Empty(t, rec.errs)
		require.Zero(t, rec.completes)
	})

	t.Run("Range发射指定范围", func(t *testing.T) {
		values, err := Range(5, 3).ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{5, 6, 7}, values)
	})

	t.Run("FromSlice发射切片内容", func(t *testing.T) {
		values, err := FromSlice([]interface{}{"a", "b"}).ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{"a", "b"}, values)
	})

	t.Run("每次订阅彼此独立", func(t *testing.T) {
		obs := Just(1, 2)
		first, err := obs.ToSlice()
		require.NoError(t, err)
		second, err := obs.ToSlice()
		require.NoError(t, err)
		require.Equal(t, first, second)
	})
}

func TestTerminalOnce(t *testing.T) {
	t.Run("完成之后的通知被吞掉", func(t *testing.T) {
		misbehaving := NewObservable(func(observer Observer) Disposable {
			observer.OnNext(1)
			observer.OnComplete()
			observer.OnNext(2)
			observer.OnError(errors.New("late"))
			observer.OnComplete()
			return NewBaseDisposable(nil)
		})

		rec := &recordingObserver{}
		misbehaving.Subscribe(rec)

		require.Equal(t, []interface{}{1}, rec.values)
		require.Empty(t, rec.errs)
		require.Equal(t, 1, rec.completes)
	})

	t.Run("错误之后的通知被吞掉", func(t *testing.T) {
		boom := errors.New("boom")
		misbehaving := NewObservable(func(observer Observer) Disposable {
			observer.OnError(boom)
			observer.OnNext(1)
			observer.OnError(errors.New("second"))
			return NewBaseDisposable(nil)
		})

		rec := &recordingObserver{}
		misbehaving.Subscribe(rec)

		require.Empty(t, rec.values)
		require.Equal(t, []error{boom}, rec.errs)
		require.Zero(t, rec.completes)
	})

	t.Run("操作符链上的每一级都满足终止一次", func(t *testing.T) {
		rec := &recordingObserver{}
		Just(1, 2, 3).
			Map(func(v interface{}, _ int) (interface{}, error) { return v, nil }).
			Filter(func(v interface{}, _ int) (bool, error) { return true, nil }).
			Subscribe(rec)

		require.Equal(t, []interface{}{1, 2, 3}, rec.values)
		require.Equal(t, 1, rec.completes)
		require.Empty(t, rec.errs)
	})
}

func TestDisposal(t *testing.T) {
	t.Run("在通知处理器内部重入释放", func(t *testing.T) {
		subject := NewPublishSubject()
		received := 0
		var sub Disposable
		sub = subject.Subscribe(NewObserver(func(interface{}) {
			received++
			sub.Dispose()
			sub.Dispose() // 重复释放无副作用
		}, nil, nil))

		subject.OnNext(1)
		subject.OnNext(2)
		subject.OnNext(3)

		require.Equal(t, 1, received)
	})

	t.Run("终止通知之后订阅的Disposable已失效", func(t *testing.T) {
		sub := Just(1).Subscribe(&recordingObserver{})
		require.True(t, sub.IsDisposed())
	})

	t.Run("释放会传播到上游", func(t *testing.T) {
		upstreamDisposed := false
		source := NewObservable(func(observer Observer) Disposable {
			return NewBaseDisposable(func() { upstreamDisposed = true })
		})

		sub := source.Map(func(v interface{}, _ int) (interface{}, error) { return v, nil }).
			Subscribe(&recordingObserver{})
		sub.Dispose()

		require.True(t, upstreamDisposed)
	})
}

func TestMap(t *testing.T) {
	t.Run("转换每个元素", func(t *testing.T) {
		values, err := Just(1, 2, 3).Map(func(v interface{}, _ int) (interface{}, error) {
			return v.(int) * 2, nil
		}).ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{2, 4, 6}, values)
	})

	t.Run("传入元素序号", func(t *testing.T) {
		values, err := Just("a", "b", "c").Map(func(v interface{}, index int) (interface{}, error) {
			return fmt.Sprintf("%s%d", v, index), nil
		}).ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{"a0", "b1", "c2"}, values)
	})

	t.Run("转换失败变成唯一一次OnError", func(t *testing.T) {
		boom := errors.New("boom")
		rec := &recordingObserver{}
		Just(1, 2, 3).Map(func(v interface{}, _ int) (interface{}, error) {
			if v.(int) == 2 {
				return nil, boom
			}
			return v, nil
		}).Subscribe(rec)

		require.Equal(t, []interface{}{1}, rec.values)
		require.Equal(t, []error{boom}, rec.errs)
		require.Zero(t, rec.completes)
	})
}

func TestFilter(t *testing.T) {
	t.Run("只转发谓词为真的元素", func(t *testing.T) {
		values, err := Range(1, 6).Filter(func(v interface{}, _ int) (bool, error) {
			return v.(int)%2 == 0, nil
		}).ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{2, 4, 6}, values)
	})

	t.Run("谓词失败变成OnError", func(t *testing.T) {
		boom := errors.New("boom")
		rec := &recordingObserver{}
		Just(1).Filter(func(interface{}, int) (bool, error) { return false, boom }).Subscribe(rec)
		require.Equal(t, []error{boom}, rec.errs)
	})
}

func TestPluck(t *testing.T) {
	type user struct {
		Name string
		Age  int
	}

	t.Run("从map中提取键", func(t *testing.T) {
		values, err := Just(
			map[string]interface{}{"name": "ada"},
			map[string]interface{}{"name": "linus"},
		).Pluck("name").ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{"ada", "linus"}, values)
	})

	t.Run("从结构体中提取字段", func(t *testing.T) {
		values, err := Just(user{Name: "ada", Age: 36}, &user{Name: "linus", Age: 55}).
			Pluck("Age").ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{36, 55}, values)
	})

	t.Run("不支持的类型产生错误", func(t *testing.T) {
		_, err := Just(42).Pluck("Name").ToSlice()
		require.Error(t, err)
	})
}

func TestTake(t *testing.T) {
	t.Run("无限序列上精确发射count个元素后完成", func(t *testing.T) {
		values, err := naturals().Take(5).ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{0, 1, 2, 3, 4}, values)
	})

	t.Run("来源不足count时全部转发", func(t *testing.T) {
		values, err := Just(1, 2).Take(5).ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{1, 2}, values)
	})

	t.Run("Take0立即完成且不订阅上游", func(t *testing.T) {
		subscribed := false
		source := NewObservable(func(observer Observer) Disposable {
			subscribed = true
			observer.OnComplete()
			return NewBaseDisposable(nil)
		})

		rec := &recordingObserver{}
		source.Take(0).Subscribe(rec)

		require.False(t, subscribed)
		require.Empty(t, rec.values)
		require.Equal(t, 1, rec.completes)
	})

	t.Run("负数count在构造时panic", func(t *testing.T) {
		require.PanicsWithValue(t, ErrNegativeCount, func() {
			Just(1).Take(-1)
		})
	})
}

func TestSkip(t *testing.T) {
	t.Run("丢弃前count个元素", func(t *testing.T) {
		values, err := Range(0, 5).Skip(2).ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{2, 3, 4}, values)
	})

	t.Run("负数count在构造时panic", func(t *testing.T) {
		require.PanicsWithValue(t, ErrNegativeCount, func() {
			Just(1).Skip(-1)
		})
	})

	t.Run("Skip接Take等价于切片", func(t *testing.T) {
		const length = 10
		for _, tc := range []struct{ skip, take int }{
			{0, 0}, {0, 3}, {2, 4}, {8, 5}, {10, 2}, {4, 0},
		} {
			values, err := Range(0, length).Skip(tc.skip).Take(tc.take).ToSlice()
			require.NoError(t, err)

			lo := tc.skip
			if lo > length {
				lo = length
			}
			hi := tc.skip + tc.take
			if hi > length {
				hi = length
			}
			var expected []interface{}
			for i := lo; i < hi; i++ {
				expected = append(expected, i)
			}
			require.Equal(t, expected, values, "skip=%d take=%d", tc.skip, tc.take)
		}
	})
}

func TestSkipWhileTakeWhile(t *testing.T) {
	t.Run("SkipWhile首次为假后不再测试", func(t *testing.T) {
		tested := 0
		values, err := Just(1, 2, 9, 1, 2).SkipWhile(func(v interface{}, _ int) (bool, error) {
			tested++
			return v.(int) < 5, nil
		}).ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{9, 1, 2}, values)
		require.Equal(t, 3, tested)
	})

	t.Run("TakeWhile首次为假时补足完成", func(t *testing.T) {
		rec := &recordingObserver{}
		Just(1, 2, 9, 1).TakeWhile(func(v interface{}, _ int) (bool, error) {
			return v.(int) < 5, nil
		}).Subscribe(rec)

		require.Equal(t, []interface{}{1, 2}, rec.values)
		require.Equal(t, 1, rec.completes)
	})

	t.Run("谓词失败变成OnError", func(t *testing.T) {
		boom := errors.New("boom")
		rec := &recordingObserver{}
		Just(1).TakeWhile(func(interface{}, int) (bool, error) { return false, boom }).Subscribe(rec)
		require.Equal(t, []error{boom}, rec.errs)
		require.Zero(t, rec.completes)
	})
}

func TestDefaultIfEmpty(t *testing.T) {
	t.Run("空序列发射一次默认值后完成", func(t *testing.T) {
		rec := &recordingObserver{}
		Empty().DefaultIfEmpty(42).Subscribe(rec)

		require.Equal(t, []interface{}{42}, rec.values)
		require.Equal(t, 1, rec.completes)
	})

	t.Run("非空序列原样转发不注入默认值", func(t *testing.T) {
		values, err := Just(1, 2).DefaultIfEmpty(42).ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{1, 2}, values)
	})

	t.Run("错误路径不注入默认值", func(t *testing.T) {
		boom := errors.New("boom")
		rec := &recordingObserver{}
		Error(boom).DefaultIfEmpty(42).Subscribe(rec)

		require.Empty(t, rec.values)
		require.Equal(t, []error{boom}, rec.errs)
	})
}

func TestDistinct(t *testing.T) {
	t.Run("按首次出现顺序去重", func(t *testing.T) {
		values, err := Just(1, 1, 2, 3, 2, 1).Distinct().ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{1, 2, 3}, values)
	})

	t.Run("按自定义键去重", func(t *testing.T) {
		values, err := Just("ant", "bee", "art", "bat").DistinctBy(func(v interface{}) (interface{}, error) {
			return v.(string)[:1], nil
		}, nil).ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{"ant", "bee"}, values)
	})

	t.Run("键选择失败变成OnError", func(t *testing.T) {
		boom := errors.New("boom")
		rec := &recordingObserver{}
		Just(1).DistinctBy(func(interface{}) (interface{}, error) { return nil, boom }, nil).Subscribe(rec)
		require.Equal(t, []error{boom}, rec.errs)
	})

	t.Run("DistinctUntilChanged只滤掉连续重复", func(t *testing.T) {
		values, err := Just(1, 1, 2, 2, 1).DistinctUntilChanged().ToSlice()
		require.NoError(t, err)
		require.Equal(t, []interface{}{1, 2, 1}, values)
	})
}

func TestSideEffects(t *testing.T) {
	t.Run("DoOnNext在转发前执行", func(t *testing.T) {
		var seen []interface{}
		values, err := Just(1, 2).DoOnNext(func(v interface{}) { seen = append(seen, v) }).ToSlice()
		require.NoError(t, err)
		require.Equal(t, values, seen)
	})

	t.Run("DoOnError与DoOnComplete", func(t *testing.T) {
		boom := errors.New("boom")
		var got error
		Error(boom).DoOnError(func(err error) { got = err }).Subscribe(&recordingObserver{})
		require.ErrorIs(t, got, boom)

		completed := false
		Empty().DoOnComplete(func() { completed = true }).Subscribe(&recordingObserver{})
		require.True(t, completed)
	})

	t.Run("IgnoreElements只转发终止通知", func(t *testing.T) {
		rec := &recordingObserver{}
		Just(1, 2, 3).IgnoreElements().Subscribe(rec)
		require.Empty(t, rec.values)
		require.Equal(t, 1, rec.completes)
	})
}
