// Factory functions for RxJS
// 工厂函数：同步投递模型下的基础Observable来源
package rxjs

// ============================================================================
// 基础工厂函数
// ============================================================================

// Just 从给定的值创建Observable，订阅时同步发射全部值
func Just(values ...interface{}) Observable {
	return NewObservable(func(observer Observer) Disposable {
		disposable := NewBaseDisposable(nil)
		for _, value := range values {
			if observerStopped(observer) {
				return disposable
			}
			observer.OnNext(value)
		}
		observer.OnComplete()
		return disposable
	})
}

// Empty 创建一个空的Observable，订阅时立即完成
func Empty() Observable {
	return NewObservable(func(observer Observer) Disposable {
		observer.OnComplete()
		return NewBaseDisposable(nil)
	})
}

// Never 创建一个永不发射任何值、也永不终止的Observable
func Never() Observable {
	return NewObservable(func(observer Observer) Disposable {
		return NewBaseDisposable(nil)
	})
}

// Error 创建一个订阅时立即发射错误的Observable
func Error(err error) Observable {
	return NewObservable(func(observer Observer) Disposable {
		observer.OnError(err)
		return NewBaseDisposable(nil)
	})
}

// Range 创建发射[start, start+count)范围整数的Observable
func Range(start, count int) Observable {
	if count < 0 {
		panic(ErrNegativeCount)
	}
	return NewObservable(func(observer Observer) Disposable {
		disposable := NewBaseDisposable(nil)
		for i := 0; i < count; i++ {
			if observerStopped(observer) {
				return disposable
			}
			observer.OnNext(start + i)
		}
		observer.OnComplete()
		return disposable
	})
}

// ============================================================================
// 从数据源创建
// ============================================================================

// FromSlice 从切片创建Observable
func FromSlice(slice []interface{}) Observable {
	return NewObservable(func(observer Observer) Disposable {
		disposable := NewBaseDisposable(nil)
		for _, value := range slice {
			if observerStopped(observer) {
				return disposable
			}
			observer.OnNext(value)
		}
		observer.OnComplete()
		return disposable
	})
}
