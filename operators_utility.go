// Utility operators for RxJS
// 实用操作符：空序列默认值、忽略元素、副作用钩子与阻塞收集
package rxjs

// DefaultIfEmpty 原样转发全部元素；若完成时从未转发过任何元素，
// 则在完成信号之前先发射defaultValue
func (o *observableImpl) DefaultIfEmpty(defaultValue interface{}) Observable {
	return o.lift(func(src *forwardObserver) {
		hasValue := false
		src.next = func(value interface{}) {
			hasValue = true
			src.downstream.OnNext(value)
		}
		src.complete = func() {
			if !hasValue {
				src.downstream.OnNext(defaultValue)
			}
			src.downstream.OnComplete()
		}
	})
}

// IgnoreElements 忽略所有元素，只转发终止通知
func (o *observableImpl) IgnoreElements() Observable {
	return o.lift(func(src *forwardObserver) {
		src.next = func(interface{}) {}
	})
}

// ============================================================================
// 副作用操作符
// ============================================================================

// DoOnNext 在转发每个元素之前执行action
func (o *observableImpl) DoOnNext(action OnNext) Observable {
	return o.lift(func(src *forwardObserver) {
		src.next = func(value interface{}) {
			action(value)
			src.downstream.OnNext(value)
		}
	})
}

// DoOnError 在转发错误之前执行action
func (o *observableImpl) DoOnError(action OnError) Observable {
	return o.lift(func(src *forwardObserver) {
		src.fail = func(err error) {
			action(err)
			src.downstream.OnError(err)
		}
	})
}

// DoOnComplete 在转发完成信号之前执行action
func (o *observableImpl) DoOnComplete(action OnComplete) Observable {
	return o.lift(func(src *forwardObserver) {
		src.complete = func() {
			action()
			src.downstream.OnComplete()
		}
	})
}

// ============================================================================
// 阻塞操作
// ============================================================================

// ToSlice 阻塞收集所有元素直到序列终止。
// 同步来源在Subscribe期间即完成收集；永不终止的来源会使调用方永久阻塞。
func (o *observableImpl) ToSlice() ([]interface{}, error) {
	var result []interface{}
	var resultErr error
	done := make(chan struct{})

	o.Subscribe(NewObserver(
		func(value interface{}) {
			result = append(result, value)
		},
		func(err error) {
			resultErr = err
			close(done)
		},
		func() {
			close(done)
		},
	))

	<-done
	return result, resultErr
}
