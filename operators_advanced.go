// Advanced operators for RxJS
// 高级操作符：动态键分组（带生存期）、并发展平与切换展平
package rxjs

import (
	"sync"

	"golang.org/x/exp/maps"
)

// ============================================================================
// GroupedObservable 分组Observable
// ============================================================================

// GroupedObservable 带键的Observable，向消费者标识它代表哪个分区。
// Key在分组创建后不可变。
type GroupedObservable struct {
	Observable

	// Key 分组键
	Key interface{}
}

// newGroupedObservable 创建分组Observable。
// mergedDisposable非nil时为消费者可见的实例：每次订阅除了订阅底层主题外，
// 还会获取一个引用计数依赖令牌，使上游订阅在该分组仍被消费期间保持存活。
// mergedDisposable为nil时为生存期选择器可见的实例，不参与释放耦合。
func newGroupedObservable(key interface{}, subject *PublishSubject, mergedDisposable *RefCountDisposable) *GroupedObservable {
	var underlying Observable
	if mergedDisposable != nil {
		underlying = NewObservable(func(observer Observer) Disposable {
			return NewCompositeDisposable(
				mergedDisposable.GetDisposable(),
				subject.Subscribe(observer),
			)
		})
	} else {
		underlying = subject.asObservable()
	}
	return &GroupedObservable{Observable: underlying, Key: key}
}

// ============================================================================
// GroupBy / GroupByUntil 动态键分组
// ============================================================================

// neverDuration 永不发射也永不完成的生存期：分组只随上游终止而结束
func neverDuration(*GroupedObservable) (Observable, error) {
	return Never(), nil
}

// GroupBy 按键分组，分组不会过期（生存期为Never）
func (o *observableImpl) GroupBy(keySelector KeySelector) Observable {
	return o.GroupByUntil(keySelector, nil, nil, nil)
}

// GroupByUntil 按键动态分组，每个分组的生存期由durationSelector给出的
// Observable的第一个通知（元素或完成）决定。
//
// 每个上游元素：取键、序列化键、查找或新建分组主题；新建时先通过OnNext
// 向下游公布消费者可见的GroupedObservable，再订阅生存期的第一个通知。
// 分组过期后同键元素会催生一个全新的分组（新主题、新生存期订阅）。
// 任何选择器失败、生存期错误或上游错误都会先广播给所有存活分组、
// 再投递给下游观察者（error-everyone语义）。
//
// elementSelector为nil时为恒等映射，durationSelector为nil时分组永不过期，
// keySerializer为nil时使用默认序列化。
// 返回的顶层Disposable是引用计数的：只有主释放与全部分组订阅的释放都发生后，
// 上游订阅才会被拆除。
func (o *observableImpl) GroupByUntil(keySelector KeySelector, elementSelector ElementSelector, durationSelector DurationSelector, keySerializer KeySerializer) Observable {
	if durationSelector == nil {
		durationSelector = neverDuration
	}
	return NewObservable(func(observer Observer) Disposable {
		var mu sync.Mutex
		groups := make(map[string]*PublishSubject)
		groupDisposable := NewCompositeDisposable()
		refCountDisposable := NewRefCountDisposable(groupDisposable)

		// 广播终止通知前先对存活分组做快照：处理器可能重入地改动映射
		snapshot := func() []*PublishSubject {
			mu.Lock()
			defer mu.Unlock()
			subjects := maps.Values(groups)
			clear(groups)
			return subjects
		}

		src := &forwardObserver{
			downstream: observer,
			upstream:   NewSingleAssignmentDisposable(),
		}
		src.fail = func(err error) {
			for _, subject := range snapshot() {
				subject.OnError(err)
			}
			observer.OnError(err)
		}
		src.complete = func() {
			for _, subject := range snapshot() {
				subject.OnComplete()
			}
			observer.OnComplete()
		}
		src.next = func(value interface{}) {
			key := value
			if keySelector != nil {
				selected, err := keySelector(value)
				if err != nil {
					src.OnError(err)
					return
				}
				key = selected
			}
			serialized, err := serializeKey(keySerializer, key)
			if err != nil {
				src.OnError(err)
				return
			}

			mu.Lock()
			writer, exists := groups[serialized]
			if !exists {
				writer = NewPublishSubject()
				groups[serialized] = writer
			}
			mu.Unlock()

			if !exists {
				group := newGroupedObservable(key, writer, refCountDisposable)
				durationGroup := newGroupedObservable(key, writer, nil)

				duration, err := durationSelector(durationGroup)
				if err != nil {
					src.OnError(err)
					return
				}

				// 公布分组必须先于任何元素写入它
				observer.OnNext(group)

				md := NewSingleAssignmentDisposable()
				groupDisposable.Add(md)

				expire := func() {
					mu.Lock()
					_, live := groups[serialized]
					if live {
						delete(groups, serialized)
					}
					mu.Unlock()
					if live {
						writer.OnComplete()
					}
					groupDisposable.Remove(md)
				}

				// 只关心生存期的第一个通知：元素或完成都触发过期，
				// 错误则等同于上游级别的失败
				md.Set(duration.Take(1).Subscribe(NewObserver(
					nil,
					func(err error) { src.OnError(err) },
					expire,
				)))
			}

			element := value
			if elementSelector != nil {
				selected, err := elementSelector(value)
				if err != nil {
					src.OnError(err)
					return
				}
				element = selected
			}
			writer.OnNext(element)
		}

		groupDisposable.Add(src.upstream)
		src.upstream.Set(o.Subscribe(src))
		return refCountDisposable
	})
}

// ============================================================================
// FlatMap / SwitchMap 展平操作符
// ============================================================================

// FlatMap 为每个元素生成内部Observable并同时订阅全部内部序列，
// 把每个内部元素转发给下游；外部与全部内部序列都完成后才发出完成信号
func (o *observableImpl) FlatMap(selector FlatMapSelector) Observable {
	return o.flatMapInternal(selector, nil)
}

// FlatMapWithResult 同FlatMap，但用resultSelector组合外部元素与内部元素
func (o *observableImpl) FlatMapWithResult(selector FlatMapSelector, resultSelector ResultSelector) Observable {
	return o.flatMapInternal(selector, resultSelector)
}

func (o *observableImpl) flatMapInternal(selector FlatMapSelector, resultSelector ResultSelector) Observable {
	return NewObservable(func(observer Observer) Disposable {
		var mu sync.Mutex
		group := NewCompositeDisposable()
		outerDone := false
		active := 0

		outer := &forwardObserver{downstream: observer}
		failAll := func(err error) {
			observer.OnError(err)
			group.Dispose()
		}
		outer.fail = failAll
		outer.complete = func() {
			mu.Lock()
			outerDone = true
			finished := active == 0
			mu.Unlock()
			if finished {
				observer.OnComplete()
			}
		}
		outer.next = func(value interface{}) {
			inner, err := selector(value)
			if err != nil {
				outer.OnError(err)
				return
			}

			mu.Lock()
			active++
			mu.Unlock()

			innerSub := NewSingleAssignmentDisposable()
			group.Add(innerSub)
			outerValue := value

			innerObserver := &forwardObserver{downstream: observer}
			innerObserver.next = func(innerValue interface{}) {
				if resultSelector != nil {
					combined, err := resultSelector(outerValue, innerValue)
					if err != nil {
						innerObserver.OnError(err)
						return
					}
					observer.OnNext(combined)
					return
				}
				observer.OnNext(innerValue)
			}
			innerObserver.fail = func(err error) {
				outer.stop()
				failAll(err)
			}
			innerObserver.complete = func() {
				group.Remove(innerSub)
				mu.Lock()
				active--
				finished := outerDone && active == 0
				mu.Unlock()
				if finished {
					observer.OnComplete()
				}
			}
			innerSub.Set(inner.Subscribe(innerObserver))
		}

		outerSub := NewSingleAssignmentDisposable()
		group.Add(outerSub)
		outer.upstream = outerSub
		outerSub.Set(o.Subscribe(outer))
		return group
	})
}

// SwitchMap 切换展平：只转发最近一次生成的内部Observable的元素，
// 切换到新的内部序列时隐式退订前一个
func (o *observableImpl) SwitchMap(selector FlatMapSelector) Observable {
	return NewObservable(func(observer Observer) Disposable {
		var mu sync.Mutex
		var latestID uint64
		var current Disposable
		hasLatest := false
		outerDone := false

		outer := &forwardObserver{downstream: observer}
		outer.complete = func() {
			mu.Lock()
			outerDone = true
			finished := !hasLatest
			mu.Unlock()
			if finished {
				observer.OnComplete()
			}
		}
		outer.next = func(value interface{}) {
			inner, err := selector(value)
			if err != nil {
				outer.OnError(err)
				return
			}

			mu.Lock()
			latestID++
			id := latestID
			hasLatest = true
			previous := current
			current = nil
			mu.Unlock()

			if previous != nil {
				previous.Dispose()
			}

			innerObserver := &forwardObserver{downstream: observer}
			innerObserver.next = func(innerValue interface{}) {
				mu.Lock()
				isLatest := id == latestID
				mu.Unlock()
				if isLatest {
					observer.OnNext(innerValue)
				}
			}
			innerObserver.fail = func(err error) {
				mu.Lock()
				isLatest := id == latestID
				mu.Unlock()
				if isLatest {
					outer.stop()
					observer.OnError(err)
				}
			}
			innerObserver.complete = func() {
				mu.Lock()
				if id == latestID {
					hasLatest = false
				}
				finished := outerDone && !hasLatest
				mu.Unlock()
				if finished {
					observer.OnComplete()
				}
			}

			sub := inner.Subscribe(innerObserver)
			mu.Lock()
			if id == latestID && !innerObserver.isStopped() {
				current = sub
			}
			mu.Unlock()
		}

		outerSub := NewSingleAssignmentDisposable()
		outer.upstream = outerSub

		composite := NewCompositeDisposable()
		composite.Add(outerSub)
		composite.Add(NewBaseDisposable(func() {
			mu.Lock()
			inner := current
			current = nil
			mu.Unlock()
			if inner != nil {
				inner.Dispose()
			}
		}))

		outerSub.Set(o.Subscribe(outer))
		return composite
	})
}
